package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/devicehub/internal/device"
	"github.com/nerrad567/devicehub/internal/export"
)

// listResponse wraps a device listing.
type listResponse[T any] struct {
	Devices []T `json:"devices"`
	Count   int `json:"count"`
}

// handleCreateDevice creates a device from a CreateRequest body.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req device.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	details, err := s.devices.Create(r.Context(), req)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/devices/"+details.ID)
	w.Header().Set("ETag", formatETag(details.VersionToken))
	writeJSON(w, http.StatusCreated, details)
}

// handleListDevices returns the short listing ordered by name.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	list, err := s.devices.ListShort(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[device.Summary]{Devices: list, Count: len(list)})
}

// handleListDeviceDetails returns the full view of every device.
func (s *Server) handleListDeviceDetails(w http.ResponseWriter, r *http.Request) {
	list, err := s.devices.ListDetailed(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[device.Details]{Devices: list, Count: len(list)})
}

// handleExportDevices returns the detailed listing as an xlsx attachment.
func (s *Server) handleExportDevices(w http.ResponseWriter, r *http.Request) {
	list, err := s.devices.ListDetailed(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDevices(&buf, list); err != nil {
		s.logger.Error("device export failed", "error", err)
		writeInternalError(w, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now().Unix())+`"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(buf.Bytes())
}

// handleGetDevice returns one device with its version token as ETag.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	details, err := s.devices.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	w.Header().Set("ETag", formatETag(details.VersionToken))
	writeJSON(w, http.StatusOK, details)
}

// handleUpdateDevice replaces a device's mutable fields.
//
// The expected version token comes from the body's base64 version_token,
// or from an If-Match header when the body omits it. On success the new
// token is returned in the ETag header with 204.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req device.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if len(req.VersionToken) == 0 {
		if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
			token, err := parseETag(ifMatch)
			if err != nil {
				writeBadRequest(w, "invalid If-Match header")
				return
			}
			req.VersionToken = token
		}
	}

	token, err := s.devices.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	w.Header().Set("ETag", formatETag(token))
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.devices.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	if !deleted {
		writeDeviceError(w, device.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// formatETag renders a version token as a strong entity tag.
func formatETag(token []byte) string {
	return `"` + base64.StdEncoding.EncodeToString(token) + `"`
}

// parseETag decodes a single entity tag produced by formatETag.
func parseETag(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return nil, errors.New("entity tag must be quoted")
	}
	return base64.StdEncoding.DecodeString(v[1 : len(v)-1])
}
