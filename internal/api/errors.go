package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/devicehub/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int                 `json:"status"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []device.FieldError `json:"fields,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeUnauthorized      = "unauthorised"
	ErrCodeForbidden         = "forbidden"
	ErrCodeConflict          = "conflict"
	ErrCodeVersionConflict   = "version_conflict"
	ErrCodeInvalidDeviceType = "invalid_device_type"
	ErrCodeDeviceTypeUnknown = "device_type_unknown"
	ErrCodeInternal          = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeUnavailable       = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a device error to its HTTP status. Storage and
// integrity failures get an opaque message; the coordinator has logged them.
func writeDeviceError(w http.ResponseWriter, err error) {
	var ve *device.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, Error{
			Status:  http.StatusBadRequest,
			Code:    ErrCodeValidation,
			Message: "validation failed",
			Fields:  ve.Fields,
		})
	case errors.Is(err, device.ErrInvalidDeviceType):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidDeviceType, err.Error())
	case errors.Is(err, device.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "device not found")
	case errors.Is(err, device.ErrDeviceExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device already exists")
	case errors.Is(err, device.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, ErrCodeVersionConflict, "device was modified concurrently; re-read and retry")
	case errors.Is(err, device.ErrDeviceTypeUnknown):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeDeviceTypeUnknown, "stored device has no type data")
	default:
		writeInternalError(w, "internal server error")
	}
}
