package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/devicehub/internal/device"
)

// Errors for responses that have no device-level equivalent.
var (
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("client: unauthorised")

	// ErrForbidden is returned for 403 responses.
	ErrForbidden = errors.New("client: forbidden")

	// ErrUnexpectedStatus is returned for statuses with no mapping.
	ErrUnexpectedStatus = errors.New("client: unexpected status")

	// ErrTransport is returned when the request never got a response.
	ErrTransport = errors.New("client: transport failure")
)

// Server error codes that select between sentinels sharing a status.
const (
	codeVersionConflict   = "version_conflict"
	codeInvalidDeviceType = "invalid_device_type"
	codeValidation        = "validation_error"
)

// errorBody mirrors the server's error response.
type errorBody struct {
	Status  int                 `json:"status"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []device.FieldError `json:"fields,omitempty"`
}

// StatusError is returned for every non-2xx response. It unwraps to the
// matching device sentinel, so callers can use errors.Is(err, device.ErrNotFound)
// across the wire.
type StatusError struct {
	Status  int
	Code    string
	Message string

	err error
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (%d): %s", e.err, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d %s): %s", e.err, e.Status, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.err }

// check converts a resty result into an error.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !resp.IsError() {
		return nil
	}

	body, _ := resp.Error().(*errorBody) //nolint:errcheck // nil when the body was not JSON
	if body == nil {
		body = &errorBody{}
	}
	if body.Message == "" {
		body.Message = statusText(resp.StatusCode())
	}
	return toError(resp.StatusCode(), body)
}

func toError(status int, body *errorBody) error {
	if status == http.StatusBadRequest && body.Code == codeValidation && len(body.Fields) > 0 {
		return &device.ValidationError{Fields: body.Fields}
	}

	se := &StatusError{Status: status, Code: body.Code, Message: body.Message}
	switch {
	case status == http.StatusBadRequest && body.Code == codeInvalidDeviceType:
		se.err = device.ErrInvalidDeviceType
	case status == http.StatusBadRequest:
		se.err = device.ErrValidation
	case status == http.StatusUnauthorized:
		se.err = ErrUnauthorized
	case status == http.StatusForbidden:
		se.err = ErrForbidden
	case status == http.StatusNotFound:
		se.err = device.ErrNotFound
	case status == http.StatusConflict && body.Code == codeVersionConflict:
		se.err = device.ErrConcurrencyConflict
	case status == http.StatusConflict:
		se.err = device.ErrDeviceExists
	case status == http.StatusUnprocessableEntity:
		se.err = device.ErrDeviceTypeUnknown
	case status >= http.StatusInternalServerError:
		se.err = device.ErrStorageUnavailable
	default:
		se.err = ErrUnexpectedStatus
	}
	return se
}
