package device

import (
	"errors"
	"strings"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrConcurrencyConflict) {
//	    // re-read and retry
//	}
var (
	// ErrNotFound is returned when no base row exists for an id.
	ErrNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an id that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDeviceType is returned for a missing or unrecognised type tag at creation.
	ErrInvalidDeviceType = errors.New("device: invalid device type")

	// ErrValidation is returned when a field violates its constraints.
	// The concrete error is a *ValidationError listing every failing field.
	ErrValidation = errors.New("device: validation failed")

	// ErrConcurrencyConflict is returned when an update's version token no
	// longer matches the stored one. The device may still exist.
	ErrConcurrencyConflict = errors.New("device: version token mismatch")

	// ErrCreationFailed is returned when the subtype insert fails after the
	// base insert. The transaction is rolled back.
	ErrCreationFailed = errors.New("device: creation failed")

	// ErrDeviceTypeUnknown is returned when a stored device has no subtype row.
	ErrDeviceTypeUnknown = errors.New("device: stored device has no subtype row")

	// ErrDataIntegrity is returned when a device has more than one subtype
	// row, or its subtype row vanished during an update.
	ErrDataIntegrity = errors.New("device: subtype rows inconsistent")

	// ErrStorageUnavailable wraps database and driver failures.
	ErrStorageUnavailable = errors.New("device: storage unavailable")
)

// FieldError describes one failing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every field failure found for a request.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// add records a failure for field.
func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns e when it holds failures, otherwise nil.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
