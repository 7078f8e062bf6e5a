package device

import (
	"errors"
	"time"
)

// Operation names a Coordinator entry point for metrics.
type Operation string

// Coordinator operations.
const (
	OpCreate       Operation = "create"
	OpUpdate       Operation = "update"
	OpGet          Operation = "get"
	OpListShort    Operation = "list_short"
	OpListDetailed Operation = "list_detailed"
	OpDelete       Operation = "delete"
	OpCount        Operation = "count"
)

// Observer records the outcome and latency of every Coordinator call.
type Observer interface {
	ObserveOperation(op Operation, outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(Operation, string, time.Duration) {}

// Outcome classifies err into a short, bounded label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidDeviceType):
		return "invalid_type"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, ErrDeviceExists):
		return "exists"
	case errors.Is(err, ErrCreationFailed):
		return "creation_failed"
	case errors.Is(err, ErrDeviceTypeUnknown):
		return "type_unknown"
	case errors.Is(err, ErrDataIntegrity):
		return "integrity"
	default:
		return "storage_error"
	}
}
