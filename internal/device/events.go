package device

import (
	"context"
	"errors"
	"time"
)

// Logger defines the logging interface used by the Coordinator.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventType names a committed device mutation.
type EventType string

// Event types, also used as WebSocket channels and InfluxDB tags.
const (
	EventCreated EventType = "device.created"
	EventUpdated EventType = "device.updated"
	EventDeleted EventType = "device.deleted"
)

// Event describes a mutation after its transaction committed.
type Event struct {
	Type       EventType `json:"type"`
	DeviceID   string    `json:"device_id"`
	DeviceType Kind      `json:"device_type,omitempty"`
	Name       string    `json:"name,omitempty"`
	IsEnabled  bool      `json:"is_enabled"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives device events. Notify must not block for long; a
// returned error is logged by the Coordinator and never undoes the mutation.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

// Notify calls f(ctx, e).
func (f NotifierFunc) Notify(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Notifiers fans an event out to every member, joining their errors.
type Notifiers []Notifier

// Notify delivers e to each notifier in order.
func (ns Notifiers) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func eventFromRecord(t EventType, r *Record, at time.Time) Event {
	return Event{
		Type:       t,
		DeviceID:   r.ID,
		DeviceType: r.Kind,
		Name:       r.Name,
		IsEnabled:  r.IsEnabled,
		Timestamp:  at,
	}
}
