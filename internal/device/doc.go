// Package device implements polymorphic device persistence.
//
// A device is a base row (id, name, enabled flag, version token) plus exactly
// one subtype row holding the fields of its kind: PersonalComputer, Embedded
// or Smartwatch. SQLStore reads and writes both rows transactionally;
// Coordinator validates requests, orchestrates the store and projects records
// into the flattened Details and Summary views.
//
// # Optimistic concurrency
//
// Every successful update replaces the version token. Callers send back the
// token they last read; the store swaps it with a single conditional
// UPDATE ... RETURNING statement, so a stale token yields
// ErrConcurrencyConflict and never a lost update. Retrying is the caller's
// decision.
//
// # Errors
//
// All failures match one of the sentinels in errors.go under errors.Is.
// Driver failures wrap ErrStorageUnavailable and keep the original cause.
//
// # Events
//
// After a mutation commits, the Coordinator emits an Event to its Notifier
// (WebSocket hub, MQTT, InfluxDB). Delivery failures are logged only.
package device
