package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Coordinator orchestrates device operations over a Store and shapes results
// into the client-facing Details and Summary views. It holds no mutable
// state of its own; each call relies on the store's transactions.
type Coordinator struct {
	store    Store
	logger   Logger
	notifier Notifier
	observer Observer
	now      func() time.Time
}

// NewCoordinator creates a Coordinator over store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:    store,
		logger:   noopLogger{},
		notifier: Notifiers(nil),
		observer: noopObserver{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetNotifier sets the receiver of committed mutation events.
func (c *Coordinator) SetNotifier(n Notifier) {
	if n != nil {
		c.notifier = n
	}
}

// SetObserver sets the operation metrics sink.
func (c *Coordinator) SetObserver(o Observer) {
	if o != nil {
		c.observer = o
	}
}

// Create validates req and stores a new device with a generated id.
// IsEnabled defaults to true when omitted.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (details *Details, err error) {
	defer c.observe(OpCreate, time.Now(), &err)

	kind, err := ParseKind(req.DeviceType)
	if err != nil {
		return nil, err
	}

	v := &ValidationError{}
	checkName(v, req.Name)
	attrs := buildAttributes(kind, fieldsOf(req.OperationSystem, req.IPAddress, req.NetworkName, req.BatteryPercentage), v)
	if attrs != nil {
		validateAttributes(attrs, v)
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	rec, err := c.store.CreateDevice(ctx, Device{
		ID:        GenerateID(),
		Name:      strings.TrimSpace(req.Name),
		IsEnabled: enabled,
	}, attrs)
	if err != nil {
		c.logFailure(OpCreate, "", err)
		return nil, err
	}

	c.logger.Info("device created", "device_id", rec.ID, "device_type", string(rec.Kind))
	c.notify(ctx, eventFromRecord(EventCreated, rec, c.now()))

	d := project(rec)
	return &d, nil
}

// Update replaces the mutable fields of device id if req.VersionToken still
// matches, returning the new token. The device type cannot be changed.
func (c *Coordinator) Update(ctx context.Context, id string, req UpdateRequest) (token []byte, err error) {
	defer c.observe(OpUpdate, time.Now(), &err)

	v := &ValidationError{}
	checkName(v, req.Name)
	if len(req.VersionToken) == 0 {
		v.add("version_token", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	// Attribute requirements depend on the stored type.
	current, err := c.store.FetchByID(ctx, id)
	if err != nil {
		c.logFailure(OpUpdate, id, err)
		return nil, err
	}
	if current.Kind == KindUnknown {
		return nil, fmt.Errorf("%w: %s", ErrDeviceTypeUnknown, id)
	}

	attrs := buildAttributes(current.Kind, fieldsOf(req.OperationSystem, req.IPAddress, req.NetworkName, req.BatteryPercentage), v)
	if attrs != nil {
		validateAttributes(attrs, v)
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	updated := Device{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		IsEnabled: req.IsEnabled,
	}
	token, err = c.store.UpdateDevice(ctx, id, updated, req.VersionToken, attrs)
	if err != nil {
		c.logFailure(OpUpdate, id, err)
		return nil, err
	}

	c.logger.Debug("device updated", "device_id", id)
	c.notify(ctx, eventFromRecord(EventUpdated, &Record{Device: updated, Kind: current.Kind}, c.now()))
	return token, nil
}

// GetByID returns the full view of one device.
func (c *Coordinator) GetByID(ctx context.Context, id string) (details *Details, err error) {
	defer c.observe(OpGet, time.Now(), &err)

	rec, err := c.store.FetchByID(ctx, id)
	if err != nil {
		c.logFailure(OpGet, id, err)
		return nil, err
	}
	if rec.Kind == KindUnknown {
		c.logger.Warn("device has no subtype row", "device_id", id)
		return nil, fmt.Errorf("%w: %s", ErrDeviceTypeUnknown, id)
	}

	d := project(rec)
	return &d, nil
}

// ListShort returns id, name and enabled flag of every device ordered by name.
func (c *Coordinator) ListShort(ctx context.Context) (summaries []Summary, err error) {
	defer c.observe(OpListShort, time.Now(), &err)

	devices, err := c.store.FetchAll(ctx)
	if err != nil {
		c.logFailure(OpListShort, "", err)
		return nil, err
	}

	summaries = make([]Summary, 0, len(devices))
	for _, d := range devices {
		summaries = append(summaries, summarise(d))
	}
	return summaries, nil
}

// ListDetailed returns the full view of every device ordered by name,
// reading each device in turn. Devices deleted between the listing and
// their detail read are skipped. Devices without a subtype row are included
// with DeviceType Unknown; devices with conflicting subtype rows are skipped.
func (c *Coordinator) ListDetailed(ctx context.Context) (list []Details, err error) {
	defer c.observe(OpListDetailed, time.Now(), &err)

	devices, err := c.store.FetchAll(ctx)
	if err != nil {
		c.logFailure(OpListDetailed, "", err)
		return nil, err
	}

	list = make([]Details, 0, len(devices))
	for _, d := range devices {
		rec, err := c.store.FetchByID(ctx, d.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			c.logger.Debug("device removed during listing", "device_id", d.ID)
			continue
		case errors.Is(err, ErrDataIntegrity):
			c.logger.Error("skipping device with inconsistent subtype rows", "device_id", d.ID, "error", err)
			continue
		case err != nil:
			c.logFailure(OpListDetailed, d.ID, err)
			return nil, err
		}

		if rec.Kind == KindUnknown {
			c.logger.Warn("device has no subtype row", "device_id", d.ID)
		}
		list = append(list, project(rec))
	}
	return list, nil
}

// Count tallies stored devices by type, including those ListDetailed skips.
func (c *Coordinator) Count(ctx context.Context) (counts *Counts, err error) {
	defer c.observe(OpCount, time.Now(), &err)

	counts, err = c.store.CountDevices(ctx)
	if err != nil {
		c.logFailure(OpCount, "", err)
		return nil, err
	}
	if counts.Inconsistent > 0 {
		c.logger.Warn("devices with inconsistent subtype rows", "count", counts.Inconsistent)
	}
	return counts, nil
}

// Delete removes device id, reporting whether it existed.
func (c *Coordinator) Delete(ctx context.Context, id string) (deleted bool, err error) {
	defer c.observe(OpDelete, time.Now(), &err)

	exists, err := c.store.Exists(ctx, id)
	if err != nil {
		c.logFailure(OpDelete, id, err)
		return false, err
	}
	if !exists {
		return false, nil
	}

	deleted, err = c.store.DeleteDevice(ctx, id)
	if err != nil {
		c.logFailure(OpDelete, id, err)
		return false, err
	}

	if deleted {
		c.logger.Info("device deleted", "device_id", id)
		c.notify(ctx, Event{Type: EventDeleted, DeviceID: id, Timestamp: c.now()})
	}
	return deleted, nil
}

// notify delivers e detached from the request's cancellation, since the
// mutation has already committed.
func (c *Coordinator) notify(ctx context.Context, e Event) {
	if err := c.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("device event delivery failed", "event", string(e.Type), "device_id", e.DeviceID, "error", err)
	}
}

func (c *Coordinator) observe(op Operation, start time.Time, err *error) {
	c.observer.ObserveOperation(op, Outcome(*err), time.Since(start))
}

// logFailure logs storage and integrity failures at error level. Client
// errors (not found, conflict, validation) are left to the caller.
func (c *Coordinator) logFailure(op Operation, id string, err error) {
	switch {
	case errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrCreationFailed), errors.Is(err, ErrDataIntegrity):
		c.logger.Error("device operation failed", "operation", string(op), "device_id", id, "error", err)
	case errors.Is(err, ErrConcurrencyConflict):
		c.logger.Debug("stale version token", "operation", string(op), "device_id", id)
	}
}

// checkName records a name failure in v.
func checkName(v *ValidationError, name string) {
	var fe FieldError
	if err := ValidateName(name); errors.As(err, &fe) {
		v.Fields = append(v.Fields, fe)
	}
}

func fieldsOf(os, ip, network *string, battery *int) attributeFields {
	return attributeFields{
		OperationSystem:   os,
		IPAddress:         ip,
		NetworkName:       network,
		BatteryPercentage: battery,
	}
}
