package device

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies which subtype table holds a device's variant fields.
// The kind of a device is fixed at creation.
type Kind string

// Device kinds.
const (
	KindPersonalComputer Kind = "PersonalComputer"
	KindEmbedded         Kind = "Embedded"
	KindSmartwatch       Kind = "Smartwatch"

	// KindUnknown marks a stored device with no subtype row.
	KindUnknown Kind = "Unknown"
)

// AllKinds returns the kinds a device can be created with.
func AllKinds() []Kind {
	return []Kind{KindPersonalComputer, KindEmbedded, KindSmartwatch}
}

// ParseKind resolves a type tag case-insensitively.
// Returns ErrInvalidDeviceType for empty or unrecognised tags.
func ParseKind(tag string) (Kind, error) {
	t := strings.TrimSpace(tag)
	for _, k := range AllKinds() {
		if strings.EqualFold(t, string(k)) {
			return k, nil
		}
	}
	if t == "" {
		return "", fmt.Errorf("%w: device_type is required", ErrInvalidDeviceType)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDeviceType, t)
}

// IsValid reports whether k is one of the creatable kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindPersonalComputer, KindEmbedded, KindSmartwatch:
		return true
	}
	return false
}

// Attributes holds the variant-specific fields of a device.
// The set of implementations is closed: PersonalComputer, Embedded and Smartwatch.
type Attributes interface {
	Kind() Kind
	isAttributes()
}

// PersonalComputer is the subtype for desktop and laptop machines.
type PersonalComputer struct {
	OperationSystem string
}

// Embedded is the subtype for network-attached embedded boards.
type Embedded struct {
	// IPAddress is optional; when set it must be a literal IPv4 or IPv6 address.
	IPAddress   *string
	NetworkName string
}

// Smartwatch is the subtype for wearables.
type Smartwatch struct {
	BatteryPercentage int
}

func (PersonalComputer) Kind() Kind { return KindPersonalComputer }
func (Embedded) Kind() Kind         { return KindEmbedded }
func (Smartwatch) Kind() Kind       { return KindSmartwatch }

func (PersonalComputer) isAttributes() {}
func (Embedded) isAttributes()         {}
func (Smartwatch) isAttributes()       {}

// Device holds the base-table fields shared by every kind.
type Device struct {
	ID        string
	Name      string
	IsEnabled bool

	// VersionToken changes on every successful update. Callers echo the
	// token they last read; a mismatch is a concurrency conflict.
	VersionToken []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is a device joined with its subtype row.
// Attributes is nil when Kind is KindUnknown.
type Record struct {
	Device
	Kind       Kind
	Attributes Attributes
}

// Details is the flattened client-facing view of a device. Only the fields
// belonging to DeviceType are populated.
type Details struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IsEnabled    bool      `json:"is_enabled"`
	DeviceType   Kind      `json:"device_type"`
	VersionToken []byte    `json:"version_token"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	OperationSystem   *string `json:"operation_system,omitempty"`
	IPAddress         *string `json:"ip_address,omitempty"`
	NetworkName       *string `json:"network_name,omitempty"`
	BatteryPercentage *int    `json:"battery_percentage,omitempty"`
}

// Summary is the short listing view of a device.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsEnabled bool   `json:"is_enabled"`
}

// CreateRequest carries the fields for a new device. Only the fields of the
// requested DeviceType are read.
type CreateRequest struct {
	Name       string `json:"name"`
	IsEnabled  *bool  `json:"is_enabled,omitempty"`
	DeviceType string `json:"device_type"`

	OperationSystem   *string `json:"operation_system,omitempty"`
	IPAddress         *string `json:"ip_address,omitempty"`
	NetworkName       *string `json:"network_name,omitempty"`
	BatteryPercentage *int    `json:"battery_percentage,omitempty"`
}

// UpdateRequest replaces a device's mutable fields. The device type cannot
// change; fields for other types are ignored.
type UpdateRequest struct {
	Name         string `json:"name"`
	IsEnabled    bool   `json:"is_enabled"`
	VersionToken []byte `json:"version_token"`

	OperationSystem   *string `json:"operation_system,omitempty"`
	IPAddress         *string `json:"ip_address,omitempty"`
	NetworkName       *string `json:"network_name,omitempty"`
	BatteryPercentage *int    `json:"battery_percentage,omitempty"`
}

// project flattens a record into its client-facing view.
func project(r *Record) Details {
	d := Details{
		ID:           r.ID,
		Name:         r.Name,
		IsEnabled:    r.IsEnabled,
		DeviceType:   r.Kind,
		VersionToken: r.VersionToken,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	switch a := r.Attributes.(type) {
	case PersonalComputer:
		d.OperationSystem = &a.OperationSystem
	case Embedded:
		d.IPAddress = a.IPAddress
		d.NetworkName = &a.NetworkName
	case Smartwatch:
		d.BatteryPercentage = &a.BatteryPercentage
	}
	return d
}

// summarise reduces a device to its listing view.
func summarise(d Device) Summary {
	return Summary{ID: d.ID, Name: d.Name, IsEnabled: d.IsEnabled}
}
