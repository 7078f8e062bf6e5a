package device

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxTextLength     = 255
	minBatteryPercent = 0
	maxBatteryPercent = 100
)

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return FieldError{Field: "name", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return FieldError{Field: "name", Message: fmt.Sprintf("exceeds %d characters", maxNameLength)}
	}
	return nil
}

// ValidateAttributes checks the variant fields of a device and returns a
// *ValidationError listing every failure, or nil.
func ValidateAttributes(a Attributes) error {
	v := &ValidationError{}
	validateAttributes(a, v)
	return v.orNil()
}

func validateAttributes(a Attributes, v *ValidationError) {
	switch a := a.(type) {
	case PersonalComputer:
		checkText(v, "operation_system", a.OperationSystem)
	case Embedded:
		checkText(v, "network_name", a.NetworkName)
		if a.IPAddress != nil {
			if _, err := netip.ParseAddr(strings.TrimSpace(*a.IPAddress)); err != nil {
				v.add("ip_address", fmt.Sprintf("%q is not a valid IPv4 or IPv6 address", *a.IPAddress))
			}
		}
	case Smartwatch:
		if a.BatteryPercentage < minBatteryPercent || a.BatteryPercentage > maxBatteryPercent {
			v.add("battery_percentage", fmt.Sprintf("must be between %d and %d, got %d",
				minBatteryPercent, maxBatteryPercent, a.BatteryPercentage))
		}
	case nil:
		v.add("device_type", "no attributes supplied")
	}
}

// checkText requires a non-blank value no longer than maxTextLength.
func checkText(v *ValidationError, field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.add(field, "is required")
	case utf8.RuneCountInString(value) > maxTextLength:
		v.add(field, fmt.Sprintf("exceeds %d characters", maxTextLength))
	}
}

// attributeFields is the union of variant fields carried by create and
// update requests.
type attributeFields struct {
	OperationSystem   *string
	IPAddress         *string
	NetworkName       *string
	BatteryPercentage *int
}

// buildAttributes assembles the attributes for kind from the request fields,
// recording missing required fields in v. Fields of other kinds are ignored.
func buildAttributes(kind Kind, f attributeFields, v *ValidationError) Attributes {
	switch kind {
	case KindPersonalComputer:
		if f.OperationSystem == nil {
			v.add("operation_system", "is required for PersonalComputer")
			return nil
		}
		return PersonalComputer{OperationSystem: strings.TrimSpace(*f.OperationSystem)}

	case KindEmbedded:
		if f.NetworkName == nil {
			v.add("network_name", "is required for Embedded")
			return nil
		}
		e := Embedded{NetworkName: strings.TrimSpace(*f.NetworkName)}
		if f.IPAddress != nil && strings.TrimSpace(*f.IPAddress) != "" {
			ip := strings.TrimSpace(*f.IPAddress)
			e.IPAddress = &ip
		}
		return e

	case KindSmartwatch:
		if f.BatteryPercentage == nil {
			v.add("battery_percentage", "is required for Smartwatch")
			return nil
		}
		return Smartwatch{BatteryPercentage: *f.BatteryPercentage}
	}

	v.add("device_type", fmt.Sprintf("%q has no attributes", kind))
	return nil
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}

// newVersionToken returns 16 fresh random bytes.
func newVersionToken() []byte {
	id := uuid.New()
	return id[:]
}
