package device

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound means no device profile matched the requested id
	ErrNotFound = errors.New("device not found")
)

// ConfigError means the stored device profile cannot produce a usable
// client. No network call is attempted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "device configuration: " + e.Reason
}

// DeviceError means the device itself rejected a command. Status carries the
// device-reported HTTP status for REST devices, 0 for legacy devices.
type DeviceError struct {
	Status  int
	Message string
}

func (e *DeviceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("device error %d: %s", e.Status, e.Message)
	}
	return "device error: " + e.Message
}

// TranslationError means the generic proxy input cannot be mapped onto a
// valid device call. Rejected before any network traffic.
type TranslationError struct {
	Reason string
}

func (e *TranslationError) Error() string {
	return "cannot translate request: " + e.Reason
}
