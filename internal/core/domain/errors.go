package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure cases
var (
	// ErrInvalidMAC indicates the MAC address format is invalid
	ErrInvalidMAC = errors.New("invalid MAC address format")

	// ErrEmptyMAC indicates an empty MAC address was provided
	ErrEmptyMAC = errors.New("empty MAC address")

	// ErrUnknownField is returned when a consumer asks for a field index outside
	// the protocol's field table.
	ErrUnknownField = errors.New("unknown field requested")

	// ErrUnknownProtocol is returned for a protocol name nobody registered.
	ErrUnknownProtocol = errors.New("unknown protocol")

	// ErrNetworkNotFound indicates no tracked network has the requested identity
	ErrNetworkNotFound = errors.New("network not found")
)

// ValidationError wraps validation errors with the invalid value
type ValidationError struct {
	Field string // Field that failed validation
	Value string // Invalid value
	Err   error  // Underlying error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
