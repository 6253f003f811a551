package domain

import (
	"bytes"
	"fmt"
	"net"
	"strings"
)

// MAC is a 6-octet hardware address. It is the key for every network and client
// record, so it is a comparable array rather than a net.HardwareAddr slice.
type MAC [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMAC parses a MAC address string.
// Supports formats: "XX:XX:XX:XX:XX:XX", "XX-XX-XX-XX-XX-XX", "XXXXXXXXXXXX"
func ParseMAC(s string) (MAC, error) {
	if s == "" {
		return MAC{}, ErrEmptyMAC
	}

	normalized := strings.ReplaceAll(s, "-", ":")
	if !strings.Contains(normalized, ":") && len(normalized) == 12 {
		parts := make([]string, 0, 6)
		for i := 0; i < len(normalized); i += 2 {
			parts = append(parts, normalized[i:i+2])
		}
		normalized = strings.Join(parts, ":")
	}

	hw, err := net.ParseMAC(normalized)
	if err != nil || len(hw) != len(MAC{}) {
		return MAC{}, &ValidationError{Field: "mac", Value: s, Err: ErrInvalidMAC}
	}

	var m MAC
	copy(m[:], hw)
	return m, nil
}

// MustParseMAC parses a MAC address and panics on error.
// Only use in tests or with known-valid input.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(fmt.Sprintf("invalid MAC address %q: %v", s, err))
	}
	return m
}

// MACFromHardwareAddr converts a decoded address. ok is false unless hw is 6 octets.
func MACFromHardwareAddr(hw net.HardwareAddr) (m MAC, ok bool) {
	if len(hw) != len(m) {
		return m, false
	}
	copy(m[:], hw)
	return m, true
}

// String returns the address as upper-case colon separated hex.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// HardwareAddr returns a copy as net.HardwareAddr.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

// IsZero reports whether every octet is zero.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// IsMulticast checks the group bit of the first octet.
func (m MAC) IsMulticast() bool {
	return m[0]&0x01 != 0
}

// Compare orders addresses byte-wise.
func (m MAC) Compare(other MAC) int {
	return bytes.Compare(m[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
