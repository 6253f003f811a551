package ie

import (
	"bytes"
	"errors"
	"strings"
)

// Common IE Tags
const (
	TagSSID           = 0
	TagSupportedRates = 1
	TagDSParameterSet = 3
	TagExtendedRates  = 50
	TagCiscoCCX1      = 133
)

// Errors
var (
	ErrIENotFound = errors.New("information element not found")
)

// SSID is the network name carried by a management frame. Blank is set when
// the element is present but empty or all NUL, which is how cloaked networks
// advertise.
type SSID struct {
	Value string
	Blank bool
}

// IterateIEs calls the provided callback for each valid IE found in the data.
// It stops at the first element whose length runs past the buffer.
func IterateIEs(data []byte, callback func(id int, data []byte)) {
	offset := 0
	limit := len(data)

	for offset+2 <= limit {
		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2

		if offset+length > limit {
			break
		}

		callback(id, data[offset:offset+length])
		offset += length
	}
}

// FindIE returns the data of the first IE with the given ID, nil if absent.
func FindIE(data []byte, targetID int) []byte {
	var result []byte
	found := false
	IterateIEs(data, func(id int, val []byte) {
		if !found && id == targetID {
			result = val
			found = true
		}
	})
	if found && result == nil {
		result = []byte{}
	}
	return result
}

// ParseSSID extracts the SSID element. ok is false when the frame has none.
func ParseSSID(data []byte) (ssid SSID, ok bool) {
	val := FindIE(data, TagSSID)
	if val == nil {
		return SSID{}, false
	}
	if len(bytes.Trim(val, "\x00")) == 0 {
		return SSID{Blank: true}, true
	}
	return SSID{Value: safeString(val)}, true
}

// ParseChannel extracts the channel from the DS Parameter Set (Tag 3).
func ParseChannel(data []byte) (int, error) {
	val := FindIE(data, TagDSParameterSet)
	if len(val) >= 1 {
		return int(val[0]), nil
	}
	return 0, ErrIENotFound
}

// ParseMaxRate returns the highest rate in Mbps across the supported and
// extended rate sets. Rates are encoded in 500kbps units with the high bit
// marking basic rates.
func ParseMaxRate(data []byte) float64 {
	var best float64
	IterateIEs(data, func(id int, val []byte) {
		if id != TagSupportedRates && id != TagExtendedRates {
			return
		}
		for _, r := range val {
			rate := float64(r&0x7F) / 2
			if rate > best {
				best = rate
			}
		}
	})
	return best
}

// ParseBeaconInfo returns the device name from a Cisco CCX1 element, empty
// when the frame has none. The name is a NUL padded 16 byte field at offset 10.
func ParseBeaconInfo(data []byte) string {
	val := FindIE(data, TagCiscoCCX1)
	if len(val) < 11 {
		return ""
	}
	name := val[10:min(len(val), 26)]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(safeString(name))
}

// safeString drops bytes that would break line oriented output.
func safeString(b []byte) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7F {
			return -1
		}
		return r
	}, string(b))
}
