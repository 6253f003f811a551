package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// FlatRecord is a record pre-rendered into one string per field table entry.
type FlatRecord []string

// Serialize echoes the requested fields verbatim. Any index outside the
// record fails the whole call with domain.ErrUnknownField.
func (r FlatRecord) Serialize(fields []int) (string, error) {
	out := make([]string, 0, len(fields))
	for _, fnum := range fields {
		if fnum < 0 || fnum >= len(r) {
			return "", fmt.Errorf("%w: %d", domain.ErrUnknownField, fnum)
		}
		out = append(out, r[fnum])
	}
	return strings.Join(out, " "), nil
}

// ClientToData flattens a client into CLIENT field table order. Fields the
// tracker does not compute render as fixed placeholders.
func ClientToData(c *domain.TrackedClient) FlatRecord {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	d := strconv.Itoa

	return FlatRecord{
		c.BSSID.String(),
		c.MAC.String(),
		d(int(c.Type)),
		strconv.FormatInt(c.FirstSeen.Unix(), 10),
		strconv.FormatInt(c.LastSeen.Unix(), 10),
		"00:00:00:00:00:00", // manufkey
		"0",                 // manufscore
		d(c.DataPackets),
		d(c.CryptPackets),
		d(c.WeakPackets),
		boolDigit(c.GPS.Valid),
		f(c.GPS.MinLat),
		f(c.GPS.MinLon),
		f(c.GPS.MinAlt),
		f(c.GPS.MinSpeed),
		f(c.GPS.MaxLat),
		f(c.GPS.MaxLon),
		f(c.GPS.MaxAlt),
		f(c.GPS.MaxSpeed),
		f(c.GPS.AggLat),
		f(c.GPS.AggLon),
		f(c.GPS.AggAlt),
		strconv.FormatInt(c.GPS.AggPoints, 10),
		strconv.FormatFloat(c.MaxRate, 'f', 1, 64),
		"0", // quality
		d(c.Signal.LastSignal),
		d(c.Signal.LastNoise),
		"0", // bestquality
		d(c.Signal.MaxSignal),
		d(c.Signal.MaxNoise),
		f(c.Signal.PeakLat),
		f(c.Signal.PeakLon),
		f(c.Signal.PeakAlt),
		d(int(c.IP.Type)),
		c.IP.Block.String(),
		strconv.FormatInt(c.Datasize, 10),
		d(c.Signal.MinSeenRate),
		strconv.FormatUint(uint64(c.Signal.Encodings), 10),
		d(c.Decrypted),
		"0", // wep
	}
}

// RemoveToData is the single pre-rendered REMOVE value for a network.
func RemoveToData(bssid domain.MAC) string {
	return bssid.String()
}

// SerializeRemove echoes the pre-rendered value unconditionally.
func SerializeRemove(data string, _ []int) (string, error) {
	return data, nil
}

// NoticeToData flattens a notice into STATUS field table order.
func NoticeToData(n domain.Notice) FlatRecord {
	return FlatRecord{wrap(n.Text), strconv.Itoa(int(n.Severity))}
}
