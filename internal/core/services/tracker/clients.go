package tracker

import (
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// trackClient updates the station record behind a data frame. Frames whose
// station side is the network itself, unset, or a group address are ignored.
func (t *Tracker) trackClient(net *domain.TrackedNetwork, f *domain.Frame, now time.Time) {
	station, dir := clientFor(f)
	if station.IsZero() || station.IsMulticast() || station == net.BSSID {
		return
	}

	key := domain.ClientKey{BSSID: net.BSSID, MAC: station}
	c, ok := t.clients[key]
	if !ok {
		c = domain.NewTrackedClient(key)
		c.Type = dir
		c.FirstSeen = now
		c.IP = net.IP
		t.clients[key] = c
	} else if c.Type != dir && c.Type != domain.ClientEstablished {
		// Seen both to and from the distribution system.
		if (c.Type == domain.ClientFromDS && dir == domain.ClientToDS) ||
			(c.Type == domain.ClientToDS && dir == domain.ClientFromDS) {
			c.Type = domain.ClientEstablished
		} else if c.Type == domain.ClientUnknown {
			c.Type = dir
		}
	}

	c.Dirty = true
	c.LastSeen = now
	c.DataPackets++
	if f.Encrypted {
		c.CryptPackets++
	}
	c.Datasize += int64(f.Length)

	if f.GPS != nil {
		c.GPS.Add(*f.GPS)
	}
	if f.Radio != nil {
		c.Signal.Add(*f.Radio, f.GPS)
		if rate := float64(f.Radio.DataRate) / 10; rate > c.MaxRate {
			c.MaxRate = rate
		}
	}
}
