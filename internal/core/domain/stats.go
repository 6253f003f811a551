package domain

import (
	"time"
)

// SystemStats is an aggregated view over the tracking table.
type SystemStats struct {
	NetworkCount   int `json:"network_count"`
	ClientCount    int `json:"client_count"`
	CloakedCount   int `json:"cloaked_count"`
	DecloakedCount int `json:"decloaked_count"`

	// Distributions
	TypeStats    map[string]int `json:"type_stats"`    // ap, adhoc, probe
	ChannelUsage map[int]int    `json:"channel_usage"` // channel -> networks
	WEPCount     int            `json:"wep_count"`

	LastUpdated time.Time `json:"updated_at"`
}

// NewSystemStats initializes a new stats object with empty maps to prevent nil access.
func NewSystemStats() SystemStats {
	return SystemStats{
		TypeStats:    make(map[string]int),
		ChannelUsage: make(map[int]int),
		LastUpdated:  time.Now(),
	}
}

// ComputeStats builds stats from network and client snapshots.
func ComputeStats(networks []TrackedNetwork, clients []TrackedClient) SystemStats {
	s := NewSystemStats()
	s.NetworkCount = len(networks)
	s.ClientCount = len(clients)
	for _, n := range networks {
		s.TypeStats[n.Type.String()]++
		if n.Channel > 0 {
			s.ChannelUsage[n.Channel]++
		}
		if n.Cloaked {
			s.CloakedCount++
			if n.Uncloaked {
				s.DecloakedCount++
			}
		}
		if n.Crypt.Has(CryptWEP) {
			s.WEPCount++
		}
	}
	return s
}

