package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// Tracker owns the network/client tracking table. ProcessFrame is the only
// mutating path besides Prune and DrainDirty; everything else returns copies.
type Tracker interface {
	// ProcessFrame folds one classified frame into the table and reports whether
	// it was accepted for tracking.
	ProcessFrame(ctx context.Context, frame domain.Frame) bool

	// Network returns a snapshot of one network record.
	Network(bssid domain.MAC) (domain.TrackedNetwork, bool)

	// Networks returns snapshots of every tracked network ordered by BSSID.
	Networks() []domain.TrackedNetwork

	// Clients returns snapshots of every tracked client.
	Clients() []domain.TrackedClient

	// DrainDirty returns snapshots of every dirty record and clears the flag.
	DrainDirty() ([]domain.TrackedNetwork, []domain.TrackedClient)

	// Prune removes networks idle for longer than ttl and returns their BSSIDs.
	Prune(ctx context.Context, ttl time.Duration) []domain.MAC

	// Count returns the number of tracked networks.
	Count() int
}

// SSIDCache is the in-memory side of the resolved-SSID cache.
type SSIDCache interface {
	Lookup(bssid domain.MAC) (string, bool)
	Set(bssid domain.MAC, ssid string)
}

// IPCache is the in-memory side of the inferred-addressing cache.
type IPCache interface {
	Lookup(bssid domain.MAC) (domain.IPData, bool)
}
