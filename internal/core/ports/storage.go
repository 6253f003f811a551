package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// Storage keeps point-in-time snapshots of network records.
type Storage interface {
	// SaveNetworksBatch upserts the latest state of each network and appends a
	// history row per network.
	SaveNetworksBatch(ctx context.Context, networks []domain.TrackedNetwork) error

	// GetNetwork returns the last stored state of a network.
	GetNetwork(ctx context.Context, bssid domain.MAC) (*domain.TrackedNetwork, error)

	// GetAllNetworks returns the last stored state of every network.
	GetAllNetworks(ctx context.Context) ([]domain.TrackedNetwork, error)

	// History returns the snapshots of one network taken at or after since.
	History(ctx context.Context, bssid domain.MAC, since time.Time) ([]domain.NetworkSnapshot, error)

	// Close closes the storage connection.
	Close() error
}
