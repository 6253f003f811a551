package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// busyRetries bounds how often a batch is retried while another connection
// holds the write lock.
const busyRetries = 3

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db      *gorm.DB
	backoff time.Duration
}

// NetworkModel is the latest stored state of one network.
type NetworkModel struct {
	BSSID      string `gorm:"primaryKey"`
	Type       int
	SSID       string
	Cloaked    bool
	Uncloaked  bool
	BeaconInfo string
	Channel    int
	BeaconRate int
	MaxRate    float64
	Crypt      uint32

	LLCPackets   int
	DataPackets  int
	CryptPackets int
	WeakPackets  int
	DupeIVs      int
	Decrypted    int
	Datasize     int64

	Signal domain.SignalStats `gorm:"embedded;embeddedPrefix:sig_"`
	GPS    domain.GPSExtent   `gorm:"embedded;embeddedPrefix:gps_"`

	IPType    int
	IPBlock   string
	IPNetmask string
	IPGateway string

	FirstSeen time.Time
	LastSeen  time.Time
}

// SnapshotModel is one history row, appended on every batch save.
type SnapshotModel struct {
	ID           uint   `gorm:"primaryKey"`
	BSSID        string `gorm:"index"`
	TakenAt      time.Time
	SSID         string
	Channel      int
	LastSignal   int
	MaxSignal    int
	LLCPackets   int
	DataPackets  int
	CryptPackets int
	Lat          float64
	Lon          float64
}

// NewSQLiteAdapter initializes the database, installs the tracing plugin and
// migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing plugin: %w", err)
	}

	return newAdapter(db)
}

func newAdapter(db *gorm.DB) (*SQLiteAdapter, error) {
	if err := db.AutoMigrate(&NetworkModel{}, &SnapshotModel{}); err != nil {
		return nil, err
	}

	// Create Indices for Performance
	db.Exec("CREATE INDEX IF NOT EXISTS idx_networks_last_seen ON network_models(last_seen)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_networks_ssid ON network_models(ssid)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshot_models(taken_at)")

	return &SQLiteAdapter{db: db, backoff: 50 * time.Millisecond}, nil
}

// SaveNetworksBatch upserts every network and appends one snapshot per
// network in a single transaction.
func (a *SQLiteAdapter) SaveNetworksBatch(ctx context.Context, networks []domain.TrackedNetwork) error {
	if len(networks) == 0 {
		return nil
	}

	now := time.Now()
	models := make([]NetworkModel, len(networks))
	snapshots := make([]SnapshotModel, len(networks))
	for i, n := range networks {
		models[i] = toModel(n)
		snapshots[i] = toSnapshotModel(n, now)
	}

	return a.retryBusy(ctx, func() error {
		return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				UpdateAll: true,
			}).CreateInBatches(models, 100).Error; err != nil {
				return err
			}
			return tx.CreateInBatches(snapshots, 100).Error
		})
	})
}

// retryBusy reruns op while SQLite reports the database busy or locked.
func (a *SQLiteAdapter) retryBusy(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if err = op(); err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.backoff << attempt):
		}
	}
	return fmt.Errorf("database still busy after %d retries: %w", busyRetries, err)
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

// GetNetwork retrieves a network by BSSID.
func (a *SQLiteAdapter) GetNetwork(ctx context.Context, bssid domain.MAC) (*domain.TrackedNetwork, error) {
	var model NetworkModel
	err := a.db.WithContext(ctx).First(&model, "bssid = ?", bssid.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNetworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(model)
}

// GetAllNetworks retrieves all networks ordered by BSSID.
func (a *SQLiteAdapter) GetAllNetworks(ctx context.Context) ([]domain.TrackedNetwork, error) {
	var models []NetworkModel
	if err := a.db.WithContext(ctx).Order("bssid").Find(&models).Error; err != nil {
		return nil, err
	}

	networks := make([]domain.TrackedNetwork, 0, len(models))
	for _, m := range models {
		n, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		networks = append(networks, *n)
	}
	return networks, nil
}

// History returns the snapshots of one network taken at or after since,
// oldest first.
func (a *SQLiteAdapter) History(ctx context.Context, bssid domain.MAC, since time.Time) ([]domain.NetworkSnapshot, error) {
	var models []SnapshotModel
	err := a.db.WithContext(ctx).
		Where("bssid = ? AND taken_at >= ?", bssid.String(), since).
		Order("taken_at, id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.NetworkSnapshot, 0, len(models))
	for _, m := range models {
		s, err := toSnapshot(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// PruneHistory deletes snapshots older than before and reports how many went.
func (a *SQLiteAdapter) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	res := a.db.WithContext(ctx).Where("taken_at < ?", before).Delete(&SnapshotModel{})
	return res.RowsAffected, res.Error
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.Storage = (*SQLiteAdapter)(nil)
