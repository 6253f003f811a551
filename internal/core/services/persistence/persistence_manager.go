package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

// PersistenceManager batches network snapshots into storage off the engine
// goroutine.
type PersistenceManager struct {
	storage     ports.Storage
	persistChan chan domain.TrackedNetwork
	batchSize   int
	interval    time.Duration
	enabled     bool
	dropped     int
	mu          sync.RWMutex
	done        chan struct{}
}

// NewPersistenceManager creates a new manager.
func NewPersistenceManager(storage ports.Storage, bufferSize int, interval time.Duration) *PersistenceManager {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PersistenceManager{
		storage:     storage,
		persistChan: make(chan domain.TrackedNetwork, bufferSize),
		batchSize:   100,
		interval:    interval,
		enabled:     storage != nil,
		done:        make(chan struct{}),
	}
}

// Persist queues networks for the next batch. It never blocks; when the queue
// is full the snapshot is dropped and counted.
func (p *PersistenceManager) Persist(networks ...domain.TrackedNetwork) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	for _, n := range networks {
		select {
		case p.persistChan <- n:
		default:
			p.dropped++
		}
	}
}

// Dropped returns how many snapshots were discarded on a full queue.
func (p *PersistenceManager) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// IsEnabled returns the current persistence status.
func (p *PersistenceManager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles the persistence logic. It has no effect without storage.
func (p *PersistenceManager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled && p.storage != nil
}

// Start begins the persistence loop. The buffer is flushed once more when ctx
// is cancelled; Wait blocks until that has happened.
func (p *PersistenceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	buffer := make(map[domain.MAC]domain.TrackedNetwork)

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.drain(buffer)
				// the parent context is gone, give the final write its own
				p.flushBuffer(context.WithoutCancel(ctx), buffer)
				return
			case n := <-p.persistChan:
				buffer[n.BSSID] = n
				if len(buffer) >= p.batchSize {
					p.flushBuffer(ctx, buffer)
					buffer = make(map[domain.MAC]domain.TrackedNetwork)
				}
			case <-ticker.C:
				if len(buffer) > 0 {
					p.flushBuffer(ctx, buffer)
					buffer = make(map[domain.MAC]domain.TrackedNetwork)
				}
			}
		}
	}()
}

// Wait blocks until a started loop has exited.
func (p *PersistenceManager) Wait() {
	<-p.done
}

func (p *PersistenceManager) drain(buffer map[domain.MAC]domain.TrackedNetwork) {
	for {
		select {
		case n := <-p.persistChan:
			buffer[n.BSSID] = n
		default:
			return
		}
	}
}

func (p *PersistenceManager) flushBuffer(ctx context.Context, buffer map[domain.MAC]domain.TrackedNetwork) {
	if len(buffer) == 0 || p.storage == nil {
		return
	}
	networks := make([]domain.TrackedNetwork, 0, len(buffer))
	for _, n := range buffer {
		networks = append(networks, n)
	}
	if err := p.storage.SaveNetworksBatch(ctx, networks); err != nil {
		slog.Error("Failed to batch save networks", "count", len(networks), "error", err)
	}
}
