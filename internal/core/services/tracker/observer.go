package tracker

import (
	"context"
	"sync"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// NetworkObserver is notified when networks enter or leave the table.
// Callbacks run on the tracker's goroutine after the table lock is released;
// implementations must not block.
type NetworkObserver interface {
	OnNetworkAdded(ctx context.Context, network domain.TrackedNetwork)
	OnNetworkRemoved(ctx context.Context, bssid domain.MAC)
}

// Subject manages observers and notifies them of events.
type Subject struct {
	observers []NetworkObserver
	mu        sync.RWMutex
}

// NewSubject creates a new subject.
func NewSubject() *Subject {
	return &Subject{
		observers: make([]NetworkObserver, 0),
	}
}

// AddObserver registers a new observer.
func (s *Subject) AddObserver(observer NetworkObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// NotifyAdded notifies all observers of a new network.
func (s *Subject) NotifyAdded(ctx context.Context, network domain.TrackedNetwork) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnNetworkAdded(ctx, network)
	}
}

// NotifyRemoved notifies all observers that a network was pruned.
func (s *Subject) NotifyRemoved(ctx context.Context, bssid domain.MAC) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnNetworkRemoved(ctx, bssid)
	}
}
