package geo

import (
	"sync"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// StaticProvider reports a fixed position, for stationary sensors without a
// GPS receiver.
type StaticProvider struct {
	Lat float64
	Lng float64
	Alt float64
}

// NewStaticProvider creates a provider that always returns the same location.
func NewStaticProvider(lat, lng, alt float64) *StaticProvider {
	return &StaticProvider{
		Lat: lat,
		Lng: lng,
		Alt: alt,
	}
}

// Fix returns the fixed location with zero speed.
func (s *StaticProvider) Fix() (domain.GPSSample, bool) {
	return domain.GPSSample{Lat: s.Lat, Lon: s.Lng, Alt: s.Alt}, true
}

// ManualProvider holds the last fix pushed by an operator or an external
// feed. It has no fix until the first Update.
type ManualProvider struct {
	mu  sync.RWMutex
	fix domain.GPSSample
	ok  bool
}

// Update replaces the current fix.
func (m *ManualProvider) Update(fix domain.GPSSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fix = fix
	m.ok = true
}

// Clear drops the current fix.
func (m *ManualProvider) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ok = false
}

// Fix returns the last pushed position.
func (m *ManualProvider) Fix() (domain.GPSSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fix, m.ok
}
