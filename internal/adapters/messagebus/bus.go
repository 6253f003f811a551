package messagebus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

// DefaultHistory is how many notices Recent keeps when New is given zero.
const DefaultHistory = 50

// Bus is the message collaborator. Every notice is logged, kept in a bounded
// history and handed to subscribers in the order Notify was called.
type Bus struct {
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	ring []domain.Notice
	next int
	full bool

	subMu  sync.RWMutex
	subs   map[uint64]func(domain.Notice)
	nextID uint64
}

// New creates a bus keeping the last history notices. logger may be nil to
// use slog's default.
func New(history int, logger *slog.Logger) *Bus {
	if history <= 0 {
		history = DefaultHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		now:    time.Now,
		ring:   make([]domain.Notice, history),
		subs:   make(map[uint64]func(domain.Notice)),
	}
}

// Notify records a notice and fans it out. Subscribers run synchronously on
// the caller's goroutine.
func (b *Bus) Notify(ctx context.Context, severity domain.Severity, text string) {
	n := domain.Notice{Time: b.now(), Severity: severity, Text: text}

	level := slog.LevelInfo
	if severity == domain.SeverityError {
		level = slog.LevelError
	}
	b.logger.Log(ctx, level, text, "component", "messagebus")

	b.mu.Lock()
	b.ring[b.next] = n
	b.next = (b.next + 1) % len(b.ring)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	b.subMu.RLock()
	subs := make([]func(domain.Notice), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.subMu.RUnlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Subscribe registers fn for every later notice. The returned func removes it.
func (b *Bus) Subscribe(fn func(domain.Notice)) (cancel func()) {
	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

// Recent returns the retained notices, oldest first.
func (b *Bus) Recent() []domain.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]domain.Notice(nil), b.ring[:b.next]...)
	}
	out := make([]domain.Notice, 0, len(b.ring))
	out = append(out, b.ring[b.next:]...)
	return append(out, b.ring[:b.next]...)
}

var _ ports.Notifier = (*Bus)(nil)
