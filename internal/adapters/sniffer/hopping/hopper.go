package hopping

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is where the hopper is in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateHopping
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateHopping:
		return "Hopping"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	}
	return "Unknown"
}

// Hopper tunes a monitor interface round robin over a channel list so a
// single radio sees every network in range.
type Hopper struct {
	Interface string
	Dwell     time.Duration

	switcher ChannelSwitcher
	state    atomic.Int32
	current  atomic.Int32
	pause    chan time.Duration

	mu       sync.Mutex
	channels []int
	next     int
	failures int
}

// NewHopper creates a hopper. A nil switcher uses iw.
func NewHopper(iface string, channels []int, dwell time.Duration, switcher ChannelSwitcher) *Hopper {
	if switcher == nil {
		switcher = NewLinuxChannelSwitcher()
	}
	return &Hopper{
		Interface: iface,
		Dwell:     dwell,
		switcher:  switcher,
		channels:  append([]int(nil), channels...),
		pause:     make(chan time.Duration, 1),
	}
}

// SetChannels replaces the channel list and restarts from its first entry.
func (h *Hopper) SetChannels(channels []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels = append([]int(nil), channels...)
	h.next = 0
	slog.Info("Channel hopper updated", "interface", h.Interface, "channels", channels)
}

// Channels returns a copy of the channel list.
func (h *Hopper) Channels() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.channels...)
}

// Current is the channel last tuned successfully, 0 before the first hop.
func (h *Hopper) Current() int {
	return int(h.current.Load())
}

func (h *Hopper) State() State {
	return State(h.state.Load())
}

// Pause holds the current channel for d. A pause already pending wins.
func (h *Hopper) Pause(d time.Duration) {
	select {
	case h.pause <- d:
	default:
	}
}

// Run hops until ctx is cancelled.
func (h *Hopper) Run(ctx context.Context) {
	slog.Info("Starting channel hopper", "interface", h.Interface, "dwell", h.Dwell)
	h.state.Store(int32(StateHopping))
	defer h.state.Store(int32(StateStopped))

	ticker := time.NewTicker(h.Dwell)
	defer ticker.Stop()

	h.hop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping channel hopper", "interface", h.Interface)
			return
		case d := <-h.pause:
			h.state.Store(int32(StatePaused))
			ticker.Stop()
			select {
			case <-time.After(d):
				h.state.Store(int32(StateHopping))
				ticker.Reset(h.Dwell)
			case <-ctx.Done():
				return
			}
		case <-ticker.C:
			h.hop()
		}
	}
}

func (h *Hopper) hop() {
	h.mu.Lock()
	if len(h.channels) == 0 {
		h.mu.Unlock()
		return
	}
	if h.next >= len(h.channels) {
		h.next = 0
	}
	ch := h.channels[h.next]
	h.next = (h.next + 1) % len(h.channels)
	h.mu.Unlock()

	if err := h.switcher.SetChannel(h.Interface, ch); err != nil {
		h.failures++
		// first failure and every tenth after it
		if h.failures == 1 || h.failures%10 == 0 {
			slog.Warn("Failed to set channel", "interface", h.Interface, "channel", ch, "error", err, "consecutive", h.failures)
		}
		return
	}
	if h.failures > 0 {
		slog.Info("Channel hopper recovered", "interface", h.Interface, "after_errors", h.failures)
		h.failures = 0
	}
	h.current.Store(int32(ch))
}
