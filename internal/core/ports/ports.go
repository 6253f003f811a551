package ports

import (
	"context"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// FrameSource produces classified frames until the context is cancelled or
// the source is exhausted. Start blocks.
type FrameSource interface {
	Start(ctx context.Context, out chan<- domain.Frame) error
	Close()
}

// Notifier is the message collaborator. Notices are plain text at one of two
// severities.
type Notifier interface {
	Notify(ctx context.Context, severity domain.Severity, text string)
}

// GPSProvider supplies the current fix, ok is false when there is none.
type GPSProvider interface {
	Fix() (domain.GPSSample, bool)
}
