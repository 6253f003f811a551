package persistence

import (
	"context"
	"log/slog"
	"time"
)

// FlushJob writes one persistent cache back to disk.
type FlushJob struct {
	Name string
	Run  func(ctx context.Context) error
}

// CacheFlusher runs every job on an interval and once more on shutdown so the
// cache files survive a restart.
type CacheFlusher struct {
	jobs     []FlushJob
	interval time.Duration
	done     chan struct{}
}

// NewCacheFlusher creates a flusher. An interval of zero only flushes on
// shutdown and on explicit FlushNow calls.
func NewCacheFlusher(interval time.Duration, jobs ...FlushJob) *CacheFlusher {
	return &CacheFlusher{
		jobs:     jobs,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// FlushNow runs every job and returns the names of the ones that failed.
func (f *CacheFlusher) FlushNow(ctx context.Context) []string {
	var failed []string
	for _, job := range f.jobs {
		if err := job.Run(ctx); err != nil {
			slog.Error("Cache flush failed", "cache", job.Name, "error", err)
			failed = append(failed, job.Name)
		}
	}
	return failed
}

// Start begins the flush loop.
func (f *CacheFlusher) Start(ctx context.Context) {
	go func() {
		defer close(f.done)

		var tick <-chan time.Time
		if f.interval > 0 {
			ticker := time.NewTicker(f.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				f.FlushNow(context.WithoutCancel(ctx))
				return
			case <-tick:
				f.FlushNow(ctx)
			}
		}
	}()
}

// Wait blocks until a started loop has done its final flush.
func (f *CacheFlusher) Wait() {
	<-f.done
}
