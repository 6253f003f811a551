package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// NoticeSource returns the retained message bus notices, oldest first.
type NoticeSource interface {
	Recent() []domain.Notice
}

// Flusher writes the persistent caches and returns the names of the ones
// that failed.
type Flusher interface {
	FlushNow(ctx context.Context) []string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSON encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
