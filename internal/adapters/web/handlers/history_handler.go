package handlers

import (
	"net/http"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

const defaultHistoryWindow = 24 * time.Hour

// HistoryHandler serves stored network snapshots.
type HistoryHandler struct {
	Storage ports.Storage
	now     func() time.Time
}

// NewHistoryHandler creates a HistoryHandler. storage may be nil, in which
// case every request answers 503.
func NewHistoryHandler(storage ports.Storage) *HistoryHandler {
	return &HistoryHandler{Storage: storage, now: time.Now}
}

// HandleHistory answers GET /api/history?bssid=..&since=... where since is
// either an RFC 3339 time or a duration back from now ("2h").
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot storage is disabled")
		return
	}

	q := r.URL.Query()
	bssid, err := domain.ParseMAC(q.Get("bssid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	since, err := h.parseSince(q.Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
		return
	}

	snaps, err := h.Storage.History(r.Context(), bssid, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []domain.NetworkSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *HistoryHandler) parseSince(v string) (time.Time, error) {
	if v == "" {
		return h.now().Add(-defaultHistoryWindow), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return h.now().Add(-d), nil
	}
	return time.Parse(time.RFC3339, v)
}
