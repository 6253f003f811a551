package handlers

import "net/http"

// CacheHandler triggers an out-of-band write of the persistent caches.
type CacheHandler struct {
	Flusher Flusher
}

func NewCacheHandler(f Flusher) *CacheHandler {
	return &CacheHandler{Flusher: f}
}

// HandleFlush writes every cache file now.
func (h *CacheHandler) HandleFlush(w http.ResponseWriter, r *http.Request) {
	failed := h.Flusher.FlushNow(r.Context())
	if len(failed) > 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "failed",
			"failed": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}
