package handlers

import (
	"net/http"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// NoticeHandler lists recent message bus notices.
type NoticeHandler struct {
	Notices NoticeSource
}

func NewNoticeHandler(notices NoticeSource) *NoticeHandler {
	return &NoticeHandler{Notices: notices}
}

// HandleList returns the retained notices, oldest first.
func (h *NoticeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var notices []domain.Notice
	if h.Notices != nil {
		notices = h.Notices.Recent()
	}
	if notices == nil {
		notices = []domain.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}
