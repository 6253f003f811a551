package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcalzada-xor/netrack/internal/adapters/reporting"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
)

// ReportHandler renders the network inventory as PDF.
type ReportHandler struct {
	Tracker  ports.Tracker
	Notices  NoticeSource
	Exporter *reporting.PDFExporter
	now      func() time.Time
}

// NewReportHandler creates a ReportHandler. notices may be nil.
func NewReportHandler(tracker ports.Tracker, notices NoticeSource, exporter *reporting.PDFExporter) *ReportHandler {
	return &ReportHandler{
		Tracker:  tracker,
		Notices:  notices,
		Exporter: exporter,
		now:      time.Now,
	}
}

// Build gathers the report data from the live table.
func (h *ReportHandler) Build() *domain.ReportData {
	nets := h.Tracker.Networks()
	clients := h.Tracker.Clients()

	report := &domain.ReportData{
		GeneratedAt: h.now(),
		Stats:       domain.ComputeStats(nets, clients),
		Networks:    nets,
		Clients:     clients,
	}
	if h.Notices != nil {
		report.Notices = h.Notices.Recent()
	}
	return report
}

// HandleReport answers GET /api/report.pdf.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report := h.Build()

	pdf, err := h.Exporter.ExportInventory(report)
	if err != nil {
		slog.Error("PDF export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}

	filename := fmt.Sprintf("netrack_inventory_%s.pdf", report.GeneratedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
