package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// maxNoticeRows bounds the notice log section.
const maxNoticeRows = 20

// PDFExporter renders the network inventory report.
type PDFExporter struct {
	Title string
}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter(title string) *PDFExporter {
	if title == "" {
		title = "Wireless Network Inventory"
	}
	return &PDFExporter{Title: title}
}

// ExportInventory generates the report as PDF bytes.
func (e *PDFExporter) ExportInventory(report *domain.ReportData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addStatistics(pdf, report)
	e.addNetworks(pdf, report)
	e.addClients(pdf, report)
	e.addNotices(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 12, e.Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (e *PDFExporter) section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.section(pdf, "Overview")

	s := report.Stats
	stats := []struct {
		label string
		value int
	}{
		{"Networks", s.NetworkCount},
		{"Clients", s.ClientCount},
		{"Access points", s.TypeStats[domain.NetworkAP.String()]},
		{"Ad-hoc", s.TypeStats[domain.NetworkAdhoc.String()]},
		{"Probe networks", s.TypeStats[domain.NetworkProbe.String()]},
		{"Cloaked", s.CloakedCount},
		{"Decloaked", s.DecloakedCount},
		{"WEP", s.WEPCount},
	}

	for i, stat := range stats {
		x := 15.0 + float64(i%4)*68
		pdf.SetX(x)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(40, 7, stat.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")
		if i%4 == 3 {
			pdf.Ln(7)
		}
	}

	if len(s.ChannelUsage) > 0 {
		channels := make([]int, 0, len(s.ChannelUsage))
		for ch := range s.ChannelUsage {
			channels = append(channels, ch)
		}
		sort.Ints(channels)

		line := "Channel usage:"
		for _, ch := range channels {
			line += fmt.Sprintf("  %d (%d)", ch, s.ChannelUsage[ch])
		}
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
	pdf.Ln(6)
}

func (e *PDFExporter) tableHeader(pdf *gofpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func (e *PDFExporter) addNetworks(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.section(pdf, "Networks")

	if len(report.Networks) == 0 {
		e.empty(pdf, "No networks observed")
		return
	}

	cols := []string{"BSSID", "SSID", "Type", "Ch", "Crypt", "Max dBm", "LLC", "Data", "Crypt pkts", "First seen", "Last seen"}
	widths := []float64{34, 56, 14, 10, 14, 18, 18, 18, 20, 28, 28}
	e.tableHeader(pdf, cols, widths)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(60, 60, 60)
	for _, n := range report.Networks {
		maxSig := "-"
		if n.Signal.MaxSignal > domain.SignalFloor {
			maxSig = fmt.Sprintf("%d", n.Signal.MaxSignal)
		}
		row := []string{
			n.BSSID.String(),
			truncate(n.DisplaySSID(), 28),
			n.Type.String(),
			fmt.Sprintf("%d", n.Channel),
			cryptLabel(n.Crypt),
			maxSig,
			fmt.Sprintf("%d", n.LLCPackets),
			fmt.Sprintf("%d", n.DataPackets),
			fmt.Sprintf("%d", n.CryptPackets),
			n.FirstSeen.Format("01-02 15:04:05"),
			n.LastSeen.Format("01-02 15:04:05"),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addClients(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.section(pdf, "Clients")

	if len(report.Clients) == 0 {
		e.empty(pdf, "No clients observed")
		return
	}

	cols := []string{"Network", "Client", "Type", "Data", "Crypt", "Bytes", "First seen", "Last seen"}
	widths := []float64{40, 40, 28, 22, 22, 34, 32, 32}
	e.tableHeader(pdf, cols, widths)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(60, 60, 60)
	for _, c := range report.Clients {
		row := []string{
			c.BSSID.String(),
			c.MAC.String(),
			clientTypeLabel(c.Type),
			fmt.Sprintf("%d", c.DataPackets),
			fmt.Sprintf("%d", c.CryptPackets),
			fmt.Sprintf("%d", c.Datasize),
			c.FirstSeen.Format("01-02 15:04:05"),
			c.LastSeen.Format("01-02 15:04:05"),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addNotices(pdf *gofpdf.Fpdf, report *domain.ReportData) {
	e.section(pdf, "Recent notices")

	if len(report.Notices) == 0 {
		e.empty(pdf, "No notices")
		return
	}

	notices := report.Notices
	if len(notices) > maxNoticeRows {
		notices = notices[len(notices)-maxNoticeRows:]
	}

	pdf.SetFont("Arial", "", 8)
	for _, n := range notices {
		if n.Severity == domain.SeverityError {
			pdf.SetTextColor(220, 53, 69) // Red
		} else {
			pdf.SetTextColor(60, 60, 60)
		}
		pdf.CellFormat(32, 5, n.Time.Format("01-02 15:04:05"), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 5, n.Text, "", "L", false)
	}
}

func (e *PDFExporter) empty(pdf *gofpdf.Fpdf, msg string) {
	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, msg, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func cryptLabel(c domain.CryptSet) string {
	switch {
	case c.Has(domain.CryptWEP):
		return "WEP"
	case c.Has(domain.CryptLayer3):
		return "L3"
	case c == domain.CryptNone:
		return "open"
	default:
		return "?"
	}
}

func clientTypeLabel(t domain.ClientType) string {
	switch t {
	case domain.ClientFromDS:
		return "from-ds"
	case domain.ClientToDS:
		return "to-ds"
	case domain.ClientInterDS:
		return "inter-ds"
	case domain.ClientEstablished:
		return "established"
	default:
		return "unknown"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
