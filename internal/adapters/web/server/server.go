package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcalzada-xor/netrack/internal/adapters/reporting"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/session"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps are the collaborators behind the HTTP surface. Storage and Flusher
// may be nil.
type Deps struct {
	Tracker  ports.Tracker
	Storage  ports.Storage
	Notices  handlers.NoticeSource
	Flusher  handlers.Flusher
	Sessions *session.Manager
	Exporter *reporting.PDFExporter
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr        string
	Credentials middleware.Credentials

	Sessions *session.Manager
	Networks *handlers.NetworkHandler
	History  *handlers.HistoryHandler
	Notices  *handlers.NoticeHandler
	Reports  *handlers.ReportHandler
	Caches   *handlers.CacheHandler

	limiter *middleware.RateLimiter
	srv     *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, creds middleware.Credentials, deps Deps) *Server {
	exporter := deps.Exporter
	if exporter == nil {
		exporter = reporting.NewPDFExporter("")
	}
	flusher := deps.Flusher
	if flusher == nil {
		flusher = noFlush{}
	}

	return &Server{
		Addr:        addr,
		Credentials: creds,
		Sessions:    deps.Sessions,
		Networks:    handlers.NewNetworkHandler(deps.Tracker, deps.Storage),
		History:     handlers.NewHistoryHandler(deps.Storage),
		Notices:     handlers.NewNoticeHandler(deps.Notices),
		Reports:     handlers.NewReportHandler(deps.Tracker, deps.Notices, exporter),
		Caches:      handlers.NewCacheHandler(flusher),
		limiter:     middleware.NewRateLimiter(heavyLimit, heavyWindow),
	}
}

// Handler returns the instrumented route tree.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(NewRouter(s), "netrack-server")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
		s.limiter.Stop()
	}()

	slog.Info("Web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type noFlush struct{}

func (noFlush) FlushNow(context.Context) []string { return nil }
