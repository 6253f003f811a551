package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	heavyLimit  = 10
	heavyWindow = time.Minute
)

// NewRouter wires every route. The metrics and websocket endpoints share the
// API's credentials.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	auth := middleware.BasicAuth(s.Credentials)

	// report rendering and cache writes touch the disk
	heavy := middleware.RateLimit(s.limiter)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth)

	api.HandleFunc("/networks", s.Networks.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/networks/{bssid}", s.Networks.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/clients", s.Networks.HandleClients).Methods(http.MethodGet)
	api.HandleFunc("/notices", s.Notices.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/history", s.History.HandleHistory).Methods(http.MethodGet)
	api.Handle("/report.pdf", heavy(http.HandlerFunc(s.Reports.HandleReport))).Methods(http.MethodGet)
	api.Handle("/caches/flush", heavy(http.HandlerFunc(s.Caches.HandleFlush))).Methods(http.MethodPost)

	r.Handle("/metrics", auth(promhttp.Handler()))
	r.Handle("/ws", auth(http.HandlerFunc(s.Sessions.HandleWebSocket)))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}
