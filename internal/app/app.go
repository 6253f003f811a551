package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lcalzada-xor/netrack/internal/adapters/cachefile"
	"github.com/lcalzada-xor/netrack/internal/adapters/messagebus"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/driver"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/netrack/internal/adapters/storage"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/middleware"
	webserver "github.com/lcalzada-xor/netrack/internal/adapters/web/server"
	"github.com/lcalzada-xor/netrack/internal/adapters/web/session"
	"github.com/lcalzada-xor/netrack/internal/config"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/core/services/persistence"
	"github.com/lcalzada-xor/netrack/internal/core/services/protocol"
	"github.com/lcalzada-xor/netrack/internal/core/services/tracker"
	"github.com/lcalzada-xor/netrack/internal/geo"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// HealthService is the name reported by the gRPC health server.
const HealthService = "netrack"

const frameQueue = 1024

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config *config.Config

	Bus      *messagebus.Bus
	SSIDs    *cachefile.SSIDCache
	IPs      *cachefile.IPCache
	Tracker  *tracker.Tracker
	Sessions *session.Manager

	Storage            *storage.SQLiteAdapter
	PersistenceManager *persistence.PersistenceManager
	CacheFlusher       *persistence.CacheFlusher
	NATS               *messagebus.NATSPublisher

	Source     ports.FrameSource
	Driver     *driver.Driver
	Hopper     *hopping.Hopper
	WebServer  *webserver.Server
	GrpcServer *grpc.Server
	Health     *health.Server

	frames  chan domain.Frame
	workers sync.WaitGroup

	// interface switched to monitor mode by us, restored on exit
	monitorInterface string
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
		frames: make(chan domain.Frame, frameQueue),
	}

	if err := app.bootstrap(); err != nil {
		app.release()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation
	telemetry.InitMetrics()
	app.Bus = messagebus.New(messagebus.DefaultHistory, slog.Default())

	// 2. Caches and the classification engine
	app.initCaches()

	tr, err := tracker.New(tracker.Config{
		TrackProbeNetworks: app.Config.Tracker.TrackProbeNetworks,
	}, app.SSIDs, app.IPs, app.Bus)
	if err != nil {
		return err
	}
	app.Tracker = tr

	// 3. Persistence
	if app.Config.Storage.Enabled {
		store, err := app.initStorage()
		if err != nil {
			return err
		}
		app.Storage = store
		app.PersistenceManager = persistence.NewPersistenceManager(store, app.Config.Storage.BufferSize, app.Config.Storage.FlushInterval)
	}
	app.CacheFlusher = persistence.NewCacheFlusher(app.Config.Caches.FlushInterval,
		persistence.FlushJob{Name: "ssid", Run: app.SSIDs.Store},
		persistence.FlushJob{Name: "ip", Run: func(ctx context.Context) error {
			return app.IPs.Store(ctx, app.liveIP)
		}},
	)

	// 4. Consumers of tracker changes
	app.initSessions()
	app.initNATS()

	// 5. Frame source
	if err := app.initSource(); err != nil {
		return err
	}

	// 6. Servers
	app.initServers()
	return nil
}

func (app *Application) initCaches() {
	ctx := context.Background()

	for _, path := range []string{app.Config.Caches.SSIDPath, app.Config.Caches.IPPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			slog.Warn("Could not create cache directory", "path", path, "error", err)
		}
	}

	app.SSIDs = cachefile.NewSSIDCache(app.Config.Caches.SSIDPath, app.Bus)
	if err := app.SSIDs.Load(ctx); err != nil {
		slog.Warn("SSID cache not loaded", "path", app.SSIDs.Path(), "error", err)
	}

	app.IPs = cachefile.NewIPCache(app.Config.Caches.IPPath, app.Bus)
	if err := app.IPs.Load(ctx); err != nil {
		slog.Warn("IP cache not loaded", "path", app.IPs.Path(), "error", err)
	}
}

func (app *Application) initStorage() (*storage.SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(app.Config.Storage.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to init snapshot storage: %w", err)
	}
	return store, nil
}

// liveIP feeds the IP cache writer with the addressing currently inferred
// for a tracked network.
func (app *Application) liveIP(bssid domain.MAC) (domain.IPData, bool) {
	n, ok := app.Tracker.Network(bssid)
	if !ok || n.IP.Type == domain.IPTypeNone {
		return domain.IPData{}, false
	}
	return n.IP, true
}

func (app *Application) initSessions() {
	app.Sessions = session.NewManager(app.Tracker, protocol.NewRegistry(), session.Config{
		PushInterval:   app.Config.Protocol.PushInterval,
		Policy:         app.Config.CacheHitPolicy(),
		AllowedOrigins: app.Config.Web.AllowedOrigins,
		SendBuffer:     app.Config.Protocol.SendBuffer,
	})
	if app.PersistenceManager != nil {
		app.Sessions.AfterDrain = func(nets []domain.TrackedNetwork) {
			app.PersistenceManager.Persist(nets...)
		}
	}

	app.Tracker.Subject().AddObserver(app.Sessions)
	app.Bus.Subscribe(app.Sessions.PushNotice)
}

// initNATS attaches the optional NATS fan-out. An unreachable server is
// reported and tracking carries on without it.
func (app *Application) initNATS() {
	if app.Config.NATS.URL == "" {
		return
	}
	pub, err := messagebus.NewNATSPublisher(app.Config.NATS.URL, app.Config.NATS.SubjectPrefix)
	if err != nil {
		app.Bus.Notify(context.Background(), domain.SeverityError, fmt.Sprintf("NATS fan-out disabled: %v", err))
		return
	}
	app.NATS = pub
	app.Tracker.Subject().AddObserver(pub)
	app.Bus.Subscribe(pub.PublishNotice)
}

func (app *Application) initSource() error {
	c := app.Config.Capture
	gps := geo.NewStaticProvider(app.Config.GPS.Lat, app.Config.GPS.Lng, app.Config.GPS.Alt)

	if c.Mock {
		slog.Info("Mock Mode Active: generating synthetic traffic", "networks", c.MockNetworks)
		app.Source = capture.NewMock(c.MockNetworks, c.MockInterval, gps, time.Now().UnixNano())
		return nil
	}

	if c.Interface != "" && (c.Monitor || c.Hop) {
		if err := app.initDriver(); err != nil {
			return err
		}
	}

	src, err := capture.New(capture.Config{
		Interface: c.Interface,
		File:      c.File,
		Filter:    c.Filter,
		Snaplen:   int32(c.Snaplen),
		Debug:     app.Config.Debug,
	}, parser.NewDecoder(gps, app.Config.Debug))
	if err != nil {
		return err
	}
	app.Source = src
	return nil
}

// initDriver prepares the capture interface: monitor mode and the channel
// hopper.
func (app *Application) initDriver() error {
	c := app.Config.Capture
	if app.Driver == nil {
		app.Driver = driver.New(nil)
	}

	if c.Monitor {
		if err := app.Driver.EnableMonitorMode(c.Interface); err != nil {
			return fmt.Errorf("failed to enable monitor mode on %s: %w", c.Interface, err)
		}
		app.monitorInterface = c.Interface
	}

	if c.Hop {
		channels := c.HopChannels
		if len(channels) == 0 {
			supported, err := app.Driver.SupportedChannels(c.Interface)
			if err != nil || len(supported) == 0 {
				slog.Warn("Could not read supported channels, hopping 2.4GHz only", "interface", c.Interface, "error", err)
				supported = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
			}
			channels = supported
		}
		app.Hopper = hopping.NewHopper(c.Interface, channels, c.HopDwell, nil)
	}
	return nil
}

func (app *Application) initServers() {
	deps := webserver.Deps{
		Tracker:  app.Tracker,
		Notices:  app.Bus,
		Flusher:  app.CacheFlusher,
		Sessions: app.Sessions,
	}
	if app.Storage != nil {
		deps.Storage = app.Storage
	}
	creds := middleware.Credentials{User: app.Config.Web.User, PasswordHash: app.Config.Web.PasswordHash}
	app.WebServer = webserver.NewServer(app.Config.Web.Addr, creds, deps)

	app.Health = health.NewServer()
	app.GrpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(app.GrpcServer, app.Health)
	app.Health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
}

// Run starts the application components and manages their execution lifecycle.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting netrack components...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 1. Auxiliary loops
	if app.PersistenceManager != nil {
		app.PersistenceManager.Start(ctx)
	}
	app.CacheFlusher.Start(ctx)
	app.Sessions.Start(ctx)
	app.workers.Add(2)
	go app.runEngine(ctx)
	go app.runPruneLoop(ctx)
	if app.Hopper != nil {
		app.workers.Add(1)
		go func() {
			defer app.workers.Done()
			app.Hopper.Run(ctx)
		}()
	}

	// 2. Servers & frame source
	errChan := make(chan error, 3)

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	go func() {
		slog.Info("gRPC health server listening", "port", app.Config.GRPCPort)
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", app.Config.GRPCPort))
		if err != nil {
			errChan <- fmt.Errorf("grpc listen error: %w", err)
			return
		}

		go func() {
			<-ctx.Done()
			app.GrpcServer.GracefulStop()
		}()

		if err := app.GrpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	go func() {
		if err := app.Source.Start(ctx, app.frames); err != nil {
			errChan <- fmt.Errorf("capture error: %w", err)
			return
		}
		if ctx.Err() == nil {
			app.Bus.Notify(ctx, domain.SeverityInfo, "Capture source finished, serving the collected table")
		}
	}()

	slog.Info("netrack ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case runErr = <-errChan:
	}

	cancel()
	app.workers.Wait()
	app.cleanup()
	return runErr
}

// runEngine feeds the tracker from the source. A single goroutine keeps
// frames in capture order.
func (app *Application) runEngine(ctx context.Context) {
	defer app.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-app.frames:
			app.Tracker.ProcessFrame(ctx, f)
		}
	}
}

// runPruneLoop drops idle networks and expired snapshot history.
func (app *Application) runPruneLoop(ctx context.Context) {
	defer app.workers.Done()

	interval := app.Config.Tracker.PruneInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := app.Tracker.Prune(ctx, app.Config.Tracker.TTL); len(removed) > 0 {
				slog.Debug("Pruned idle networks", "count", len(removed))
			}
			if app.Storage != nil && app.Config.Storage.Retention > 0 {
				n, err := app.Storage.PruneHistory(ctx, time.Now().Add(-app.Config.Storage.Retention))
				if err != nil {
					slog.Error("Failed to prune snapshot history", "error", err)
				} else if n > 0 {
					slog.Debug("Pruned snapshot history", "rows", n)
				}
			}
		}
	}
}

// cleanup waits for the loops started by Run to finish their final writes
// and releases everything else.
func (app *Application) cleanup() {
	slog.Info("Cleaning up resources...")

	if app.Health != nil {
		app.Health.Shutdown()
	}
	if app.PersistenceManager != nil {
		app.PersistenceManager.Wait()
	}
	app.CacheFlusher.Wait()
	app.release()
}

func (app *Application) release() {
	if app.Source != nil {
		app.Source.Close()
	}
	if app.monitorInterface != "" {
		app.Driver.DisableMonitorMode(app.monitorInterface)
		app.monitorInterface = ""
	}
	if app.NATS != nil {
		app.NATS.Close()
	}
	if app.Storage != nil {
		if err := app.Storage.Close(); err != nil {
			slog.Error("Failed to close snapshot storage", "error", err)
		}
	}
}
