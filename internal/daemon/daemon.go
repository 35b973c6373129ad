// Package daemon wires the print bridge together and runs it as a service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/judwhite/go-svc"

	"github.com/adcondev/print-bridge/internal/auth"
	"github.com/adcondev/print-bridge/internal/config"
	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/fetch"
	"github.com/adcondev/print-bridge/internal/logging"
	"github.com/adcondev/print-bridge/internal/printer"
	"github.com/adcondev/print-bridge/internal/server"
	"github.com/adcondev/print-bridge/internal/worker"
)

// Program implements svc.Service interface
type Program struct {
	ConfigPath string
	Console    bool
	LogDir     string           // empty uses PROGRAMDATA or the user cache dir
	Platform   printer.Platform // nil detects the host platform

	cfg              config.Environment
	wg               sync.WaitGroup
	ctx              context.Context
	cancel           context.CancelFunc
	listener         net.Listener
	httpServer       *http.Server
	wsServer         *server.Server
	printWorker      *worker.Worker
	dispatcher       *dispatch.Dispatcher
	authMgr          *auth.Manager
	startTime        time.Time
	printerDiscovery *PrinterDiscovery
}

// Init loads configuration and initializes logging
func (p *Program) Init(env svc.Environment) error {
	cfg, err := config.Load(config.BuildEnvironment, p.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	p.cfg = cfg

	if err := p.initLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	service := env != nil && env.IsWindowsService()
	logging.Info("Starting print bridge", "environment", cfg.Name, "service", service,
		"build_date", config.BuildDate, "build_time", config.BuildTime)
	return nil
}

// Start builds the dispatcher and starts the HTTP server and workers
func (p *Program) Start() error {
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	cfg := p.cfg

	platform := p.Platform
	if platform == nil {
		platform = printer.Detect(printer.Options{
			CommandTimeout: cfg.CommandTimeout,
			SumatraPath:    cfg.SumatraPath,
		})
	}
	logging.Info("Printing platform selected", "platform", platform.Name())

	d, err := p.buildDispatcher(platform)
	if err != nil {
		p.cancel()
		return err
	}
	p.dispatcher = d

	authMgr, err := auth.NewManager(p.ctx, config.TokenHashB64)
	if err != nil {
		p.cancel()
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	p.authMgr = authMgr

	p.printerDiscovery = NewPrinterDiscovery(platform)
	p.printerDiscovery.LogStartupDiagnostics(p.ctx)

	var authz server.Authorizer
	if authMgr.Enabled() {
		authz = authMgr
	}
	p.wsServer = server.NewServer(server.Config{
		QueueSize:          cfg.QueueCapacity,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DefaultPrinter:     cfg.DefaultPrinter,
		Platform:           platform.Name(),
		EndpointFor:        cfg.EndpointFor,
	}, d, authz)

	p.printWorker = worker.NewWorker(p.wsServer.JobQueue(), d, p.wsServer, worker.Config{
		Workers:    cfg.Workers,
		JobTimeout: cfg.DispatchBudget(),
	})
	p.printWorker.Start()

	mux := http.NewServeMux()
	p.wsServer.Routes(mux)
	mux.Handle("/health", server.WithCORS(cfg.AllowedOrigins, http.HandlerFunc(p.handleHealth)))

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		p.printWorker.Stop()
		p.cancel()
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	p.listener = ln

	p.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logging.Info("Print bridge ready", "environment", cfg.Name, "addr", ln.Addr().String(),
			"channels", fmt.Sprint(d.ChannelNames()), "auth", authMgr.Enabled())
		if err := p.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the service gracefully
func (p *Program) Stop() error {
	logging.Info("Service shutting down")

	if p.cancel != nil {
		p.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if p.httpServer != nil {
		if err := p.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("HTTP shutdown error", "error", err)
		}
	}

	if p.wsServer != nil {
		p.wsServer.Shutdown()
	}
	if p.printWorker != nil {
		p.printWorker.Stop()
	}

	p.wg.Wait()

	logging.Info("Service stopped", "uptime", time.Since(p.startTime).Round(time.Second))
	return logging.Close()
}

// Addr returns the listening address once started.
func (p *Program) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

func (p *Program) buildDispatcher(platform printer.Platform) (*dispatch.Dispatcher, error) {
	cfg := p.cfg

	fetcher := fetch.NewFetcher(nil, fetch.Config{
		UserAgent: cfg.UserAgent,
		MinBytes:  cfg.MinDocumentBytes,
		MaxBytes:  cfg.MaxDocumentBytes,
		Timeout:   cfg.FetchTimeout,
	})

	channels, err := dispatch.ChannelSet{
		IPP: dispatch.NewIPPChannel(dispatch.IPPConfig{
			RequestingUser: cfg.RequestingUser,
			Probe:          cfg.ProbeEndpoints,
		}),
		Spooler:   platform,
		Temp:      &dispatch.TempStore{Dir: cfg.TempDir},
		OpenGrace: cfg.OpenGrace,
	}.Build(cfg.ChannelOrder)
	if err != nil {
		return nil, fmt.Errorf("invalid channel order: %w", err)
	}

	return dispatch.New(dispatch.Options{
		Directory:      platform,
		Resolver:       platform,
		Fetcher:        fetcher,
		Channels:       channels,
		ChannelTimeout: cfg.ChannelTimeout,
	})
}

func (p *Program) handleHealth(w http.ResponseWriter, r *http.Request) {
	current, capacity := p.wsServer.QueueStatus()
	stats := p.printWorker.Stats()

	var utilization float64
	if capacity > 0 {
		utilization = float64(current) / float64(capacity) * 100
	}

	response := HealthResponse{
		Status: "ok",
		Queue: QueueStatus{
			Current:     current,
			Capacity:    capacity,
			Utilization: utilization,
		},
		Worker: WorkerStatus{
			Running:       stats.IsRunning,
			Workers:       stats.Workers,
			InFlight:      stats.InFlight,
			JobsProcessed: stats.JobsProcessed,
			JobsFailed:    stats.JobsFailed,
		},
		Printers: p.printerDiscovery.GetSummary(r.Context()),
		Channels: p.dispatcher.ChannelNames(),
		Clients:  p.wsServer.Clients(),
		Auth:     p.authMgr.Enabled(),
		Build: BuildInfo{
			Env:  config.BuildEnvironment,
			Date: config.BuildDate,
			Time: config.BuildTime,
		},
		Uptime: int(time.Since(p.startTime).Seconds()),
	}

	if response.Printers.Status != "ok" || !stats.IsRunning {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (p *Program) initLogging() error {
	logPath := p.cfg.LogPath(p.logRoot())
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return err
	}

	if err := logging.InitLogger(logging.Options{
		File:       logPath,
		MaxSizeMB:  p.cfg.LogMaxSizeMB,
		MaxBackups: p.cfg.LogMaxBackups,
		MaxAgeDays: p.cfg.LogMaxAgeDays,
		Compress:   true,
		Level:      p.cfg.LogLevel,
		Verbose:    p.cfg.Verbose,
		Console:    p.Console,
	}); err != nil {
		return err
	}

	logging.Info("Log file", "path", logPath)
	return nil
}

func (p *Program) logRoot() string {
	if p.LogDir != "" {
		return p.LogDir
	}
	if dir := os.Getenv("PROGRAMDATA"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
