package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/declarecheck/internal/infrastructure/wiring"
)

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application by creating a logger, wiring infrastructure
// components via the container, and setting up the HTTP server.
func New(cfg Config) (*App, error) {
	logger := logging.NewText(os.Stdout, cfg.LogLevel)

	container, err := wiring.New(Params(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      container.Server(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Params maps cfg onto the container parameters.
func Params(cfg Config, logger *logging.SlogLogger) wiring.Params {
	return wiring.Params{
		ModelDir:       cfg.ModelDir,
		HistorySize:    cfg.HistorySize,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		RateLimiterTTL: cfg.RateLimiterTTL,
		Workers:        cfg.Workers,
		CacheSize:      cfg.CacheSize,
		TracesPath:     cfg.TracesPath,
		DefaultEngine:  cfg.DefaultEngine,
		Logger:         logger,
	}
}

// Run executes the full application lifecycle: load the model, start the watcher,
// serve HTTP, and handle graceful shutdown on SIGINT/SIGTERM or context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.container.Close()

	logger := a.container.Logger()
	server := a.container.Server()
	loadUC := a.container.LoadModelUseCase()

	m, err := loadUC.Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	server.Rebuild(m)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher := a.setupWatcher()
	if watcher != nil {
		defer watcher.Stop()
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting declarecheck server", "addr", a.httpServer.Addr, "model", a.cfg.ModelDir)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func (a *App) setupWatcher() *filesystem.Watcher {
	logger := a.container.Logger()
	server := a.container.Server()
	loadUC := a.container.LoadModelUseCase()

	watcher, err := filesystem.NewWatcher(a.cfg.ModelDir, a.cfg.WatcherDebounce, logger, func(changed []string) {
		m, err := loadUC.Execute(context.Background())
		if err != nil {
			logger.Error("hot reload failed", "error", err, "files", changed)
			return
		}
		server.Rebuild(m)
		logger.Info("hot reload complete", "files", len(changed), "constraints", len(m.Constraints))
	})
	if err != nil {
		logger.Warn("file watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("file watcher started", "root", a.cfg.ModelDir)
	return watcher
}
