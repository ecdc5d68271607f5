package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/plate-reader/internal/config"
	"github.com/ironsheep/plate-reader/internal/logging"
	"github.com/ironsheep/plate-reader/internal/web"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const shutdownGrace = 10 * time.Second

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("plate-reader-server %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewLogger("plate-server", logging.ParseLevel(cfg.LogLevel))
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	if logging.ParseLevel(cfg.LogLevel) != logging.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	rt, err := cfg.BuildRuntime(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer rt.Close()

	store, err := cfg.BuildSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	h := web.NewHandler(web.Options{
		Detector:       rt.Detector,
		Store:          store,
		Probes:         rt.Probes,
		Stages:         rt.Detector.Stages(),
		Timeout:        cfg.DetectionTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SessionTTL:     cfg.SessionTTL,
		Logger:         log.With("component", "web"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           web.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "version", Version, "sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
