package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/app"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/repository"
	"github.com/joseph-ayodele/scope3-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("scope3d.exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg *common.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("scope3d.store.close_failed", "error", err)
		}
	}()

	if mem, ok := a.Store.(*repository.MemoryStore); ok && cfg.Store.TTL > 0 {
		go mem.RunSweeper(ctx, cfg.Store.TTL/4)
	}

	api := server.New(server.Deps{
		Analyzer:       a.Processor,
		Store:          a.Store,
		Chat:           a.Chat,
		Export:         a.Export,
		Metrics:        a.Metrics.Handler(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}
	health := server.NewHealthServer(logger)

	errCh := make(chan error, 2)
	go func() {
		if err := health.Serve(grpcLis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("scope3d.http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("scope3d.shutdown")
	case err = <-errCh:
		logger.Error("scope3d.serve_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	health.SetServing(false)
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("scope3d.http.shutdown_failed", "error", serr)
	}
	health.Stop(shutdownCtx)
	return err
}
