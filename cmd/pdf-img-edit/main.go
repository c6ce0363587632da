package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/zlog"

	"github.com/kamarjahan/pdf-img-edit/internal/api/handlers/process"
	"github.com/kamarjahan/pdf-img-edit/internal/api/router"
	"github.com/kamarjahan/pdf-img-edit/internal/api/server"
	"github.com/kamarjahan/pdf-img-edit/internal/config"
	"github.com/kamarjahan/pdf-img-edit/internal/dispatcher"
	"github.com/kamarjahan/pdf-img-edit/internal/processor/raster"
	"github.com/kamarjahan/pdf-img-edit/internal/processor/remote"
	"github.com/kamarjahan/pdf-img-edit/internal/tempfile"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger, load .env (service credentials) and configuration.
	zlog.Init()
	_ = godotenv.Load()
	cfg := config.MustLoad("./config/config.yml")

	// Temp staging for files handed to the remote service by path.
	tmp := tempfile.New(cfg.Staging.Dir)

	// Remote document service client and strategy.
	client := remote.NewClient(remote.Config{
		BaseURL:   cfg.DocAPI.BaseURL,
		PublicKey: cfg.DocAPI.PublicKey,
		SecretKey: cfg.DocAPI.SecretKey,
		Timeout:   cfg.DocAPI.Timeout,
	})
	remoteStrategy := remote.NewStrategy(client)

	// In-process raster pipeline for image tools.
	rasterProcessor := raster.New(cfg.Raster.FontPath)

	// Dispatcher and HTTP handler.
	d := dispatcher.New(rasterProcessor, remoteStrategy, tmp)
	h := process.NewHandler(d, cfg.MaxBytes)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	zlog.Logger.Info().Msgf("listening on %s", cfg.Server.HTTPPort)

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}
}
