package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mp3nema/handlers"
)

func (a *app) newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the mp3nema HTTP API. Uploads are analyzed, injected or extracted in
memory and never written to disk.

Examples:
  mp3nema serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			return a.runServe(cmd.Context())
		},
	}
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on (default from config)")
	return serveCmd
}

func (a *app) runServe(ctx context.Context) error {
	if !a.cfg.Logging.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(a.cfg, a.metrics, prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server starting on port %d", a.cfg.Server.Port)
	log.Printf("API endpoints:")
	log.Printf("  POST /api/v1/analyze - Count frames, tags and out-of-band bytes of an MP3")
	log.Printf("  POST /api/v1/inject  - Hide secret_file between the frames of audio_file")
	log.Printf("  POST /api/v1/extract - Return the out-of-band bytes of an MP3")
	log.Printf("  GET  /api/v1/health  - Health check")
	log.Printf("  GET  /metrics        - Prometheus metrics")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
