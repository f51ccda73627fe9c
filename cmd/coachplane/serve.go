package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/pkg/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides COACHPLANE_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if servePort > 0 {
		cfg.Port = servePort
	}

	log.Info().Str("version", cfg.Version).Msg("Coachplane starting...")

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	// generations can run for minutes on slow models
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.Port),
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Int("port", srv.Port).Msg("Coachplane is ready")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = httpServer.Shutdown(shutdownCtx)
		if closeErr := srv.Close(shutdownCtx); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to release resources")
		}
		return err
	}

	srv.Close(context.Background())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
