package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Belphemur/TubeMP3/internal/config"
	grpcserver "github.com/Belphemur/TubeMP3/internal/grpc"
	"github.com/Belphemur/TubeMP3/internal/metrics"
	"github.com/Belphemur/TubeMP3/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC service, metrics and WebSocket endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer() error {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	engine, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer engine.close()

	logger.Info().
		Int("server_port", cfg.Server.Port).
		Str("server_address", cfg.Server.Address).
		Str("output_dir", cfg.Paths.OutputDir).
		Msg("Application started with configuration")

	grpcServer := grpcserver.NewGRPCServer(grpcserver.Dependencies{
		Downloader:  engine.downloader,
		Converter:   engine.converter,
		Binaries:    engine.provisioner,
		History:     engine.history,
		Preferences: engine.preferences,
		Reporter:    engine.reporter,
	})

	// Prometheus metrics and the WebSocket endpoint share one HTTP server
	if cfg.Metrics.Enabled || cfg.WebSocket.Enabled {
		extra := map[string]http.Handler{}
		if cfg.WebSocket.Enabled {
			extra[ws.Path] = ws.NewHandler(engine.downloader, engine.reporter)
		}
		httpServer := metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port, extra)
		go func() {
			logger.Info().Str("address", httpServer.Addr).Bool("websocket", cfg.WebSocket.Enabled).Msg("Starting HTTP server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Msg("Failed to serve HTTP")
			}
		}()
		defer func() {
			if err := httpServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
			}
		}()
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	logger.Info().Str("address", address).Msg("Starting gRPC server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		grpcServer.Shutdown()
	}()

	if err := grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}
