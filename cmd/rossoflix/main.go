// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rossoflix/rossoflix/internal/acquisition"
	"github.com/rossoflix/rossoflix/internal/api"
	"github.com/rossoflix/rossoflix/internal/buildinfo"
	"github.com/rossoflix/rossoflix/internal/cache"
	"github.com/rossoflix/rossoflix/internal/config"
	"github.com/rossoflix/rossoflix/internal/gateway"
	"github.com/rossoflix/rossoflix/internal/metrics"
	"github.com/rossoflix/rossoflix/internal/stream"
	"github.com/rossoflix/rossoflix/internal/upstream"
)

const shutdownTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "rossoflix",
		Short: "On-demand torrent media gateway with HTTP Range streaming",
		Long: `rossoflix serves media files from local storage, downloading them
from a magnet link on first request and streaming them with HTTP Range support.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, configDir)
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "config directory or path to config.toml (default: OS config dir)")

	return cmd
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default config.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := configDir
			if dir == "" {
				dir = config.GetDefaultConfigDir()
			}
			configPath := dir
			if filepath.Ext(configPath) != ".toml" {
				configPath = filepath.Join(dir, "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			cmd.Printf("Configuration file created at %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "directory to write config.toml into (default: OS config dir)")

	return cmd
}

func RunVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asJSON {
				cmd.Print(buildinfo.String())
				return nil
			}
			data, err := buildinfo.JSON()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func runServer(ctx context.Context, configDir string) error {
	cfg, err := config.New(configDir, buildinfo.Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyLogConfig(); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer cfg.CloseLogs()

	log.Info().Str("version", buildinfo.Version).Str("commit", buildinfo.Commit).Msg("Starting rossoflix")
	cfg.LogFields()

	var metricsManager *metrics.MetricsManager
	if cfg.Config.MetricsEnabled {
		metricsManager = metrics.NewMetricsManager()
	}

	agent := acquisition.NewAgent(acquisition.AgentConfig{
		Binary:       cfg.Config.DownloadBinary,
		ArgsTemplate: cfg.Config.DownloadArgs,
		Trackers:     cfg.Config.DownloadTrackers,
	})
	coordinator := acquisition.NewCoordinator(agent, cfg.StorageDir(), cfg.DownloadTimeout(), metricsManager)

	gatewayService, err := gateway.NewService(cfg.StorageDir(), coordinator)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}

	responseCache := cache.New(cfg.CacheTTL(), metricsManager)
	defer responseCache.Close()

	responder := stream.NewResponder(cfg.Config.StreamContentType, cfg.Config.StreamChunkSize)
	log.Debug().Int("chunkSize", responder.ChunkSize()).Msg("Stream responder ready")

	client := upstream.NewClient(upstream.Options{
		Timeout:  cfg.UpstreamTimeout(),
		Recorder: metricsManager,
	})

	server := api.NewServer(&api.Dependencies{
		Config:    cfg,
		Gateway:   gatewayService,
		Responder: responder,
		Cache:     responseCache,
		OMDB:      upstream.NewOMDB(client, cfg.Config.OMDBBaseURL, cfg.Config.OMDBAPIKey),
		Torrentio: upstream.NewTorrentio(client, cfg.Config.TorrentioBaseURL),
		Metrics:   metricsManager,
	})

	errCh := make(chan error, 2)

	var metricsServer *metrics.Server
	if metricsManager != nil {
		metricsServer = metrics.NewMetricsServer(metricsManager, cfg.Config.MetricsHost, cfg.Config.MetricsPort, cfg.Config.MetricsBasicAuthUsers)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server did not shut down cleanly")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server did not shut down cleanly")
		}
	}

	return runErr
}
