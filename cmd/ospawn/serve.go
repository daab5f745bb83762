package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/ospawn"
	"github.com/loykin/ospawn/internal/metrics"
)

// createServeCommand creates the serve subcommand.
func createServeCommand(globalFlags *GlobalFlags, f *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the ospawn HTTP job server",
		Long: `Start the HTTP job server. Jobs listed in the config file are
spawned at startup; further jobs are submitted over the HTTP API.
Prometheus metrics are exposed at /metrics on the same listener.

Examples:
  ospawn serve config.toml
  ospawn serve --config=config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := f.ConfigPath
			if configPath == "" {
				configPath = globalFlags.ConfigPath
			}
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "path to TOML config file")
	return cmd
}

func runServe(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.toml or provide as argument")
	}
	cfg, err := ospawn.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen must be set in the config")
	}

	log, logCloser := cfg.Log.New()
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()
	slog.SetDefault(log)

	if err := ospawn.RegisterMetricsDefault(); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}

	var sinks []ospawn.HistorySink
	var sinkCloser io.Closer
	if cfg.Server.HistoryDSN != "" {
		sink, err := ospawn.NewHistorySink(cfg.Server.HistoryDSN)
		if err != nil {
			return fmt.Errorf("error opening history sink: %w", err)
		}
		sinks = append(sinks, sink)
		if c, ok := sink.(io.Closer); ok {
			sinkCloser = c
		}
	}

	run := ospawn.NewRunner(log, sinks...)

	// Spawn configured jobs before the API opens.
	env, err := cfg.GlobalEnv(configPath)
	if err != nil {
		return err
	}
	for i := range cfg.Jobs {
		job := cfg.Jobs[i].Job(env)
		if _, err := run.Run(job); err != nil {
			log.Warn("failed to spawn configured job", "job", job.Name, "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", ospawn.NewAPIHandler(cfg.Server.BasePath, run))
	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("serving", "listen", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	err = server.Close()
	if sinkCloser != nil {
		_ = sinkCloser.Close()
	}
	return err
}
