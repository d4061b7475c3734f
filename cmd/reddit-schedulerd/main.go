// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// reddit-schedulerd is the scheduler daemon. It owns the queue database,
// runs the dispatch loop, and serves the control protocol for the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"reddit-scheduler/internal/config"
	"reddit-scheduler/internal/logging"
	"reddit-scheduler/internal/metrics"
	"reddit-scheduler/internal/poster"
	"reddit-scheduler/internal/reddit"
	"reddit-scheduler/internal/rpc"
	"reddit-scheduler/internal/store"
)

var version = "dev"

func main() {
	var (
		printConfig  = flag.Bool("print-config", false, "Print the resolved configuration (secrets redacted) and exit")
		printVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *printVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		fmt.Println(cfg.String())
		return
	}

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	logger := logging.New(level)
	logger.Info("starting", slog.String("version", version), slog.Uint64("port", uint64(cfg.Port)))

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open queue database: %w", err)
	}
	storeDone := make(chan error, 1)
	go func() { storeDone <- st.Run() }()

	client := reddit.New(reddit.Credentials{
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
	})

	p := poster.New(poster.Config{
		Interval: time.Duration(cfg.PostInterval * float64(time.Second)),
		DryRun:   cfg.DryRun,
	}, st, client, logger)

	server := rpc.NewServer(st, client, logger)
	if err := server.Listen(cfg.Port); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return p.Run(ctx) })
	group.Go(func() error { return server.Serve(ctx) })
	if cfg.MetricsPort != 0 {
		group.Go(func() error { return serveMetrics(ctx, cfg.MetricsPort, logger) })
	}

	// The port is open and the loops are running; tell the service
	// manager we are ready.
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", slog.Any("error", err))
	} else if ok {
		logger.Debug("sd_notify ready sent")
	}

	err = group.Wait()

	// Stop the store last so in-flight commands from the poster and the
	// rpc server have already drained.
	if quitErr := st.Quit(); quitErr != nil {
		logger.Error("store quit failed", slog.Any("error", quitErr))
	} else if runErr := <-storeDone; runErr != nil {
		logger.Error("store loop failed", slog.Any("error", runErr))
	}

	if err != nil {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

func serveMetrics(ctx context.Context, port uint16, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf("[::]:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
