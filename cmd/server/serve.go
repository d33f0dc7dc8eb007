// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/shopfeed/internal/api"
	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/eventbus"
	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/supervisor"
	"github.com/tomtom215/shopfeed/internal/supervisor/services"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Run the HTTP API together with the event consumer and the
scheduled model rebuilds until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

// runServe wires every component and blocks until ctx is done.
func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing stores")
		}
	}()

	if cfg.Database.SeedOnStartup {
		if err := seedIfEmpty(ctx, a); err != nil {
			return err
		}
	}

	bus, err := eventbus.New(&cfg.Events, logging.WithComponent("eventbus"))
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()
	logging.Info().
		Str("transport", bus.Transport()).
		Str("topic", bus.Topic()).
		Msg("event bus ready")

	server := newHTTPServer(a, bus)

	tree, err := buildTree(a, bus, server)
	if err != nil {
		return err
	}

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown requested, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
	}

	logging.Info().Msg("shopfeed stopped")
	return nil
}

func newHTTPServer(a *app, bus *eventbus.Bus) *http.Server {
	ingestor := eventbus.NewIngestor(bus, a.db, logging.WithComponent("ingest"))
	handler := api.NewHandler(a.engine, a.catalog, ingestor, a.db, logging.WithComponent("api"))

	return &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, &a.cfg.Security),
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// buildTree places the rebuild scheduler in the model layer, the event
// consumer in the ingest layer and the HTTP server in the API layer.
func buildTree(a *app, bus *eventbus.Bus, server services.HTTPServer) (*supervisor.SupervisorTree, error) {
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = a.cfg.Server.ShutdownTimeout + 5*time.Second

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	rebuild, err := services.NewRebuildService(a.engine, services.RebuildServiceConfig{
		Schedule:         a.cfg.Recommend.RebuildSchedule,
		LoadOnStartup:    true,
		RebuildOnStartup: a.cfg.Recommend.RebuildOnStartup,
	}, logging.WithComponent("rebuild"))
	if err != nil {
		return nil, fmt.Errorf("create rebuild scheduler: %w", err)
	}
	tree.AddModelService(rebuild)

	tree.AddIngestService(eventbus.NewConsumer(bus, a.db, logging.WithComponent("consumer")))

	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	return tree, nil
}
