// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/shopfeed/internal/database"
	"github.com/tomtom215/shopfeed/internal/logging"
)

func newSeedCmd(configPath *string) *cobra.Command {
	opts := database.DefaultSeedOptions()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo data",
		Long: `Generate a deterministic demo catalog, users and events and write them
to the database. Every seeded user also gets a default weight profile.
Running seed twice with the same options is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openAppFromFlags(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if !cmd.Flags().Changed("seed") {
				opts.Seed = a.cfg.Database.SeedValue
			}
			res, err := seedData(cmd.Context(), a, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "random seed (defaults to database.seed_value)")
	cmd.Flags().IntVar(&opts.Users, "users", opts.Users, "number of users")
	cmd.Flags().IntVar(&opts.ProductsPerCategory, "products-per-category", opts.ProductsPerCategory, "products generated per category")
	cmd.Flags().IntVar(&opts.OrdersPerUser, "orders-per-user", opts.OrdersPerUser, "historical orders per user")
	cmd.Flags().IntVar(&opts.LiveEventsPerUser, "live-events-per-user", opts.LiveEventsPerUser, "recent live events per user")
	return cmd
}

func newRebuildCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the recommendation model once",
		Long: `Build a new model snapshot from the historical events and persist it.
A running server picks the new snapshot up on its next restart or
scheduled rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openAppFromFlags(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.engine.Rebuild(cmd.Context())
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

// deleteResult summarizes delete-data.
type deleteResult struct {
	Products  int64 `json:"products"`
	Users     int64 `json:"users"`
	Events    int64 `json:"events"`
	Profiles  int   `json:"weight_profiles"`
	Snapshots int   `json:"snapshots"`
}

func newDeleteDataCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-data",
		Short: "Delete all data",
		Long: `Remove every product, user and event, every weight profile and every
persisted model snapshot. The schema is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete data without --yes")
			}
			a, err := openAppFromFlags(*configPath)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := deleteData(cmd.Context(), a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func openAppFromFlags(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return openApp(cfg)
}

func closeApp(a *app) {
	if err := a.Close(); err != nil {
		logging.Error().Err(err).Msg("error closing stores")
	}
}

// seedData writes the demo data set and creates a default weight profile
// for every seeded user.
func seedData(ctx context.Context, a *app, opts database.SeedOptions) (*database.SeedResult, error) {
	res, err := a.db.Seed(ctx, opts)
	if err != nil {
		return nil, err
	}
	users, err := a.db.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, userID := range users {
		if _, err := a.weights.Get(ctx, userID); err != nil {
			return nil, fmt.Errorf("create weight profile for %s: %w", userID, err)
		}
	}
	return res, nil
}

// seedIfEmpty seeds only a database without products.
func seedIfEmpty(ctx context.Context, a *app) error {
	counts, err := a.db.Counts(ctx)
	if err != nil {
		return fmt.Errorf("check database before seeding: %w", err)
	}
	if counts.Products > 0 {
		logging.Info().Int("products", counts.Products).Msg("database not empty, skipping seed")
		return nil
	}
	opts := database.DefaultSeedOptions()
	opts.Seed = a.cfg.Database.SeedValue
	if _, err := seedData(ctx, a, opts); err != nil {
		return fmt.Errorf("seed on startup: %w", err)
	}
	return nil
}

func deleteData(ctx context.Context, a *app) (*deleteResult, error) {
	rows, err := a.db.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete rows: %w", err)
	}
	profiles, err := a.weights.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete weight profiles: %w", err)
	}
	snapshots, err := a.artifacts.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete snapshots: %w", err)
	}
	return &deleteResult{
		Products:  rows.Products,
		Users:     rows.Users,
		Events:    rows.Events,
		Profiles:  profiles,
		Snapshots: snapshots,
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
