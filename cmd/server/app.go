// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package main

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/shopfeed/internal/cache"
	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/database"
	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/recommend"
	"github.com/tomtom215/shopfeed/internal/recommend/storage"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// loadConfig reads an explicit file when one is given, otherwise the default
// search path, then initializes the global logger from it.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadWithKoanf()
	}
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)

	return cfg, nil
}

// app holds the stores and the engine every command works on.
type app struct {
	cfg       *config.Config
	db        *database.DB
	catalog   *cache.Catalog
	badgerDB  *badger.DB
	weights   *weights.BadgerStore
	artifacts *storage.SnapshotStore
	engine    *recommend.Engine
}

// openApp opens the database, the weight store and the snapshot store, and
// builds the engine over them. Anything opened before a failure is closed.
func openApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				logging.Warn().Err(cerr).Msg("failed to close partially opened stores")
			}
		}
	}()

	if a.db, err = database.New(&cfg.Database); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("database opened")
	a.catalog = cache.NewCatalog(a.db, cfg.Database.CatalogCacheSize, cfg.Database.CatalogCacheTTL)

	recCfg, err := recommend.FromAppConfig(&cfg.Recommend, &cfg.Database, &cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}

	a.badgerDB, err = weights.OpenDB(weights.Options{
		Path:       cfg.Weights.Path,
		InMemory:   cfg.Weights.InMemory,
		SyncWrites: cfg.Weights.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open weight store: %w", err)
	}
	a.weights = weights.NewBadgerStore(a.badgerDB, recCfg.Learning)
	logging.Info().
		Str("path", cfg.Weights.Path).
		Bool("in_memory", cfg.Weights.InMemory).
		Msg("weight store opened")

	if a.artifacts, err = storage.NewSnapshotStore(cfg.Artifacts.Path, cfg.Artifacts.KeepVersions); err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	a.engine, err = recommend.NewEngine(recCfg, recommend.Deps{
		Events:    a.db,
		Catalog:   a.catalog,
		Users:     a.db,
		Weights:   a.weights,
		Artifacts: a.artifacts,
	}, logging.WithComponent("recommend"))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return a, nil
}

// Close closes the weight store and the database.
func (a *app) Close() error {
	var errs []error
	if a.badgerDB != nil {
		if err := a.badgerDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close weight store: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
