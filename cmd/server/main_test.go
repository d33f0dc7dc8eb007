// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/database"
	"github.com/tomtom215/shopfeed/internal/eventbus"
	"github.com/tomtom215/shopfeed/internal/models"
)

// writeTestConfig writes a config using an in-memory database, in-memory
// weights and a temporary artifacts directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `
database:
  path: ":memory:"
  max_memory: "256MB"
  threads: 1
weights:
  in_memory: true
artifacts:
  path: "` + filepath.ToSlash(filepath.Join(dir, "artifacts")) + `"
  keep_versions: 2
recommend:
  rebuild_on_startup: false
  cluster_count: 3
logging:
  level: disabled
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testApp(t *testing.T) *app {
	t.Helper()
	cfg, err := loadConfig(writeTestConfig(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	a, err := openApp(cfg)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return a
}

func smallSeed() database.SeedOptions {
	opts := database.DefaultSeedOptions()
	opts.Users = 6
	opts.ProductsPerCategory = 2
	opts.OrdersPerUser = 3
	opts.LiveEventsPerUser = 2
	return opts
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"serve", "seed", "rebuild", "delete-data"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("root command should have a persistent --config flag")
	}
}

func TestRootCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"delete without confirmation", []string{"delete-data"}, "--yes"},
		{"missing config file", []string{"seed", "--config", "/nonexistent/shopfeed.yaml"}, "config file"},
		{"unexpected argument", []string{"rebuild", "now"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})

			err := root.Execute()
			if err == nil {
				t.Fatal("Execute() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSeedCmd_PrintsResult(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"seed", "--config", writeTestConfig(t), "--users", "4", "--products-per-category", "2"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var res database.SeedResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(res.Users) != 4 {
		t.Errorf("seeded %d users, want 4", len(res.Users))
	}
	if res.Products == 0 || res.Historical == 0 {
		t.Errorf("seed result = %+v, want products and historical events", res)
	}
}

func TestSeedData_CreatesProfiles(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	// A shopper known only from live traffic also gets a profile.
	walkIn := &models.Event{
		ID:        "walk-in-1",
		UserID:    "walk-in",
		Action:    models.ActionSeen,
		Detail:    models.EventDetail{ProductID: 1, Category: "shoes"},
		Timestamp: time.Now().UTC(),
	}
	if err := a.db.AppendEvent(ctx, walkIn); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	res, err := seedData(ctx, a, smallSeed())
	if err != nil {
		t.Fatalf("seedData() error = %v", err)
	}

	profiles, err := a.weights.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if profiles != len(res.Users)+1 {
		t.Errorf("profiles = %d, want %d", profiles, len(res.Users)+1)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	if err := seedIfEmpty(ctx, a); err != nil {
		t.Fatalf("seedIfEmpty() on empty database error = %v", err)
	}
	first, err := a.db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if first.Products == 0 {
		t.Fatal("empty database should have been seeded")
	}

	if err := seedIfEmpty(ctx, a); err != nil {
		t.Fatalf("seedIfEmpty() on seeded database error = %v", err)
	}
	second, err := a.db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if second != first {
		t.Errorf("counts changed from %+v to %+v, seeded database should be left alone", first, second)
	}
}

func TestRebuildAndDeleteData(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	if _, err := seedData(ctx, a, smallSeed()); err != nil {
		t.Fatalf("seedData() error = %v", err)
	}
	res, err := a.engine.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !res.Persisted {
		t.Error("rebuild should persist a snapshot")
	}

	deleted, err := deleteData(ctx, a)
	if err != nil {
		t.Fatalf("deleteData() error = %v", err)
	}
	if deleted.Products == 0 || deleted.Users == 0 || deleted.Events == 0 {
		t.Errorf("deleted rows = %+v, want all tables non-zero", deleted)
	}
	if deleted.Profiles != 6 {
		t.Errorf("deleted profiles = %d, want 6", deleted.Profiles)
	}
	if deleted.Snapshots != 1 {
		t.Errorf("deleted snapshots = %d, want 1", deleted.Snapshots)
	}

	counts, err := a.db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() error = %v", err)
	}
	if counts != (database.Counts{}) {
		t.Errorf("counts after delete = %+v, want zero", counts)
	}
}

func TestHTTPServerAndTree(t *testing.T) {
	a := testApp(t)

	bus, err := eventbus.New(&a.cfg.Events, zerolog.Nop())
	if err != nil {
		t.Fatalf("eventbus.New() error = %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })

	server := newHTTPServer(a, bus)
	if server.Addr != a.cfg.Server.Addr() {
		t.Errorf("Addr = %q, want %q", server.Addr, a.cfg.Server.Addr())
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200: %s", rec.Code, rec.Body)
	}

	tree, err := buildTree(a, bus, server)
	if err != nil {
		t.Fatalf("buildTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Error("tree should have a root supervisor")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	cfg, err := loadConfig(writeTestConfig(t))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	if !cfg.Weights.InMemory {
		t.Error("Weights.InMemory should be true")
	}
	if cfg.Recommend.ClusterCount != 3 {
		t.Errorf("ClusterCount = %d, want 3", cfg.Recommend.ClusterCount)
	}
	// Untouched keys keep their defaults.
	if cfg.Recommend.FeedMode != "separated" {
		t.Errorf("FeedMode = %q, want separated", cfg.Recommend.FeedMode)
	}
}
