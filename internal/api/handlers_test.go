// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopfeed/internal/config"
	"github.com/tomtom215/shopfeed/internal/logging"
	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend"
	"github.com/tomtom215/shopfeed/internal/recommend/feed"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

var testProducts = map[int64]models.Product{
	1: {ID: 1, Name: "Runner", Brand: "Acme", Category: "shoes"},
	2: {ID: 2, Name: "Trail", Brand: "Acme", Category: "shoes"},
	3: {ID: 3, Name: "Novel", Brand: "Penguin", Category: "books"},
}

type fakeEngine struct {
	mu         sync.Mutex
	feed       *recommend.Feed
	rec        *recommend.Recommendations
	err        error
	rebuildErr error
	validated  []models.Event
	feedback   []string
	ctxUsers   []string
}

func (f *fakeEngine) sawUser(ctx context.Context) {
	f.mu.Lock()
	f.ctxUsers = append(f.ctxUsers, logging.UserIDFromContext(ctx))
	f.mu.Unlock()
}

func (f *fakeEngine) Feed(ctx context.Context, userID string) (*recommend.Feed, error) {
	f.sawUser(ctx)
	if f.err != nil {
		return nil, f.err
	}
	out := *f.feed
	out.UserID = userID
	return &out, nil
}

func (f *fakeEngine) Recommendations(ctx context.Context, userID string, n int) (*recommend.Recommendations, error) {
	f.sawUser(ctx)
	if f.err != nil {
		return nil, f.err
	}
	out := *f.rec
	out.UserID = userID
	if n > 0 && n < len(out.Items) {
		out.Items = out.Items[:n]
	}
	return &out, nil
}

func (f *fakeEngine) Feedback(ctx context.Context, userID, signal string) (weights.Profile, bool, error) {
	f.sawUser(ctx)
	if f.err != nil {
		return weights.Profile{}, false, f.err
	}
	f.mu.Lock()
	f.feedback = append(f.feedback, userID+":"+signal)
	f.mu.Unlock()
	p := weights.Defaults()
	p.Collab += 0.1
	return p, signal == "collab", nil
}

func (f *fakeEngine) Rebuild(context.Context) (*recommend.RebuildResult, error) {
	if f.rebuildErr != nil {
		return nil, f.rebuildErr
	}
	return &recommend.RebuildResult{Version: 3, Events: 10, Users: 2, Items: 3, Persisted: true}, nil
}

func (f *fakeEngine) ValidateEvent(_ context.Context, ev *models.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if id, ok := ev.ItemID(); ok {
		p, found := testProducts[id]
		if !found {
			return fmt.Errorf("%w: %d", recommend.ErrUnknownProduct, id)
		}
		if ev.Detail.Category == "" {
			ev.Detail.Category = p.Category
		}
	}
	f.mu.Lock()
	f.validated = append(f.validated, *ev)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Status() recommend.Status {
	return recommend.Status{SnapshotVersion: 2, Users: 2, Items: 3}
}

type fakeCatalog struct{}

func (fakeCatalog) AllProducts(context.Context) ([]models.Product, error) {
	return []models.Product{testProducts[3], testProducts[1], testProducts[2]}, nil
}

func (fakeCatalog) Products(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product)
	for _, id := range ids {
		if p, ok := testProducts[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeIngestor struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (f *fakeIngestor) Ingest(_ context.Context, ev *models.Event) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return true, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error"`
}

func newTestServer(t *testing.T, eng *fakeEngine, ing *fakeIngestor, db Pinger) http.Handler {
	t.Helper()
	h := NewHandler(eng, fakeCatalog{}, ing, db, zerolog.Nop())
	h.now = func() time.Time { return testNow }
	return NewRouter(h, &config.SecurityConfig{RateLimitDisabled: true})
}

func defaultEngine() *fakeEngine {
	return &fakeEngine{
		feed: &recommend.Feed{
			Mode: feed.ModeSeparated,
			Lists: feed.Lists{
				Collaborative: []int64{2},
				SelfFeed:      []int64{3, 99},
				Trending:      []int64{1},
			},
			Products:        map[int64]models.Product{1: testProducts[1], 2: testProducts[2], 3: testProducts[3]},
			SnapshotVersion: 4,
		},
		rec: &recommend.Recommendations{
			Items:           []feed.Scored{{ItemID: 2, Score: 0.9}, {ItemID: 3, Score: 0.4}, {ItemID: 1, Score: 0.1}},
			Weights:         weights.Defaults(),
			SnapshotVersion: 4,
		},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestFeed_Separated(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, nil)
	rec, env := do(t, srv, http.MethodGet, "/api/feed?user_id=B", "")

	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("status = %d/%s, want 200/success", rec.Code, env.Status)
	}
	var resp FeedResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.UserID != "B" || resp.Mode != feed.ModeSeparated || resp.SnapshotVersion != 4 {
		t.Errorf("response header = %+v", resp)
	}
	if len(resp.ForYou) != 1 || resp.ForYou[0].ID != 2 || resp.ForYou[0].Name != "Trail" {
		t.Errorf("for_you = %+v, want product 2 with details", resp.ForYou)
	}
	if len(resp.BasedOnWatchlist) != 1 || resp.BasedOnWatchlist[0].ID != 3 {
		t.Errorf("based_on_watchlist = %+v, want [3] (99 is not in the catalog)", resp.BasedOnWatchlist)
	}
	if len(resp.Trending) != 1 || resp.Trending[0].ID != 1 {
		t.Errorf("trending = %+v, want [1]", resp.Trending)
	}
}

func TestFeed_Blended(t *testing.T) {
	t.Parallel()

	eng := defaultEngine()
	eng.feed = &recommend.Feed{
		Mode:     feed.ModeBlended,
		Blended:  []feed.Scored{{ItemID: 3, Score: 0.7}},
		Products: map[int64]models.Product{3: testProducts[3]},
	}
	srv := newTestServer(t, eng, &fakeIngestor{}, nil)
	_, env := do(t, srv, http.MethodGet, "/api/feed?user_id=B", "")

	var resp BlendedFeedResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != 3 || resp.Items[0].Score == nil || *resp.Items[0].Score != 0.7 {
		t.Errorf("items = %+v, want product 3 scored 0.7", resp.Items)
	}
}

func TestFeed_MissingUser(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, nil)
	rec, env := do(t, srv, http.MethodGet, "/api/feed", "")
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != ErrCodeValidation {
		t.Errorf("response = %d %+v, want 400 VALIDATION_ERROR", rec.Code, env.Error)
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, nil)

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantItems []int64
	}{
		{"default size", "/recommendations/B", http.StatusOK, []int64{2, 3, 1}},
		{"explicit n", "/recommendations/B?n=2", http.StatusOK, []int64{2, 3}},
		{"n zero", "/recommendations/B?n=0", http.StatusBadRequest, nil},
		{"n too large", "/recommendations/B?n=1000", http.StatusBadRequest, nil},
		{"n not a number", "/recommendations/B?n=abc", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, env := do(t, srv, http.MethodGet, tt.target, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantItems == nil {
				return
			}
			var resp RecommendationsResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if len(resp.Items) != len(tt.wantItems) {
				t.Fatalf("items = %+v, want %v", resp.Items, tt.wantItems)
			}
			for i, id := range tt.wantItems {
				if resp.Items[i].ID != id {
					t.Errorf("items[%d] = %d, want %d", i, resp.Items[i].ID, id)
				}
			}
			if resp.Weights.Collab != weights.Defaults().Collab {
				t.Errorf("weights = %+v, want defaults", resp.Weights)
			}
		})
	}
}

func TestEngineErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"unknown user", fmt.Errorf("%w: zed", recommend.ErrUnknownUser), http.StatusNotFound, ErrCodeNotFound},
		{"invalid user", recommend.ErrInvalidUserID, http.StatusBadRequest, ErrCodeValidation},
		{"timeout", fmt.Errorf("load events: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"rate limited", recommend.ErrFeedbackRateLimited, http.StatusTooManyRequests, ErrCodeRateLimited},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := defaultEngine()
			eng.err = tt.err
			srv := newTestServer(t, eng, &fakeIngestor{}, nil)

			rec, env := do(t, srv, http.MethodGet, "/recommendations/zed", "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("envelope = %+v, want code %s", env, tt.wantErr)
			}
			if tt.wantCode == http.StatusInternalServerError && env.Error.Message != "internal error" {
				t.Errorf("message = %q, internal details must not leak", env.Error.Message)
			}
		})
	}
}

func TestItems(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, nil)
	rec, env := do(t, srv, http.MethodGet, "/api/items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var groups []models.CategoryGroup
	if err := json.Unmarshal(env.Data, &groups); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(groups) != 2 || groups[0].Category != "books" || len(groups[1].Products) != 2 || groups[1].Products[0].ID != 1 {
		t.Errorf("groups = %+v, want books then shoes [1 2]", groups)
	}
}

func TestEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"accepted", `{"user_id":"u1","action":"Order","product_id":1}`, http.StatusAccepted, ""},
		{"purchase alias", `{"user_id":"u1","action":"purchase","product_id":2}`, http.StatusAccepted, ""},
		{"unknown product", `{"user_id":"u1","action":"seen","product_id":42}`, http.StatusNotFound, ErrCodeNotFound},
		{"missing product", `{"user_id":"u1","action":"seen"}`, http.StatusBadRequest, ErrCodeValidation},
		{"missing user", `{"action":"seen","product_id":1}`, http.StatusBadRequest, ErrCodeValidation},
		{"unknown action", `{"user_id":"u1","action":"like","product_id":1}`, http.StatusBadRequest, ErrCodeValidation},
		{"not json", `{`, http.StatusBadRequest, ErrCodeValidation},
		{"empty body", ``, http.StatusBadRequest, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ing := &fakeIngestor{}
			srv := newTestServer(t, defaultEngine(), ing, nil)
			rec, env := do(t, srv, http.MethodPost, "/api/event", tt.body)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr != "" {
				if env.Error == nil || env.Error.Code != tt.wantErr {
					t.Errorf("error = %+v, want %s", env.Error, tt.wantErr)
				}
				if len(ing.events) != 0 {
					t.Error("rejected event must not be ingested")
				}
				return
			}
			if len(ing.events) != 1 {
				t.Fatalf("ingested %d events, want 1", len(ing.events))
			}
			ev := ing.events[0]
			if ev.Detail.Category != "shoes" || !ev.Timestamp.Equal(testNow) || ev.Historical {
				t.Errorf("event = %+v, want live shoes event at now", ev)
			}
			var resp EventResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if resp.EventID != ev.ID || !resp.Queued {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantTS   time.Time
	}{
		{
			name:     "client timestamp kept",
			body:     `{"user_id":"u1","action":"seen","detail":{"product_id":3},"client_timestamp":"2026-05-01T11:00:00Z"}`,
			wantCode: http.StatusAccepted,
			wantTS:   testNow.Add(-time.Hour),
		},
		{
			name:     "future timestamp replaced",
			body:     `{"user_id":"u1","action":"seen","detail":{"product_id":3},"client_timestamp":"2026-05-02T12:00:00Z"}`,
			wantCode: http.StatusAccepted,
			wantTS:   testNow,
		},
		{
			name:     "search with query",
			body:     `{"user_id":"u1","action":"search","detail":{"query":"running shoes"}}`,
			wantCode: http.StatusAccepted,
			wantTS:   testNow,
		},
		{
			name:     "search without query",
			body:     `{"user_id":"u1","action":"search","detail":{}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "seen without product",
			body:     `{"user_id":"u1","action":"seen","detail":{"text":"hi"}}`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ing := &fakeIngestor{}
			srv := newTestServer(t, defaultEngine(), ing, nil)
			rec, _ := do(t, srv, http.MethodPost, "/api/log", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusAccepted {
				return
			}
			if len(ing.events) != 1 || !ing.events[0].Timestamp.Equal(tt.wantTS) {
				t.Errorf("events = %+v, want timestamp %v", ing.events, tt.wantTS)
			}
		})
	}
}

func TestEvent_IngestFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{err: errors.New("database locked")}, nil)
	rec, _ := do(t, srv, http.MethodPost, "/api/event", `{"user_id":"u1","action":"seen","product_id":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestFeedback(t *testing.T) {
	t.Parallel()

	eng := defaultEngine()
	srv := newTestServer(t, eng, &fakeIngestor{}, nil)

	rec, env := do(t, srv, http.MethodPost, "/feedback", `{"user_id":"u1","dominant_signal":"collab"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp FeedbackResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !resp.Changed || resp.Weights.Collab <= weights.Defaults().Collab {
		t.Errorf("response = %+v, want changed with higher collab", resp)
	}

	rec, env = do(t, srv, http.MethodPost, "/feedback", `{"user_id":"u1"}`)
	if rec.Code != http.StatusBadRequest || env.Error.Details["field"] != "dominant_signal" {
		t.Errorf("missing signal = %d %+v, want 400 naming dominant_signal", rec.Code, env.Error)
	}
}

func TestHandlers_TagUserContext(t *testing.T) {
	t.Parallel()

	eng := defaultEngine()
	srv := newTestServer(t, eng, &fakeIngestor{}, nil)

	do(t, srv, http.MethodGet, "/api/feed?user_id=%20shopper-1%20", "")
	do(t, srv, http.MethodGet, "/recommendations/shopper-2", "")
	do(t, srv, http.MethodPost, "/feedback", `{"user_id":"shopper-3","dominant_signal":"seen"}`)

	want := []string{"shopper-1", "shopper-2", "shopper-3"}
	if strings.Join(eng.ctxUsers, ",") != strings.Join(want, ",") {
		t.Errorf("context user ids = %v, want %v", eng.ctxUsers, want)
	}
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantRebuilt bool
	}{
		{"success", nil, http.StatusOK, true},
		{"no history", recommend.ErrNoHistoricalEvents, http.StatusOK, false},
		{"in progress", recommend.ErrRebuildInProgress, http.StatusConflict, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := defaultEngine()
			eng.rebuildErr = tt.err
			srv := newTestServer(t, eng, &fakeIngestor{}, nil)

			rec, env := do(t, srv, http.MethodPost, "/api/admin/rebuild", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code != http.StatusOK {
				if env.Error == nil || env.Error.Code != ErrCodeConflict {
					t.Errorf("error = %+v, want CONFLICT", env.Error)
				}
				return
			}
			var resp RebuildResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if resp.Rebuilt != tt.wantRebuilt {
				t.Errorf("rebuilt = %v, want %v", resp.Rebuilt, tt.wantRebuilt)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db         Pinger
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{"no database", nil, http.StatusOK, "healthy", "unchecked"},
		{"database ok", fakePinger{}, http.StatusOK, "healthy", "ok"},
		{"database down", fakePinger{err: errors.New("closed")}, http.StatusServiceUnavailable, "degraded", "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, tt.db)
			rec, env := do(t, srv, http.MethodGet, "/health", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Database != tt.wantDB || resp.Engine.SnapshotVersion != 2 {
				t.Errorf("health = %+v", resp)
			}
		})
	}
}

func TestRouter_NotFoundAndRequestID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, defaultEngine(), &fakeIngestor{}, nil)
	rec, env := do(t, srv, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("response = %d %+v, want 404 NOT_FOUND", rec.Code, env.Error)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRouter_CORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		want    string
	}{
		{"listed origin", []string{"https://shop.example"}, "https://shop.example"},
		{"no origins configured", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(defaultEngine(), fakeCatalog{}, &fakeIngestor{}, fakePinger{}, zerolog.Nop())
			srv := NewRouter(h, &config.SecurityConfig{RateLimitDisabled: true, CORSOrigins: tt.origins})

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", "https://shop.example")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
