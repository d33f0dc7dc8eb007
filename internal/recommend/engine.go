// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/shopfeed/internal/metrics"
	"github.com/tomtom215/shopfeed/internal/models"
	"github.com/tomtom215/shopfeed/internal/recommend/algorithms"
	"github.com/tomtom215/shopfeed/internal/recommend/feed"
	"github.com/tomtom215/shopfeed/internal/recommend/storage"
	"github.com/tomtom215/shopfeed/internal/recommend/weights"
)

// Engine builds model snapshots from historical events and serves feeds
// from the current snapshot plus live events. It is safe for concurrent use.
//
// A rebuild publishes a complete new snapshot with a single atomic swap.
// Requests never observe a partially built model and never block on a
// rebuild.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	events    EventSource
	catalog   Catalog
	users     UserDirectory
	weights   WeightStore
	artifacts ArtifactStore

	collab   algorithms.CollaborativeScorer
	builder  algorithms.ModelBuilder
	personal algorithms.PersonalScorer
	trending algorithms.TrendingScorer
	composer feed.Composer

	snapshot atomic.Pointer[algorithms.Model]
	version  atomic.Uint64

	rebuildMu  sync.Mutex
	rebuilding atomic.Bool
	statusMu   sync.RWMutex
	lastRun    time.Time
	lastErr    string

	breaker  *gobreaker.CircuitBreaker[[]models.Event]
	limiters sync.Map // user id -> *rate.Limiter

	now func() time.Time
}

// NewEngine creates a new recommendation engine. The engine starts with an
// empty snapshot: every scorer yields nothing until the first rebuild or
// LoadArtifacts succeeds.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Events == nil || deps.Catalog == nil || deps.Users == nil || deps.Weights == nil {
		return nil, errors.New("events, catalog, users and weights are required")
	}

	collab, err := algorithms.NewCollaborativeScorer(cfg.CollaborativeStrategy, cfg.SimilarItems)
	if err != nil {
		return nil, err
	}
	trending := algorithms.TrendingScorer{
		Window:  cfg.TrendingWindow,
		Lambda:  cfg.TrendingDecay,
		Actions: cfg.TrendingActions,
		Limit:   cfg.TrendingLimit,
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "recommend").Logger(),
		events:    deps.Events,
		catalog:   deps.Catalog,
		users:     deps.Users,
		weights:   deps.Weights,
		artifacts: deps.Artifacts,
		collab:    collab,
		builder: algorithms.ModelBuilder{
			Matrix: algorithms.MatrixBuilder{Strengths: cfg.InteractionStrengths},
			KMeans: algorithms.KMeans{
				K:             cfg.ClusterCount,
				Seed:          cfg.ClusterSeed,
				MaxIterations: cfg.MaxIterations,
			},
			Trending: trending,
		},
		personal: algorithms.PersonalScorer{ActionWeights: cfg.ActionWeights, TopN: cfg.TopCategories},
		trending: trending,
		composer: feed.Composer{ListSize: cfg.ListSize},
		now:      time.Now,
	}
	e.snapshot.Store(&algorithms.Model{})
	e.breaker = gobreaker.NewCircuitBreaker[[]models.Event](gobreaker.Settings{
		Name:        "historical-events",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	e.logger.Info().
		Str("collaborative", collab.Name()).
		Int("clusters", cfg.ClusterCount).
		Str("feed_mode", cfg.FeedMode).
		Msg("recommendation engine initialized")
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Snapshot returns the current published model. It is never nil.
func (e *Engine) Snapshot() *algorithms.Model { return e.snapshot.Load() }

// Rebuild fetches every historical event, builds a new model and publishes
// it. Only one rebuild runs at a time; a concurrent call returns
// ErrRebuildInProgress immediately. When no historical events exist the
// current snapshot is kept, nothing is persisted and ErrNoHistoricalEvents
// is returned.
func (e *Engine) Rebuild(ctx context.Context) (*RebuildResult, error) {
	if !e.rebuildMu.TryLock() {
		metrics.RecordRebuild("busy", 0)
		return nil, ErrRebuildInProgress
	}
	defer e.rebuildMu.Unlock()
	e.rebuilding.Store(true)
	defer e.rebuilding.Store(false)

	start := time.Now()
	if e.cfg.RebuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RebuildTimeout)
		defer cancel()
	}

	res, err := e.rebuild(ctx, start)
	e.recordRun(err)
	switch {
	case errors.Is(err, ErrNoHistoricalEvents):
		metrics.RecordRebuild("skipped", time.Since(start))
	case err != nil:
		metrics.RecordRebuild("failed", time.Since(start))
		e.logger.Error().Err(err).Msg("rebuild failed")
	default:
		metrics.RecordRebuild("success", res.Duration)
	}
	return res, err
}

func (e *Engine) rebuild(ctx context.Context, start time.Time) (*RebuildResult, error) {
	events, err := e.breaker.Execute(func() ([]models.Event, error) {
		return e.events.HistoricalEvents(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load historical events: %w", err)
	}
	if len(events) == 0 {
		e.logger.Warn().
			Uint64("version", e.version.Load()).
			Msg("no historical events, keeping current snapshot")
		return nil, ErrNoHistoricalEvents
	}

	products, err := e.catalog.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	catalog := make(map[int64]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	builder := e.builder
	builder.Matrix.Catalog = catalog
	version := e.version.Load() + 1
	model, err := builder.Build(ctx, events, version, e.now())
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	duration := time.Since(start)

	persisted := false
	if e.artifacts != nil {
		if err := e.artifacts.Save(ctx, model, duration); err != nil {
			e.logger.Warn().Err(err).Uint64("version", version).Msg("failed to persist snapshot, serving from memory")
		} else {
			persisted = true
		}
	}

	e.publish(model)

	if err := e.users.SetClusters(ctx, model.Clusters.Assignments); err != nil {
		e.logger.Warn().Err(err).Msg("failed to store cluster assignments")
	}
	if model.Skipped > 0 {
		metrics.RecordSkippedEvents("rebuild", model.Skipped)
	}

	res := &RebuildResult{
		Version:    version,
		Events:     len(events),
		Users:      len(model.History),
		Items:      model.Similarity.Len(),
		Clusters:   clusterCount(model),
		Skipped:    model.Skipped,
		Persisted:  persisted,
		Duration:   duration,
		DurationMS: duration.Milliseconds(),
	}
	e.logger.Info().
		Uint64("version", res.Version).
		Int("events", res.Events).
		Int("users", res.Users).
		Int("items", res.Items).
		Int("clusters", res.Clusters).
		Int("skipped", res.Skipped).
		Dur("duration", duration).
		Msg("snapshot rebuilt")
	return res, nil
}

func (e *Engine) publish(model *algorithms.Model) {
	e.snapshot.Store(model)
	e.version.Store(model.Version)
	metrics.SetSnapshot(model.Version, model.Similarity.Len(), clusterCount(model))
}

func (e *Engine) recordRun(err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.lastRun = e.now()
	e.lastErr = ""
	if err != nil {
		e.lastErr = err.Error()
	}
}

// LoadArtifacts publishes the most recently persisted snapshot, if any.
// It returns false without error when nothing was persisted yet.
func (e *Engine) LoadArtifacts(ctx context.Context) (bool, error) {
	if e.artifacts == nil {
		return false, nil
	}
	model, err := e.artifacts.LoadLatest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	e.publish(model)
	e.logger.Info().
		Uint64("version", model.Version).
		Time("built_at", model.BuiltAt).
		Msg("loaded persisted snapshot")
	return true, nil
}

// Status reports the serving snapshot and the last rebuild outcome.
func (e *Engine) Status() Status {
	m := e.snapshot.Load()
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return Status{
		SnapshotVersion: m.Version,
		BuiltAt:         m.BuiltAt,
		Users:           len(m.History),
		Items:           m.Similarity.Len(),
		Clusters:        clusterCount(m),
		Rebuilding:      e.rebuilding.Load(),
		LastRebuildAt:   e.lastRun,
		LastError:       e.lastErr,
	}
}

func clusterCount(m *algorithms.Model) int {
	if m.Clusters == nil {
		return 0
	}
	return m.Clusters.K
}

// userState is everything a feed reads about one user.
type userState struct {
	live       []models.Event
	history    []int64
	interacted map[int64]struct{}
}

func (e *Engine) loadUser(ctx context.Context, model *algorithms.Model, userID string) (userState, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	live, err := e.events.UserEvents(qctx, userID, e.now().Add(-e.cfg.LiveWindow))
	if err != nil {
		return userState{}, fmt.Errorf("load live events: %w", err)
	}

	st := userState{live: live, interacted: make(map[int64]struct{})}
	st.history = model.UserHistory(userID)
	for _, id := range st.history {
		st.interacted[id] = struct{}{}
	}
	for i := range live {
		if id, ok := live[i].ItemID(); ok {
			if _, dup := st.interacted[id]; !dup {
				st.interacted[id] = struct{}{}
				st.history = append(st.history, id)
			}
		}
	}
	return st, nil
}

// businessScores returns live trending plus promotion boosts, and whether
// trending fell back to the historical snapshot.
func (e *Engine) businessScores(ctx context.Context, model *algorithms.Model) (map[int64]float64, bool, error) {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()

	now := e.now()
	actions := e.cfg.TrendingActions
	if len(actions) == 0 {
		actions = []models.Action{models.ActionOrder}
	}
	live, err := e.events.EventsByAction(qctx, actions, now.Add(-e.cfg.TrendingWindow))
	if err != nil {
		return nil, false, fmt.Errorf("load trending events: %w", err)
	}
	trend := e.trending.Score(live, nil, now)
	if len(trend.Scores) == 0 {
		trend = model.Popular
	}
	return algorithms.BusinessScores(trend, model.Boost), trend.FromHistory, nil
}

// Recommendations returns the blended top-n for a known user. n <= 0 uses
// the configured list size. Items the user already interacted with are
// never recommended.
func (e *Engine) Recommendations(ctx context.Context, userID string, n int) (*Recommendations, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	profile, err := e.weights.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	model := e.snapshot.Load()
	st, err := e.loadUser(ctx, model, userID)
	if err != nil {
		return nil, err
	}
	business, _, err := e.businessScores(ctx, model)
	if err != nil {
		return nil, err
	}
	personal, err := e.personalScores(ctx, st.live, profile.SubWeights())
	if err != nil {
		return nil, err
	}

	items := e.composer.Blended(
		feed.Weights{Collab: profile.Collab, User: profile.User, Business: profile.Business},
		feed.Sources{
			Collab:   e.collab.Score(model, userID, st.history),
			Personal: personal,
			Business: business,
		},
		st.interacted,
		n,
	)
	metrics.RecordFeed(feed.ModeBlended, map[string]int{"blended": len(items)})

	e.logger.Debug().
		Str("user_id", userID).
		Int("items", len(items)).
		Uint64("version", model.Version).
		Msg("served recommendations")

	return &Recommendations{
		UserID:          userID,
		Items:           items,
		Weights:         profile,
		SnapshotVersion: model.Version,
	}, nil
}

// Feed composes the user's feed in the configured mode. Unknown users get
// a feed built from trending and promotions only.
func (e *Engine) Feed(ctx context.Context, userID string) (*Feed, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	if e.cfg.FeedMode == feed.ModeBlended {
		return e.blendedFeed(ctx, userID)
	}

	model := e.snapshot.Load()
	st, err := e.loadUser(ctx, model, userID)
	if err != nil {
		return nil, err
	}
	business, fromHistory, err := e.businessScores(ctx, model)
	if err != nil {
		return nil, err
	}

	self, err := e.selfFeed(ctx, st.live)
	if err != nil {
		return nil, err
	}

	lists := e.composer.Separated(
		e.collab.Ranked(model, userID, st.history),
		self,
		rankScores(business),
		st.interacted,
	)
	products, err := e.resolve(ctx, append(append(append([]int64{}, lists.Collaborative...), lists.SelfFeed...), lists.Trending...))
	if err != nil {
		return nil, err
	}
	metrics.RecordFeed(feed.ModeSeparated, map[string]int{
		"collaborative": len(lists.Collaborative),
		"self_feed":     len(lists.SelfFeed),
		"trending":      len(lists.Trending),
	})

	return &Feed{
		UserID:              userID,
		Mode:                feed.ModeSeparated,
		Lists:               lists,
		Products:            products,
		TrendingFromHistory: fromHistory,
		SnapshotVersion:     model.Version,
	}, nil
}

func (e *Engine) blendedFeed(ctx context.Context, userID string) (*Feed, error) {
	rec, err := e.Recommendations(ctx, userID, 0)
	if errors.Is(err, ErrUnknownUser) {
		return e.anonymousBlended(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rec.Items))
	for i, it := range rec.Items {
		ids[i] = it.ItemID
	}
	products, err := e.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &Feed{
		UserID:          userID,
		Mode:            feed.ModeBlended,
		Lists:           feed.Lists{Collaborative: []int64{}, SelfFeed: []int64{}, Trending: []int64{}},
		Blended:         rec.Items,
		Products:        products,
		SnapshotVersion: rec.SnapshotVersion,
	}, nil
}

// anonymousBlended serves default weights over business scores only.
func (e *Engine) anonymousBlended(ctx context.Context, userID string) (*Feed, error) {
	model := e.snapshot.Load()
	business, fromHistory, err := e.businessScores(ctx, model)
	if err != nil {
		return nil, err
	}
	d := weights.Defaults()
	items := e.composer.Blended(
		feed.Weights{Collab: d.Collab, User: d.User, Business: d.Business},
		feed.Sources{Business: business},
		nil, 0,
	)
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	products, err := e.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	metrics.RecordFeed(feed.ModeBlended, map[string]int{"blended": len(items)})
	return &Feed{
		UserID:              userID,
		Mode:                feed.ModeBlended,
		Lists:               feed.Lists{Collaborative: []int64{}, SelfFeed: []int64{}, Trending: []int64{}},
		Blended:             items,
		Products:            products,
		TrendingFromHistory: fromHistory,
		SnapshotVersion:     model.Version,
	}, nil
}

func (e *Engine) selfFeed(ctx context.Context, live []models.Event) ([]int64, error) {
	top := e.personal.TopCategories(live)
	products, err := e.categoryProducts(ctx, top)
	if err != nil {
		return nil, err
	}
	return e.personal.Candidates(top, products), nil
}

// personalScores is the personal series of the blended feed: the user's
// top categories, scored with the profile sub-weights, spread onto their
// catalog items.
func (e *Engine) personalScores(ctx context.Context, live []models.Event, sub algorithms.SubWeights) (map[int64]float64, error) {
	scorer := e.personal.WeightedBy(sub)
	top := scorer.TopCategories(live)
	products, err := e.categoryProducts(ctx, top)
	if err != nil {
		return nil, err
	}
	return scorer.CategoryItemScores(top, products), nil
}

func (e *Engine) categoryProducts(ctx context.Context, top []algorithms.CategoryScore) ([]models.Product, error) {
	if len(top) == 0 {
		return nil, nil
	}
	cats := make([]string, len(top))
	for i, c := range top {
		cats[i] = c.Category
	}

	qctx, cancel := e.queryContext(ctx)
	defer cancel()
	products, err := e.catalog.ProductsByCategory(qctx, cats)
	if err != nil {
		return nil, fmt.Errorf("load category products: %w", err)
	}
	return products, nil
}

func (e *Engine) resolve(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	if len(ids) == 0 {
		return map[int64]models.Product{}, nil
	}
	qctx, cancel := e.queryContext(ctx)
	defer cancel()
	products, err := e.catalog.Products(qctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	return products, nil
}

// rankScores orders items by score descending, then id ascending.
func rankScores(scores map[int64]float64) []int64 {
	ids := make([]int64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Feedback adapts the user's weight profile to an engagement signal.
// Unknown signals leave the profile untouched and report changed=false.
func (e *Engine) Feedback(ctx context.Context, userID, rawSignal string) (weights.Profile, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return weights.Profile{}, false, ErrInvalidUserID
	}
	signal := weights.ParseSignal(rawSignal)

	if !e.allowFeedback(userID) {
		metrics.RecordFeedback(string(signal), "limited")
		return weights.Profile{}, false, ErrFeedbackRateLimited
	}

	profile, changed, err := e.weights.Update(ctx, userID, signal)
	if err != nil {
		return weights.Profile{}, false, fmt.Errorf("update weights: %w", err)
	}

	outcome := "noop"
	if changed {
		outcome = "applied"
	}
	metrics.RecordFeedback(string(signal), outcome)
	e.logger.Debug().
		Str("user_id", userID).
		Str("signal", string(signal)).
		Bool("changed", changed).
		Msg("feedback processed")
	return profile, changed, nil
}

func (e *Engine) allowFeedback(userID string) bool {
	if e.cfg.FeedbackPerMinute <= 0 {
		return true
	}
	v, _ := e.limiters.LoadOrStore(userID, rate.NewLimiter(rate.Limit(e.cfg.FeedbackPerMinute/60), max(e.cfg.FeedbackBurst, 1)))
	limiter, ok := v.(*rate.Limiter)
	if !ok {
		return true
	}
	return limiter.Allow()
}

// ValidateEvent checks an incoming event and fills its category from the
// catalog when the client omitted it.
func (e *Engine) ValidateEvent(ctx context.Context, ev *models.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	id, ok := ev.ItemID()
	if !ok {
		return nil
	}
	products, err := e.resolve(ctx, []int64{id})
	if err != nil {
		return err
	}
	p, found := products[id]
	if !found {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, id)
	}
	if ev.Detail.Category == "" {
		ev.Detail.Category = p.Category
	}
	return nil
}

func (e *Engine) requireUser(ctx context.Context, userID string) error {
	qctx, cancel := e.queryContext(ctx)
	defer cancel()
	ok, err := e.users.UserExists(qctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	return nil
}

func (e *Engine) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.QueryTimeout)
}
