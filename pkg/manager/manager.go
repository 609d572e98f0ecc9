package manager

import (
	"context"
	"fmt"
	"sync"

	"bskyfollow/internal/enricher"
	"bskyfollow/pkg/bsky"
	"bskyfollow/pkg/bulk"
	"bskyfollow/pkg/config"
	errs "bskyfollow/pkg/errors"
	"bskyfollow/pkg/logger"
	"bskyfollow/pkg/models"
	"bskyfollow/pkg/ratelimit"
	"bskyfollow/pkg/relations"
)

// Set names one of the two computed account sets
type Set int

const (
	// NonFollowBacks are accounts the user follows that do not follow back
	NonFollowBacks Set = iota
	// Fans are followers the user does not follow
	Fans
)

func (s Set) String() string {
	if s == Fans {
		return "fans"
	}
	return "non-follow-backs"
}

func (s Set) listKind() bulk.ListKind {
	if s == Fans {
		return bulk.ListFans
	}
	return bulk.ListNonFollowers
}

// CombinedResult is the outcome of a list-then-write run
type CombinedResult struct {
	// List is nil when no list was created
	List      *models.ListResult
	ListError error
	Run       models.RunResult
}

// Manager holds the session and the loaded relationship snapshot, and runs
// bulk operations against it one at a time.
type Manager struct {
	client     BlueskyClient
	config     *config.Config
	logger     logger.Logger
	clock      ratelimit.Clock
	bulkOpts   []bulk.Option
	whitelists map[Set]Whitelist

	mu             sync.RWMutex
	follows        []models.Account
	followers      []models.Account
	nonFollowBacks []models.Account
	fans           []models.Account
	loaded         bool

	runMu sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithWhitelist protects handles of set from default selection
func WithWhitelist(set Set, wl Whitelist) Option {
	return func(m *Manager) { m.whitelists[set] = wl }
}

// WithClock sets the clock used for quotas, delays and list dates
func WithClock(clock ratelimit.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) { m.logger = log }
}

// WithBulkOptions passes extra options to every executor and list builder
func WithBulkOptions(opts ...bulk.Option) Option {
	return func(m *Manager) { m.bulkOpts = append(m.bulkOpts, opts...) }
}

// New creates a Manager over client
func New(client BlueskyClient, cfg *config.Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := &Manager{
		client:     client,
		config:     cfg,
		logger:     logger.GetLogger(),
		clock:      ratelimit.RealClock{},
		whitelists: make(map[Set]Whitelist),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login creates a session. Any previously loaded snapshot is discarded.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*bsky.Session, error) {
	s, err := m.client.CreateSession(ctx, identifier, password)
	if err != nil {
		m.logger.WithError(err).WithField("identifier", identifier).Warn("Login failed")
		return nil, err
	}
	m.reset()
	return s, nil
}

// Logout forgets the session and the snapshot
func (m *Manager) Logout() {
	m.client.ClearSession()
	m.reset()
	m.logger.Info("Logged out")
}

// Session returns the current session, or nil before login
func (m *Manager) Session() *bsky.Session {
	return m.client.Session()
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.follows, m.followers = nil, nil
	m.nonFollowBacks, m.fans = nil, nil
	m.loaded = false
}

func (m *Manager) requireSession() (*bsky.Session, error) {
	s := m.client.Session()
	if s == nil || s.DID == "" {
		return nil, errs.ErrNotAuthenticated
	}
	return s, nil
}

// Load fetches follows and followers and computes both account sets
func (m *Manager) Load(ctx context.Context) (relations.Counts, error) {
	s, err := m.requireSession()
	if err != nil {
		return relations.Counts{}, err
	}

	m.logger.InfoWithFields("Loading relationships", map[string]interface{}{
		"handle": s.Handle,
	})

	follows, err := m.client.GetFollows(ctx, s.DID)
	if err != nil {
		return relations.Counts{}, fmt.Errorf("failed to fetch follows: %w", err)
	}
	followers, err := m.client.GetFollowers(ctx, s.DID)
	if err != nil {
		return relations.Counts{}, fmt.Errorf("failed to fetch followers: %w", err)
	}

	m.mu.Lock()
	m.follows = follows
	m.followers = followers
	m.nonFollowBacks = relations.NotFollowingBack(follows, followers)
	m.fans = relations.FollowersNotFollowedBack(follows, followers)
	m.loaded = true
	m.mu.Unlock()

	counts := m.Stats()
	m.logger.InfoWithFields("Relationships loaded", map[string]interface{}{
		"follows":          counts.Follows,
		"followers":        counts.Followers,
		"non_follow_backs": counts.NotFollowingBack,
		"fans":             counts.FollowersNotFollowedBack,
	})
	return counts, nil
}

// Reload is Load after a bulk run has changed the graph
func (m *Manager) Reload(ctx context.Context) (relations.Counts, error) {
	return m.Load(ctx)
}

// Loaded reports whether a snapshot is available
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// NonFollowBacks returns a copy of the accounts that do not follow back
func (m *Manager) NonFollowBacks() []models.Account {
	return m.Accounts(NonFollowBacks)
}

// Fans returns a copy of the followers not followed back
func (m *Manager) Fans() []models.Account {
	return m.Accounts(Fans)
}

// Accounts returns a copy of set in display order
func (m *Manager) Accounts(set Set) []models.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.nonFollowBacks
	if set == Fans {
		src = m.fans
	}
	return append([]models.Account(nil), src...)
}

// Stats summarizes the snapshot
func (m *Manager) Stats() relations.Counts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return relations.Summarize(m.follows, m.followers)
}

// DefaultSelection selects every account of set whose handle is not
// whitelisted for it
func (m *Manager) DefaultSelection(set Set) *models.Selection {
	wl := m.whitelists[set]
	return models.SelectExcept(m.Accounts(set), func(a models.Account) bool {
		return wl != nil && wl.Contains(a.Handle)
	})
}

// Enrich fetches profile counters for every account in set and stores
// them in the snapshot. Returns the number of accounts enriched.
func (m *Manager) Enrich(ctx context.Context, set Set, progress func(int)) (int, error) {
	if _, err := m.requireSession(); err != nil {
		return 0, err
	}

	accounts := m.Accounts(set)
	n, err := enricher.Enrich(ctx, accounts, m.client, enricher.Config{
		Workers: m.config.Enrichment.Workers,
		Delay:   m.config.Enrichment.ProfileDelay,
		Clock:   m.clock,
		Logger:  m.logger,
	}, progress)

	byDID := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		if a.Enriched {
			byDID[a.DID] = a
		}
	}

	m.mu.Lock()
	dst := m.nonFollowBacks
	if set == Fans {
		dst = m.fans
	}
	for i := range dst {
		if a, ok := byDID[dst[i].DID]; ok {
			dst[i].FollowsCount = a.FollowsCount
			dst[i].FollowersCount = a.FollowersCount
			dst[i].PostsCount = a.PostsCount
			dst[i].Enriched = true
		}
	}
	m.mu.Unlock()

	return n, err
}

func limitsFrom(q config.QuotaConfig) bulk.Limits {
	return bulk.Limits{
		PerMinute: q.PerMinute,
		PerHour:   q.PerHour,
		PerDay:    q.PerDay,
		Delay:     q.Delay,
	}
}

func (m *Manager) bulkOptions() []bulk.Option {
	opts := []bulk.Option{bulk.WithClock(m.clock), bulk.WithLogger(m.logger)}
	return append(opts, m.bulkOpts...)
}

// beginRun checks the session and takes the run lock. The returned func
// releases it.
func (m *Manager) beginRun() (*bsky.Session, func(), error) {
	s, err := m.requireSession()
	if err != nil {
		return nil, nil, err
	}
	if !m.runMu.TryLock() {
		return nil, nil, errs.ErrRunInProgress
	}
	return s, m.runMu.Unlock, nil
}

// Unfollow unfollows the selected non-follow-backs
func (m *Manager) Unfollow(ctx context.Context, sel *models.Selection, rep bulk.Reporter) (models.RunResult, error) {
	_, done, err := m.beginRun()
	if err != nil {
		return models.RunResult{}, err
	}
	defer done()

	result, err := m.unfollow(ctx, m.NonFollowBacks(), sel, rep)
	m.reloadAfter(ctx, result)
	return result, err
}

// Follow follows back the selected fans
func (m *Manager) Follow(ctx context.Context, sel *models.Selection, rep bulk.Reporter) (models.RunResult, error) {
	_, done, err := m.beginRun()
	if err != nil {
		return models.RunResult{}, err
	}
	defer done()

	result, err := m.follow(ctx, m.Fans(), sel, rep)
	m.reloadAfter(ctx, result)
	return result, err
}

// CreateList puts the selected accounts of set on a new curation list
func (m *Manager) CreateList(ctx context.Context, set Set, sel *models.Selection, rep bulk.Reporter) (*models.ListResult, error) {
	s, done, err := m.beginRun()
	if err != nil {
		return nil, err
	}
	defer done()

	return m.buildList(ctx, s, set, m.Accounts(set), sel, rep)
}

// ListAndUnfollow lists the selected non-follow-backs, then unfollows the
// same selection. A failed list does not stop the unfollow.
func (m *Manager) ListAndUnfollow(ctx context.Context, sel *models.Selection, rep bulk.Reporter) (CombinedResult, error) {
	return m.listAnd(ctx, NonFollowBacks, sel, rep, m.unfollow)
}

// ListAndFollow lists the selected fans, then follows the same selection.
func (m *Manager) ListAndFollow(ctx context.Context, sel *models.Selection, rep bulk.Reporter) (CombinedResult, error) {
	return m.listAnd(ctx, Fans, sel, rep, m.follow)
}

type runFunc func(ctx context.Context, targets []models.Account, sel *models.Selection, rep bulk.Reporter) (models.RunResult, error)

func (m *Manager) listAnd(ctx context.Context, set Set, sel *models.Selection, rep bulk.Reporter, run runFunc) (CombinedResult, error) {
	s, done, err := m.beginRun()
	if err != nil {
		return CombinedResult{}, err
	}
	defer done()

	// Both steps see the same targets even though the list step does not
	// change the graph.
	targets := m.Accounts(set)

	var combined CombinedResult
	combined.List, combined.ListError = m.buildList(ctx, s, set, targets, sel, rep)
	if ctx.Err() != nil {
		return combined, ctx.Err()
	}

	combined.Run, err = run(ctx, targets, sel, rep)
	m.reloadAfter(ctx, combined.Run)
	return combined, err
}

func (m *Manager) unfollow(ctx context.Context, targets []models.Account, sel *models.Selection, rep bulk.Reporter) (models.RunResult, error) {
	op := bulk.UnfollowOperation(m.client, limitsFrom(m.config.Limits.Unfollow), m.logger)
	return bulk.NewExecutor(m.bulkOptions()...).Run(ctx, targets, sel, op, rep)
}

func (m *Manager) follow(ctx context.Context, targets []models.Account, sel *models.Selection, rep bulk.Reporter) (models.RunResult, error) {
	op := bulk.FollowOperation(m.client, limitsFrom(m.config.Limits.Follow), m.logger)
	return bulk.NewExecutor(m.bulkOptions()...).Run(ctx, targets, sel, op, rep)
}

func (m *Manager) buildList(ctx context.Context, s *bsky.Session, set Set, targets []models.Account, sel *models.Selection, rep bulk.Reporter) (*models.ListResult, error) {
	builder := bulk.NewListBuilder(m.client, bulk.ListConfig{
		ItemDelay:   m.config.Limits.ListItemDelay,
		AppURL:      m.config.Bluesky.AppURL,
		OwnerHandle: s.Handle,
	}, m.bulkOptions()...)
	return builder.Build(ctx, targets, sel, set.listKind(), rep)
}

// reloadAfter refreshes the snapshot when a run changed the graph
func (m *Manager) reloadAfter(ctx context.Context, result models.RunResult) {
	if result.Successful == 0 || ctx.Err() != nil {
		return
	}
	if _, err := m.Reload(ctx); err != nil {
		m.logger.WithError(err).Warn("Failed to reload relationships after run")
	}
}
