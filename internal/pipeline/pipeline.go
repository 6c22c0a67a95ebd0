package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signupassist/provider-pipeline/internal/config"
	"github.com/signupassist/provider-pipeline/internal/extractcache"
	"github.com/signupassist/provider-pipeline/internal/extractor"
	"github.com/signupassist/provider-pipeline/internal/feedstore"
	"github.com/signupassist/provider-pipeline/internal/humanize"
	"github.com/signupassist/provider-pipeline/internal/program"
	"github.com/signupassist/provider-pipeline/internal/readiness"
	"github.com/signupassist/provider-pipeline/internal/snippet"
)

// Page is everything the discovery flow needs from a live browser page.
type Page interface {
	humanize.Page
	readiness.Page
	Navigate(ctx context.Context, targetURL string) error
	OuterHTML(ctx context.Context) (string, error)
}

// Session is one acquired browser page plus its teardown.
type Session interface {
	Page() Page
	Close(ctx context.Context) error
}

// Sessions mints browser sessions for an organization.
type Sessions interface {
	NewSession(ctx context.Context, orgRef string) (Session, error)
}

// Extractor turns canonical HTML into structured programs.
type Extractor interface {
	Extract(ctx context.Context, canonicalHTML string, hints extractor.Hints) ([]program.Program, error)
}

// DiscoverResult is the outward shape of a discovery call. Internal
// failures degrade to Success=true with an empty Programs slice so that
// registration flows upstream never branch on scraping weather; only
// malformed input produces a hard error.
type DiscoverResult struct {
	Success   bool              `json:"success"`
	Provider  string            `json:"provider"`
	Category  string            `json:"category"`
	RequestID string            `json:"request_id"`
	Source    string            `json:"source,omitempty"`
	Cached    bool              `json:"cached"`
	CachedAt  *time.Time        `json:"cached_at,omitempty"`
	Programs  []program.Program `json:"programs"`
	Error     string            `json:"error,omitempty"`

	Readiness *ReadinessSummary `json:"readiness,omitempty"`
}

type ReadinessSummary struct {
	Signal    string `json:"signal"`
	Attempts  int    `json:"attempts"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Service orchestrates session acquisition, readiness, canonicalization,
// caching, and extraction into one discovery call.
type Service struct {
	cfg      config.Config
	sessions Sessions
	cache    extractcache.Store
	feeds    feedstore.Store
	extract  Extractor
	logger   *log.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	result DiscoverResult
	err    error
}

type Options struct {
	Config    config.Config
	Sessions  Sessions
	Cache     extractcache.Store
	Feeds     feedstore.Store
	Extractor Extractor
	Logger    *log.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Sessions == nil {
		return nil, errors.New("sessions are required")
	}
	if opts.Cache == nil {
		return nil, errors.New("extraction cache is required")
	}
	if opts.Feeds == nil {
		return nil, errors.New("feed store is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Service{
		cfg:      opts.Config,
		sessions: opts.Sessions,
		cache:    opts.Cache,
		feeds:    opts.Feeds,
		extract:  opts.Extractor,
		logger:   opts.Logger,
		inflight: make(map[string]*inflightCall),
	}, nil
}

// GetOrSynthesizeProgramData returns the program listing for an org and
// category, fetching live when needed. Concurrent calls for the same
// (org, category) coalesce onto one browser flight; the stragglers get the
// leader's result.
func (s *Service) GetOrSynthesizeProgramData(ctx context.Context, orgRef, category string, ageHint int) (DiscoverResult, error) {
	orgRef = strings.ToLower(strings.TrimSpace(orgRef))
	if orgRef == "" {
		return DiscoverResult{}, errors.New("org ref is required")
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "all"
	}
	if ageHint < 0 {
		return DiscoverResult{}, errors.New("age hint cannot be negative")
	}

	flightKey := orgRef + "|" + category

	s.mu.Lock()
	if call, ok := s.inflight[flightKey]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return DiscoverResult{}, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	s.inflight[flightKey] = call
	s.mu.Unlock()

	result, err := s.discover(ctx, orgRef, category, ageHint)

	s.mu.Lock()
	delete(s.inflight, flightKey)
	s.mu.Unlock()

	call.result, call.err = result, err
	close(call.done)
	return result, err
}

func (s *Service) discover(ctx context.Context, orgRef, category string, ageHint int) (DiscoverResult, error) {
	result := DiscoverResult{
		Success:   true,
		Provider:  orgRef,
		Category:  category,
		RequestID: uuid.NewString(),
		Programs:  []program.Program{},
	}

	programs, source, cachedAt, summary, err := s.fetchLive(ctx, orgRef, category, ageHint, &result)
	if summary != nil {
		result.Readiness = summary
	}
	if err == nil {
		result.Programs = programs
		result.Source = source
		result.Cached = source == "cache"
		result.CachedAt = cachedAt
		return result, nil
	}
	if ctx.Err() != nil {
		return DiscoverResult{}, ctx.Err()
	}

	s.logger.Printf("pipeline: request %s live discovery for %s/%s failed: %v", result.RequestID, orgRef, category, err)

	// Live path failed; fall back to the last known good feed before
	// degrading to an empty success.
	feed, found, feedErr := s.feeds.Get(ctx, orgRef, category)
	if feedErr != nil {
		s.logger.Printf("pipeline: request %s feed fallback failed: %v", result.RequestID, feedErr)
	}
	if found {
		cachedAt := feed.CachedAt
		result.Programs = feed.Programs
		result.Source = "feed"
		result.Cached = true
		result.CachedAt = &cachedAt
		result.Error = err.Error()
		return result, nil
	}

	result.Error = err.Error()
	return result, nil
}

// fetchLive drives a browser session through the listing page and returns
// programs either from the extraction cache or from a fresh extraction.
func (s *Service) fetchLive(ctx context.Context, orgRef, category string, ageHint int, result *DiscoverResult) ([]program.Program, string, *time.Time, *ReadinessSummary, error) {
	profile := config.OrgProfileFor(orgRef)
	if strings.TrimSpace(profile.BaseURL) == "" {
		return nil, "", nil, nil, fmt.Errorf("no base url configured for org %q", orgRef)
	}

	session, err := s.sessions.NewSession(ctx, orgRef)
	if err != nil {
		return nil, "", nil, nil, fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(context.WithoutCancel(ctx)); closeErr != nil {
			s.logger.Printf("pipeline: request %s session close: %v", result.RequestID, closeErr)
		}
	}()

	page := session.Page()
	if err := page.Navigate(ctx, profile.ProgramsURL()); err != nil {
		return nil, "", nil, nil, fmt.Errorf("navigate to listing: %w", err)
	}
	if err := page.WaitForLoad(ctx, s.cfg.ReadinessAttemptTimeout); err != nil {
		s.logger.Printf("pipeline: request %s initial load wait: %v", result.RequestID, err)
	}

	detector := readiness.NewDetector(page, readiness.Options{
		Attempts:       s.cfg.ReadinessAttempts,
		AttemptTimeout: s.cfg.ReadinessAttemptTimeout,
	}, s.logger)
	ready, err := detector.Wait(ctx, readiness.Targets{
		RowSelector:     profile.RowSelector,
		ContentSelector: profile.ContentSelector,
		ActionKeywords:  profile.ActionKeywords,
		MinRows:         s.cfg.ReadinessMinRows,
	})
	summary := &ReadinessSummary{
		Signal:    ready.Signal,
		Attempts:  ready.Attempts,
		ElapsedMS: ready.Elapsed.Milliseconds(),
	}
	if err != nil {
		return nil, "", nil, summary, fmt.Errorf("wait for content: %w", err)
	}

	engine := humanize.NewEngine(page, s.cfg.HumanizeMode, s.cfg.HumanizeSeed, s.logger)
	if err := engine.ReadPage(ctx); err != nil {
		return nil, "", nil, summary, err
	}

	rawHTML, err := page.OuterHTML(ctx)
	if err != nil {
		return nil, "", nil, summary, fmt.Errorf("capture page html: %w", err)
	}

	canonical, err := snippet.Canonicalize(rawHTML)
	if err != nil {
		return nil, "", nil, summary, fmt.Errorf("canonicalize html: %w", err)
	}
	cacheKey, err := snippet.CacheKey(orgRef, category, canonical)
	if err != nil {
		return nil, "", nil, summary, err
	}

	if cached, ok := s.safeCacheGet(ctx, cacheKey); ok {
		return cached, "cache", nil, summary, nil
	}

	extracted, err := s.extract.Extract(ctx, canonical, extractor.Hints{
		OrgRef:   orgRef,
		Category: category,
		AgeHint:  ageHint,
	})
	if err != nil {
		return nil, "", nil, summary, fmt.Errorf("extract programs: %w", err)
	}

	programs := program.ValidateAndDedupe(extracted)
	s.safeCacheSet(ctx, cacheKey, programs)

	now := time.Now().UTC()
	if err := s.feeds.Upsert(ctx, feedstore.Feed{
		OrgRef:   orgRef,
		Category: category,
		Programs: programs,
		CachedAt: now,
	}); err != nil {
		s.logger.Printf("pipeline: request %s feed upsert: %v", result.RequestID, err)
	}

	return programs, "live", nil, summary, nil
}

// safeCacheGet treats cache failures as misses. A flaky cache backend must
// not take discovery down with it.
func (s *Service) safeCacheGet(ctx context.Context, key string) ([]program.Program, bool) {
	items, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Printf("pipeline: extraction cache get: %v", err)
		return nil, false
	}
	return items, found
}

func (s *Service) safeCacheSet(ctx context.Context, key string, items []program.Program) {
	if err := s.cache.Set(ctx, key, items, s.cfg.CacheTTL); err != nil {
		s.logger.Printf("pipeline: extraction cache set: %v", err)
	}
}

// SweepCache drops expired extraction entries and reports how many went.
func (s *Service) SweepCache(ctx context.Context) (int, error) {
	return s.cache.InvalidateExpired(ctx)
}

// ClearCache drops every extraction entry.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}
