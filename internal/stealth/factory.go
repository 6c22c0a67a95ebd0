package stealth

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/signupassist/provider-pipeline/internal/cdp"
)

// Page is what the factory needs from a freshly opened page: enough to
// harden it and to carry cookies across sessions.
type Page interface {
	AddInitScript(ctx context.Context, source string) error
	SetUserAgentOverride(ctx context.Context, userAgent, acceptLanguage string) error
	SetViewport(ctx context.Context, width, height int) error
	SetTimezone(ctx context.Context, timezoneID string) error
	SetLocaleHeader(ctx context.Context, locale string) error
	SetCookies(ctx context.Context, cookies []cdp.Cookie) error
	GetCookies(ctx context.Context) ([]cdp.Cookie, error)
	Close() error
}

// SessionOptions shape one session. ForceEnable turns hardening on for this
// session even when the factory-wide toggle is off; UserAgentOverride pins
// an exact user agent instead of the rotation.
type SessionOptions struct {
	OrgRef            string
	UserAgentOverride string
	ForceEnable       bool
}

// Browser creates and disposes isolated browser contexts.
type Browser interface {
	CreateContext(ctx context.Context) (string, error)
	DisposeContext(ctx context.Context, contextID string) error
}

type Config struct {
	Enabled        bool
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string
	StateTTL       time.Duration
	StateCacheSize int
	UserAgents     []string
}

// sessionState is what survives between sessions for one organization:
// the cookies from the last session and the user agent it presented.
// Reusing both keeps an org seeing one consistent visitor instead of a
// different fingerprint on every fetch.
type sessionState struct {
	Cookies   []cdp.Cookie
	UserAgent string
}

// Session is one isolated page bound to a browser context. Close persists
// session state for the org and tears the context down.
type Session[P Page] struct {
	Page      P
	OrgRef    string
	UserAgent string

	contextID string
	hardened  bool
	factory   *Factory[P]
}

// Factory mints browser sessions. When stealth is enabled each session gets
// an isolated context hardened against the common automation tells before
// any navigation happens; when disabled it still gets the isolated context,
// just without the masking.
type Factory[P Page] struct {
	browser Browser
	open    func(ctx context.Context, contextID string) (P, error)
	cfg     Config
	states  *expirable.LRU[string, sessionState]
	logger  *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewFactory[P Page](browser Browser, open func(ctx context.Context, contextID string) (P, error), cfg Config, seed int64, logger *log.Logger) *Factory[P] {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 15 * time.Minute
	}
	if cfg.StateCacheSize <= 0 {
		cfg.StateCacheSize = 128
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Factory[P]{
		browser: browser,
		open:    open,
		cfg:     cfg,
		states:  expirable.NewLRU[string, sessionState](cfg.StateCacheSize, nil, cfg.StateTTL),
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// NewSession opens a page in a fresh browser context. Every session gets
// its own context so orgs never share cookie jars; hardening is applied only
// when the factory toggle or ForceEnable asks for it.
func (f *Factory[P]) NewSession(ctx context.Context, opts SessionOptions) (*Session[P], error) {
	orgRef := strings.ToLower(strings.TrimSpace(opts.OrgRef))

	contextID, err := f.browser.CreateContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := f.open(ctx, contextID)
	if err != nil {
		f.disposeQuietly(ctx, contextID)
		return nil, fmt.Errorf("open page: %w", err)
	}

	session := &Session[P]{
		Page:      page,
		OrgRef:    orgRef,
		contextID: contextID,
		factory:   f,
	}

	if f.cfg.Enabled || opts.ForceEnable {
		session.hardened = true
		if err := f.harden(ctx, session, opts); err != nil {
			_ = page.Close()
			f.disposeQuietly(ctx, contextID)
			return nil, err
		}
	}
	return session, nil
}

func (f *Factory[P]) harden(ctx context.Context, session *Session[P], opts SessionOptions) error {
	state, hasState := f.states.Get(session.OrgRef)

	userAgent := strings.TrimSpace(opts.UserAgentOverride)
	if userAgent == "" {
		userAgent = state.UserAgent
	}
	if userAgent == "" {
		userAgent = f.pickUserAgent()
	}
	session.UserAgent = userAgent

	if err := session.Page.AddInitScript(ctx, maskScript); err != nil {
		return fmt.Errorf("install mask script: %w", err)
	}
	if err := session.Page.SetUserAgentOverride(ctx, userAgent, f.cfg.Locale); err != nil {
		return fmt.Errorf("override user agent: %w", err)
	}
	if f.cfg.ViewportWidth > 0 && f.cfg.ViewportHeight > 0 {
		if err := session.Page.SetViewport(ctx, f.cfg.ViewportWidth, f.cfg.ViewportHeight); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
	}
	if f.cfg.Timezone != "" {
		if err := session.Page.SetTimezone(ctx, f.cfg.Timezone); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
	}
	if f.cfg.Locale != "" {
		if err := session.Page.SetLocaleHeader(ctx, f.cfg.Locale); err != nil {
			return fmt.Errorf("set locale header: %w", err)
		}
	}

	if hasState && len(state.Cookies) > 0 {
		if err := session.Page.SetCookies(ctx, state.Cookies); err != nil {
			// Stale cookies are recoverable; the session just starts cold.
			f.logger.Printf("stealth: cookie restore for %q failed: %v", session.OrgRef, err)
		}
	}
	return nil
}

// Close saves session state for the org, closes the page, and disposes the
// browser context.
func (s *Session[P]) Close(ctx context.Context) error {
	s.factory.saveState(ctx, s)

	closeErr := s.Page.Close()
	disposeErr := s.factory.browser.DisposeContext(ctx, s.contextID)
	if closeErr != nil {
		return closeErr
	}
	return disposeErr
}

func (f *Factory[P]) saveState(ctx context.Context, session *Session[P]) {
	if !session.hardened || session.OrgRef == "" {
		return
	}

	cookies, err := session.Page.GetCookies(ctx)
	if err != nil {
		f.logger.Printf("stealth: cookie capture for %q failed: %v", session.OrgRef, err)
		cookies = nil
	}
	f.states.Add(session.OrgRef, sessionState{
		Cookies:   cookies,
		UserAgent: session.UserAgent,
	})
}

func (f *Factory[P]) pickUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.UserAgents[f.rng.Intn(len(f.cfg.UserAgents))]
}

func (f *Factory[P]) disposeQuietly(ctx context.Context, contextID string) {
	if err := f.browser.DisposeContext(ctx, contextID); err != nil {
		f.logger.Printf("stealth: dispose context %q failed: %v", contextID, err)
	}
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// maskScript hides the automation tells headless Chromium leaks before any
// page script gets a chance to look for them.
const maskScript = `(() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });

	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});

	window.chrome = window.chrome || {};
	window.chrome.runtime = window.chrome.runtime || {};

	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: originalQuery(parameters)
	);
})();`
