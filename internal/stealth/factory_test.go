package stealth

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/signupassist/provider-pipeline/internal/cdp"
)

type fakeBrowser struct {
	created  int
	disposed []string
}

func (f *fakeBrowser) CreateContext(ctx context.Context) (string, error) {
	f.created++
	return "ctx-1", nil
}

func (f *fakeBrowser) DisposeContext(ctx context.Context, contextID string) error {
	f.disposed = append(f.disposed, contextID)
	return nil
}

type fakeStealthPage struct {
	initScripts  []string
	userAgent    string
	locale       string
	width        int
	height       int
	timezone     string
	localeHeader string
	setCookies   []cdp.Cookie
	cookies      []cdp.Cookie
	closed       bool
}

func (f *fakeStealthPage) AddInitScript(ctx context.Context, source string) error {
	f.initScripts = append(f.initScripts, source)
	return nil
}

func (f *fakeStealthPage) SetUserAgentOverride(ctx context.Context, userAgent, acceptLanguage string) error {
	f.userAgent = userAgent
	f.locale = acceptLanguage
	return nil
}

func (f *fakeStealthPage) SetViewport(ctx context.Context, width, height int) error {
	f.width = width
	f.height = height
	return nil
}

func (f *fakeStealthPage) SetTimezone(ctx context.Context, timezoneID string) error {
	f.timezone = timezoneID
	return nil
}

func (f *fakeStealthPage) SetLocaleHeader(ctx context.Context, locale string) error {
	f.localeHeader = locale
	return nil
}

func (f *fakeStealthPage) SetCookies(ctx context.Context, cookies []cdp.Cookie) error {
	f.setCookies = cookies
	return nil
}

func (f *fakeStealthPage) GetCookies(ctx context.Context) ([]cdp.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeStealthPage) Close() error {
	f.closed = true
	return nil
}

func quietLogger() *log.Logger {
	return log.New(discardWriter{}, "", 0)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestFactory(browser *fakeBrowser, pages []*fakeStealthPage, enabled bool) *Factory[*fakeStealthPage] {
	index := 0
	open := func(ctx context.Context, contextID string) (*fakeStealthPage, error) {
		page := pages[index%len(pages)]
		index++
		return page, nil
	}
	return NewFactory(browser, open, Config{
		Enabled:        enabled,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		Timezone:       "America/Denver",
		StateTTL:       time.Minute,
	}, 11, quietLogger())
}

func TestNewSessionHardensPageWhenEnabled(t *testing.T) {
	browser := &fakeBrowser{}
	page := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{page}, true)

	session, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	if len(page.initScripts) != 1 || !strings.Contains(page.initScripts[0], "webdriver") {
		t.Fatalf("expected webdriver mask script, got %v", page.initScripts)
	}
	if page.userAgent == "" || !strings.Contains(page.userAgent, "Chrome") {
		t.Fatalf("expected a chrome user agent, got %q", page.userAgent)
	}
	if page.locale != "en-US" {
		t.Fatalf("expected accept-language en-US, got %q", page.locale)
	}
	if page.width != 1920 || page.height != 1080 {
		t.Fatalf("unexpected viewport %dx%d", page.width, page.height)
	}
	if page.timezone != "America/Denver" {
		t.Fatalf("unexpected timezone %q", page.timezone)
	}
	if page.localeHeader != "en-US" {
		t.Fatalf("unexpected accept-language header %q", page.localeHeader)
	}
	if session.UserAgent != page.userAgent {
		t.Fatalf("session user agent %q does not match page %q", session.UserAgent, page.userAgent)
	}
}

func TestNewSessionSkipsHardeningWhenDisabled(t *testing.T) {
	browser := &fakeBrowser{}
	page := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{page}, false)

	session, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if len(page.initScripts) != 0 || page.userAgent != "" {
		t.Fatalf("expected untouched page, got scripts=%v ua=%q", page.initScripts, page.userAgent)
	}
	if err := session.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !page.closed {
		t.Fatal("expected page to be closed")
	}
	if len(browser.disposed) != 1 {
		t.Fatalf("expected context disposal, got %v", browser.disposed)
	}
}

func TestSessionsReuseUserAgentPerOrg(t *testing.T) {
	browser := &fakeBrowser{}
	first := &fakeStealthPage{}
	second := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{first, second}, true)

	sessionA, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"})
	if err != nil {
		t.Fatalf("first NewSession returned error: %v", err)
	}
	if err := sessionA.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"}); err != nil {
		t.Fatalf("second NewSession returned error: %v", err)
	}
	if first.userAgent != second.userAgent {
		t.Fatalf("expected sticky user agent, got %q then %q", first.userAgent, second.userAgent)
	}
}

func TestCloseCarriesCookiesToNextSession(t *testing.T) {
	browser := &fakeBrowser{}
	first := &fakeStealthPage{cookies: []cdp.Cookie{{Name: "SESS", Value: "abc", Domain: ".skiclubpro.team"}}}
	second := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{first, second}, true)

	sessionA, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"})
	if err != nil {
		t.Fatalf("first NewSession returned error: %v", err)
	}
	if err := sessionA.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"}); err != nil {
		t.Fatalf("second NewSession returned error: %v", err)
	}
	if len(second.setCookies) != 1 || second.setCookies[0].Name != "SESS" {
		t.Fatalf("expected restored cookies, got %v", second.setCookies)
	}
}

func TestForceEnableHardensDespiteDisabledFactory(t *testing.T) {
	browser := &fakeBrowser{}
	page := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{page}, false)

	pinned := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	session, err := factory.NewSession(context.Background(), SessionOptions{
		OrgRef:            "blackhawk",
		UserAgentOverride: pinned,
		ForceEnable:       true,
	})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if len(page.initScripts) != 1 {
		t.Fatalf("expected mask script despite disabled factory, got %v", page.initScripts)
	}
	if page.userAgent != pinned || session.UserAgent != pinned {
		t.Fatalf("expected pinned user agent %q, got page=%q session=%q", pinned, page.userAgent, session.UserAgent)
	}
}

func TestCookiesDoNotLeakAcrossOrgs(t *testing.T) {
	browser := &fakeBrowser{}
	first := &fakeStealthPage{cookies: []cdp.Cookie{{Name: "SESS", Value: "abc"}}}
	second := &fakeStealthPage{}
	factory := newTestFactory(browser, []*fakeStealthPage{first, second}, true)

	sessionA, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "blackhawk"})
	if err != nil {
		t.Fatalf("first NewSession returned error: %v", err)
	}
	if err := sessionA.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := factory.NewSession(context.Background(), SessionOptions{OrgRef: "snowcreek"}); err != nil {
		t.Fatalf("second NewSession returned error: %v", err)
	}
	if len(second.setCookies) != 0 {
		t.Fatalf("expected no cookies for a different org, got %v", second.setCookies)
	}
}
