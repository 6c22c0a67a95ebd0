package readiness

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrNoContent is returned when every attempt exhausted its budget without
// any probe confirming that program content rendered.
var ErrNoContent = errors.New("no program content detected")

// BlockedError reports that the page is a bot-mitigation interstitial rather
// than slow content. Retrying a blocked page wastes the attempt budget, so
// detection stops as soon as one is classified.
type BlockedError struct {
	Kind   string
	Detail string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("page blocked (%s): %s", e.Kind, e.Detail)
}

// Page is the slice of the CDP client the detector needs.
type Page interface {
	CountVisible(ctx context.Context, selector string) (int, error)
	HasVisible(ctx context.Context, selector string) (bool, error)
	PageText(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Reload(ctx context.Context, ignoreCache bool) error
	WaitForLoad(ctx context.Context, timeout time.Duration) error
}

// Targets describes what "ready" looks like for one provider listing page.
type Targets struct {
	RowSelector     string
	ContentSelector string
	ActionKeywords  []string
	MinRows         int
}

// Options bounds the detection loop.
type Options struct {
	Attempts       int
	AttemptTimeout time.Duration
	PollInterval   time.Duration
}

// Result reports how readiness was established.
type Result struct {
	Signal   string
	Attempts int
	Elapsed  time.Duration
}

// Detector decides when a dynamically rendered listing page has real
// content. Several probes race within each attempt; the first to confirm
// wins. A failed attempt reloads the page and tries again until the attempt
// budget runs out.
type Detector struct {
	page   Page
	opts   Options
	logger *log.Logger
}

func NewDetector(page Page, opts Options, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 2
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 12 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return &Detector{page: page, opts: opts, logger: logger}
}

// Wait blocks until some probe confirms content, the page is classified as
// blocked, or the attempt budget is exhausted.
func (d *Detector) Wait(ctx context.Context, targets Targets) (Result, error) {
	start := time.Now()

	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		signal, err := d.runAttempt(ctx, targets)
		if err == nil {
			return Result{Signal: signal, Attempts: attempt, Elapsed: time.Since(start)}, nil
		}

		var blocked *BlockedError
		if errors.As(err, &blocked) {
			return Result{Attempts: attempt, Elapsed: time.Since(start)}, err
		}
		if ctx.Err() != nil {
			return Result{Attempts: attempt, Elapsed: time.Since(start)}, ctx.Err()
		}

		if attempt < d.opts.Attempts {
			d.logger.Printf("readiness: attempt %d/%d found no content, reloading", attempt, d.opts.Attempts)
			if err := d.page.Reload(ctx, true); err != nil {
				return Result{Attempts: attempt, Elapsed: time.Since(start)}, fmt.Errorf("reload between attempts: %w", err)
			}
			if err := d.page.WaitForLoad(ctx, d.opts.AttemptTimeout); err != nil {
				d.logger.Printf("readiness: post-reload load wait: %v", err)
			}
		}
	}

	return Result{Attempts: d.opts.Attempts, Elapsed: time.Since(start)}, ErrNoContent
}

type probe struct {
	name  string
	check func(ctx context.Context) (bool, error)
}

func (d *Detector) runAttempt(ctx context.Context, targets Targets) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.opts.AttemptTimeout)
	defer cancel()

	probes := d.buildProbes(targets)
	if len(probes) == 0 {
		return "", errors.New("no readiness probes configured")
	}

	wins := make(chan string, len(probes))
	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func(p probe) {
			defer wg.Done()
			d.pollProbe(attemptCtx, p, wins)
		}(p)
	}
	go func() {
		wg.Wait()
		close(wins)
	}()

	if signal, ok := <-wins; ok {
		cancel()
		return signal, nil
	}

	// Every probe gave up. Distinguish a blocked page from one that is
	// merely empty before letting the caller burn another attempt.
	if blocked := d.classifyBlocked(ctx); blocked != nil {
		return "", blocked
	}
	return "", ErrNoContent
}

func (d *Detector) pollProbe(ctx context.Context, p probe, wins chan<- string) {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := p.check(ctx)
		if err == nil && ok {
			select {
			case wins <- p.name:
			default:
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *Detector) buildProbes(targets Targets) []probe {
	minRows := targets.MinRows
	if minRows <= 0 {
		minRows = 1
	}

	var probes []probe
	if strings.TrimSpace(targets.RowSelector) != "" {
		probes = append(probes, probe{
			name: "rows",
			check: func(ctx context.Context) (bool, error) {
				count, err := d.page.CountVisible(ctx, targets.RowSelector)
				if err != nil {
					return false, err
				}
				return count >= minRows, nil
			},
		})
	}
	if strings.TrimSpace(targets.ContentSelector) != "" {
		probes = append(probes, probe{
			name: "content",
			check: func(ctx context.Context) (bool, error) {
				return d.page.HasVisible(ctx, targets.ContentSelector)
			},
		})
	}
	if len(targets.ActionKeywords) > 0 {
		keywords := make([]string, 0, len(targets.ActionKeywords))
		for _, keyword := range targets.ActionKeywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" {
				keywords = append(keywords, keyword)
			}
		}
		if len(keywords) > 0 {
			probes = append(probes, probe{
				name: "action-keyword",
				check: func(ctx context.Context) (bool, error) {
					text, err := d.page.PageText(ctx)
					if err != nil {
						return false, err
					}
					lowered := strings.ToLower(text)
					for _, keyword := range keywords {
						if strings.Contains(lowered, keyword) {
							return true, nil
						}
					}
					return false, nil
				},
			})
		}
	}
	return probes
}

func (d *Detector) classifyBlocked(ctx context.Context) *BlockedError {
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	url, err := d.page.CurrentURL(lookupCtx)
	if err != nil {
		url = ""
	}
	title, err := d.page.Title(lookupCtx)
	if err != nil {
		title = ""
	}
	text, err := d.page.PageText(lookupCtx)
	if err != nil {
		text = ""
	}

	kind, detail := classifyBlocker(url, title, text)
	if kind == "" {
		return nil
	}
	return &BlockedError{Kind: kind, Detail: detail}
}

func classifyBlocker(url, title, bodyText string) (string, string) {
	haystack := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(url),
		strings.TrimSpace(title),
		strings.TrimSpace(bodyText),
	}, " "))

	if strings.TrimSpace(haystack) == "" {
		return "", ""
	}

	humanSignals := []string{
		"captcha",
		"hcaptcha",
		"recaptcha",
		"verify you are human",
		"prove you are human",
		"are you a robot",
		"complete the following challenge",
		"checking if the site connection is secure",
	}
	for _, signal := range humanSignals {
		if strings.Contains(haystack, signal) {
			return "human_verification_required", "human verification challenge detected"
		}
	}

	if strings.Contains(haystack, "access denied") && strings.Contains(haystack, "bot") {
		return "bot_blocked", "target denied automated access"
	}
	if strings.Contains(haystack, "too many requests") || strings.Contains(haystack, "rate limit") {
		return "rate_limited", "target is rate limiting requests"
	}

	return "", ""
}
