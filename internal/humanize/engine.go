package humanize

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// Page is the slice of the CDP client the engine drives. Anything that can
// dispatch raw protocol calls and evaluate javascript qualifies, which keeps
// the engine testable without a live browser.
type Page interface {
	Call(ctx context.Context, method string, params any, out any) error
	EvaluateAny(ctx context.Context, expression string) (any, error)
	EvaluateString(ctx context.Context, expression string) (string, error)
}

// Engine layers randomized human-like interaction on top of a page. Page
// failures inside a primitive are logged and swallowed; interaction noise is
// ancillary and must never abort the workflow that asked for it. Context
// cancellation is the one error that always propagates.
type Engine struct {
	page      Page
	profile   Profile
	enabled   bool
	rng       *rand.Rand
	logger    *log.Logger
	cursor    point
	hasCursor bool
}

type point struct {
	X float64
	Y float64
}

type viewport struct {
	Width  float64
	Height float64
}

// NewEngine builds an engine for mode. A zero seed draws one from the clock;
// a fixed seed makes every delay and path reproducible. A disabled mode
// yields an engine whose primitives all no-op.
func NewEngine(page Page, mode string, seed int64, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}

	profile, enabled := ProfileForMode(mode)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		page:    page,
		profile: profile,
		enabled: enabled,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
	}
}

// Enabled reports whether the engine will do anything at all.
func (e *Engine) Enabled() bool {
	return e != nil && e.enabled
}

// Type focuses selector, clears it, and inserts text one rune at a time with
// a randomized inter-key delay that is slower near the start and end of the
// value. At most one typo is injected and corrected per call.
func (e *Engine) Type(ctx context.Context, selector, text string) error {
	if !e.Enabled() {
		return nil
	}
	return e.swallow(ctx, "type", e.typeText(ctx, selector, text))
}

// MoveMouse drifts the pointer to a random nearby point along a curved path.
// It is pure noise: no buttons are pressed.
func (e *Engine) MoveMouse(ctx context.Context) error {
	if !e.Enabled() {
		return nil
	}
	return e.swallow(ctx, "move mouse", e.driftPointer(ctx))
}

// Scroll scrolls the page by pixels in direction ("down" or "up"), split
// into bursts of wheel events with pauses between bursts.
func (e *Engine) Scroll(ctx context.Context, direction string, pixels int) error {
	if !e.Enabled() {
		return nil
	}
	return e.swallow(ctx, "scroll", e.scrollBursts(ctx, direction, pixels))
}

// ReadPage simulates a person skimming a listing: an initial dwell, a scroll
// down, a pointer drift, and a partial scroll back up.
func (e *Engine) ReadPage(ctx context.Context) error {
	if !e.Enabled() {
		return nil
	}

	if err := e.sleepRandom(ctx, e.profile.ReadDwellMinMS, e.profile.ReadDwellMaxMS); err != nil {
		return err
	}

	vp, err := e.resolveViewport(ctx)
	if err != nil {
		e.logger.Printf("humanize: read page viewport lookup failed: %v", err)
		vp = normalizeViewport(viewport{})
	}
	down := int(vp.Height * e.randomFloat(0.45, 0.75))

	if err := e.Scroll(ctx, "down", down); err != nil {
		return err
	}
	if err := e.sleepRandom(ctx, e.profile.ReadDwellMinMS, e.profile.ReadDwellMaxMS); err != nil {
		return err
	}
	if err := e.MoveMouse(ctx); err != nil {
		return err
	}
	if err := e.Scroll(ctx, "up", down/2); err != nil {
		return err
	}
	return nil
}

// swallow is the primitive boundary: cancellation propagates, everything
// else is logged and dropped.
func (e *Engine) swallow(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.logger.Printf("humanize: %s failed: %v", op, err)
	return nil
}

func (e *Engine) typeText(ctx context.Context, selector, text string) error {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return errors.New("selector is required")
	}

	if err := e.focusAndClear(ctx, trimmed); err != nil {
		return err
	}

	runes := []rune(text)
	typedTypo := false
	for index, r := range runes {
		if !typedTypo && e.shouldInjectTypo(r) {
			if typo, ok := nearbyTypoRune(r, e.rng); ok {
				if err := e.insertText(ctx, string(typo)); err != nil {
					return err
				}
				if err := sleepWithContext(ctx, e.keyDelay(index, len(runes), typo)); err != nil {
					return err
				}
				if err := e.dispatchBackspace(ctx); err != nil {
					return err
				}
				if err := e.sleepRandom(ctx, e.profile.TypoFixMinMS, e.profile.TypoFixMaxMS); err != nil {
					return err
				}
				typedTypo = true
			}
		}

		if err := e.insertText(ctx, string(r)); err != nil {
			return err
		}
		if err := sleepWithContext(ctx, e.keyDelay(index, len(runes), r)); err != nil {
			return err
		}
	}
	return nil
}

// keyDelay draws the inter-key delay for position index in a value of
// total runes. The edge weight slows the first and last stretch of the
// value relative to the middle, matching how people settle into and trail
// out of a field.
func (e *Engine) keyDelay(index, total int, r rune) time.Duration {
	delayMS := float64(e.randomInt(e.profile.TypeKeyMinMS, e.profile.TypeKeyMaxMS))
	delayMS *= e.edgeWeight(index, total)
	if unicode.IsUpper(r) {
		delayMS += e.randomFloat(8, 26)
	}
	delayMS = clampFloat(delayMS, float64(e.profile.TypeKeyMinMS), float64(e.profile.TypeKeyMaxMS)*e.profile.TypeEdgeFactor)
	return time.Duration(delayMS) * time.Millisecond
}

// edgeWeight is 1.0 in the middle of the value and rises quadratically to
// TypeEdgeFactor at both ends.
func (e *Engine) edgeWeight(index, total int) float64 {
	if total <= 1 || e.profile.TypeEdgeFactor <= 1 {
		return 1
	}
	t := float64(index) / float64(total-1)
	centered := 2*t - 1
	return 1 + (e.profile.TypeEdgeFactor-1)*centered*centered
}

func (e *Engine) shouldInjectTypo(r rune) bool {
	if e.profile.TypoChance <= 0 {
		return false
	}
	if !unicode.IsLetter(r) {
		return false
	}
	return e.chance(e.profile.TypoChance)
}

func (e *Engine) sleepRandom(ctx context.Context, minMS, maxMS int) error {
	if minMS <= 0 && maxMS <= 0 {
		return nil
	}
	delay := e.randomInt(minMS, maxMS)
	if delay <= 0 {
		return nil
	}
	return sleepWithContext(ctx, time.Duration(delay)*time.Millisecond)
}

func (e *Engine) randomInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return min + e.rng.Intn(max-min+1)
}

func (e *Engine) randomFloat(min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return min + e.rng.Float64()*(max-min)
}

func (e *Engine) chance(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1 {
		return true
	}
	return e.rng.Float64() < probability
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
