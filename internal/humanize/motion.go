package humanize

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
)

// driftPointer moves the cursor to a random point a bounded distance away,
// dispatching mouseMoved events along a curved path.
func (e *Engine) driftPointer(ctx context.Context) error {
	vp, err := e.resolveViewport(ctx)
	if err != nil {
		return err
	}
	vp = normalizeViewport(vp)

	start := e.currentOrSeedCursor(vp)
	drift := e.randomFloat(e.profile.MouseDriftMinPX, e.profile.MouseDriftMaxPX)
	angle := e.randomFloat(0, 2*math.Pi)
	target := clampPoint(point{
		X: start.X + drift*math.Cos(angle),
		Y: start.Y + drift*math.Sin(angle),
	}, vp)

	path := e.buildBezierSegment(start, target, vp)
	for index, p := range path {
		if err := e.dispatchMouseEvent(ctx, "mouseMoved", p, "none", 0, 0); err != nil {
			return err
		}
		if index < len(path)-1 {
			if err := e.sleepRandom(ctx, e.profile.MouseMoveStepMinMS, e.profile.MouseMoveStepMaxMS); err != nil {
				return err
			}
		}
	}

	e.cursor = target
	e.hasCursor = true
	return nil
}

func (e *Engine) scrollBursts(ctx context.Context, direction string, pixels int) error {
	sign := 1
	if strings.ToLower(strings.TrimSpace(direction)) == "up" {
		sign = -1
	}
	if pixels <= 0 {
		pixels = 600
	}
	if pixels > 3000 {
		pixels = 3000
	}

	vp, err := e.resolveViewport(ctx)
	if err != nil {
		return err
	}
	vp = normalizeViewport(vp)
	wheelPoint := e.currentOrSeedCursor(vp)

	remaining := pixels
	for remaining > 0 {
		eventCount := e.randomInt(e.profile.ScrollBurstEventsMin, e.profile.ScrollBurstEventsMax)
		if eventCount <= 0 {
			eventCount = 1
		}

		minBurst := eventCount * maxInt(16, e.profile.ScrollDeltaMinPX/2)
		maxBurst := eventCount * maxInt(minBurst, e.profile.ScrollDeltaMaxPX)
		if maxBurst < minBurst {
			maxBurst = minBurst
		}

		burstTarget := e.randomInt(minBurst, maxBurst)
		if burstTarget > remaining || burstTarget <= 0 {
			burstTarget = remaining
		}

		deltas := planScrollBurstDeltas(eventCount, burstTarget, e.rng)
		for _, delta := range deltas {
			signedDelta := float64(sign * maxInt(1, delta))
			if err := e.dispatchMouseEvent(ctx, "mouseWheel", wheelPoint, "none", 0, signedDelta); err != nil {
				return err
			}
			if err := e.sleepRandom(ctx, e.profile.ScrollEventDelayMinMS, e.profile.ScrollEventDelayMaxMS); err != nil {
				return err
			}
			remaining -= maxInt(1, delta)
			if remaining <= 0 {
				break
			}
		}

		if remaining > 0 {
			if err := e.sleepRandom(ctx, e.profile.ScrollBurstPauseMinMS, e.profile.ScrollBurstPauseMaxMS); err != nil {
				return err
			}
		}
	}

	// Readers overshoot and nudge back once in a while.
	if e.chance(e.profile.ScrollCorrectionChance) {
		correction := e.randomInt(e.profile.ScrollCorrectionMinPX, e.profile.ScrollCorrectionMaxPX)
		if correction > 0 {
			if err := e.sleepRandom(ctx, e.profile.ScrollBurstPauseMinMS, e.profile.ScrollBurstPauseMaxMS); err != nil {
				return err
			}
			if err := e.dispatchMouseEvent(ctx, "mouseWheel", wheelPoint, "none", 0, float64(-sign*correction)); err != nil {
				return err
			}
		}
	}

	e.cursor = wheelPoint
	e.hasCursor = true
	return nil
}

func (e *Engine) currentOrSeedCursor(vp viewport) point {
	if e.hasCursor {
		return clampPoint(e.cursor, vp)
	}

	seed := clampPoint(point{
		X: vp.Width*0.50 + e.randomFloat(-vp.Width*0.08, vp.Width*0.08),
		Y: vp.Height*0.58 + e.randomFloat(-vp.Height*0.11, vp.Height*0.11),
	}, vp)
	e.cursor = seed
	e.hasCursor = true
	return seed
}

func (e *Engine) buildBezierSegment(start, end point, vp viewport) []point {
	d := distance(start, end)
	steps := int(math.Round(d/9.5)) + e.randomInt(-2, 3)
	steps = clampInt(steps, e.profile.MouseMinSteps, e.profile.MouseMaxSteps)
	if steps < 2 {
		steps = 2
	}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length < 0.001 {
		return []point{start, end}
	}

	perpX := -dy / length
	perpY := dx / length
	curve := length * e.randomFloat(0.07, 0.19)
	if e.chance(0.5) {
		curve = -curve
	}

	c1 := point{
		X: start.X + dx*0.33 + perpX*curve,
		Y: start.Y + dy*0.33 + perpY*curve,
	}
	c2 := point{
		X: start.X + dx*0.66 - perpX*curve*e.randomFloat(0.55, 1.05),
		Y: start.Y + dy*0.66 - perpY*curve*e.randomFloat(0.55, 1.05),
	}

	path := make([]point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := cubicBezierPoint(start, c1, c2, end, t)

		if i > 0 && i < steps {
			jitter := e.profile.MouseJitterPX * 0.20
			if i >= steps-3 {
				jitter = e.profile.MouseJitterPX
			}
			p.X += e.randomFloat(-jitter, jitter)
			p.Y += e.randomFloat(-jitter, jitter)
		}

		path = append(path, clampPoint(p, vp))
	}

	path[0] = start
	path[len(path)-1] = end
	return path
}

func (e *Engine) resolveViewport(ctx context.Context) (viewport, error) {
	value, err := e.page.EvaluateAny(ctx, `(() => ({
		width: Number(window.innerWidth || 0),
		height: Number(window.innerHeight || 0)
	}))()`)
	if err != nil {
		return viewport{}, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return viewport{}, err
	}

	var decoded struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return viewport{}, err
	}
	return viewport{Width: decoded.Width, Height: decoded.Height}, nil
}

func (e *Engine) dispatchMouseEvent(ctx context.Context, eventType string, p point, button string, clickCount int, deltaY float64) error {
	if strings.TrimSpace(eventType) == "" {
		return errors.New("mouse event type is required")
	}
	if strings.TrimSpace(button) == "" {
		button = "none"
	}

	payload := map[string]any{
		"type":   eventType,
		"x":      roundToOneDecimal(p.X),
		"y":      roundToOneDecimal(p.Y),
		"button": button,
	}
	if clickCount > 0 {
		payload["clickCount"] = clickCount
	}
	if deltaY != 0 {
		payload["deltaY"] = roundToOneDecimal(deltaY)
	}

	return e.page.Call(ctx, "Input.dispatchMouseEvent", payload, nil)
}

// planScrollBurstDeltas splits total pixels across eventCount wheel events
// with a triangular weight so bursts ramp up and back down.
func planScrollBurstDeltas(eventCount, total int, rng *rand.Rand) []int {
	if total <= 0 {
		return nil
	}
	if eventCount <= 1 {
		return []int{total}
	}
	if eventCount > 32 {
		eventCount = 32
	}

	weights := make([]float64, eventCount)
	weightSum := 0.0
	for i := 0; i < eventCount; i++ {
		t := float64(i) / float64(eventCount-1)
		triangular := 1.0 - math.Abs((2*t)-1.0)
		w := 0.45 + (0.95 * triangular)
		if rng != nil {
			w *= 0.85 + rng.Float64()*0.30
		}
		if w < 0.1 {
			w = 0.1
		}
		weights[i] = w
		weightSum += w
	}

	deltas := make([]int, eventCount)
	assigned := 0
	for i, w := range weights {
		delta := int(math.Round(float64(total) * (w / weightSum)))
		if delta < 1 {
			delta = 1
		}
		deltas[i] = delta
		assigned += delta
	}

	diff := total - assigned
	step := 1
	if diff < 0 {
		diff = -diff
		step = -1
	}
	for i := 0; i < diff; i++ {
		index := i % len(deltas)
		if step < 0 && deltas[index] <= 1 {
			continue
		}
		deltas[index] += step
	}

	return deltas
}

func normalizeViewport(v viewport) viewport {
	out := v
	if out.Width < 64 {
		out.Width = 1280
	}
	if out.Height < 64 {
		out.Height = 720
	}
	return out
}

func clampPoint(p point, vp viewport) point {
	v := normalizeViewport(vp)
	return point{
		X: clampFloat(p.X, 1, v.Width-1),
		Y: clampFloat(p.Y, 1, v.Height-1),
	}
}

func cubicBezierPoint(p0, p1, p2, p3 point, t float64) point {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	mt := 1 - t
	mt2 := mt * mt
	t2 := t * t
	return point{
		X: (mt2*mt)*p0.X + (3*mt2*t)*p1.X + (3*mt*t2)*p2.X + (t2*t)*p3.X,
		Y: (mt2*mt)*p0.Y + (3*mt2*t)*p1.Y + (3*mt*t2)*p2.Y + (t2*t)*p3.Y,
	}
}

func distance(a, b point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clampFloat(value, min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampInt(value, min, max int) int {
	if max < min {
		min, max = max, min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
