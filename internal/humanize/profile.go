package humanize

import "strings"

// Profile bounds every primitive's randomized timing. All durations are
// drawn from the explicit [Min,Max] pair for that primitive; nothing in the
// engine sleeps outside these bounds.
type Profile struct {
	MouseMoveStepMinMS int
	MouseMoveStepMaxMS int
	MouseMinSteps      int
	MouseMaxSteps      int
	MouseJitterPX      float64
	MouseDriftMinPX    float64
	MouseDriftMaxPX    float64

	TypeKeyMinMS   int
	TypeKeyMaxMS   int
	TypeEdgeFactor float64
	TypoChance     float64
	TypoFixMinMS   int
	TypoFixMaxMS   int

	ScrollBurstEventsMin  int
	ScrollBurstEventsMax  int
	ScrollDeltaMinPX      int
	ScrollDeltaMaxPX      int
	ScrollEventDelayMinMS int
	ScrollEventDelayMaxMS int
	ScrollBurstPauseMinMS int
	ScrollBurstPauseMaxMS int

	ScrollCorrectionChance float64
	ScrollCorrectionMinPX  int
	ScrollCorrectionMaxPX  int

	ReadDwellMinMS int
	ReadDwellMaxMS int
}

// ProfileForMode maps the configured humanize mode onto a timing profile.
// Unknown or disabling modes return enabled=false, which turns every
// primitive into a no-op.
func ProfileForMode(mode string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "off", "disabled", "none", "false", "0":
		return Profile{}, false
	case "on", "true", "enabled", "balanced":
		return Profile{
			MouseMoveStepMinMS: 6,
			MouseMoveStepMaxMS: 16,
			MouseMinSteps:      12,
			MouseMaxSteps:      48,
			MouseJitterPX:      1.4,
			MouseDriftMinPX:    40,
			MouseDriftMaxPX:    260,

			TypeKeyMinMS:   28,
			TypeKeyMaxMS:   120,
			TypeEdgeFactor: 1.45,
			TypoChance:     0.015,
			TypoFixMinMS:   35,
			TypoFixMaxMS:   110,

			ScrollBurstEventsMin:  2,
			ScrollBurstEventsMax:  6,
			ScrollDeltaMinPX:      32,
			ScrollDeltaMaxPX:      180,
			ScrollEventDelayMinMS: 11,
			ScrollEventDelayMaxMS: 34,
			ScrollBurstPauseMinMS: 120,
			ScrollBurstPauseMaxMS: 460,

			ScrollCorrectionChance: 0.18,
			ScrollCorrectionMinPX:  40,
			ScrollCorrectionMaxPX:  140,

			ReadDwellMinMS: 650,
			ReadDwellMaxMS: 2400,
		}, true
	case "aggressive":
		return Profile{
			MouseMoveStepMinMS: 4,
			MouseMoveStepMaxMS: 12,
			MouseMinSteps:      18,
			MouseMaxSteps:      64,
			MouseJitterPX:      2.1,
			MouseDriftMinPX:    60,
			MouseDriftMaxPX:    420,

			TypeKeyMinMS:   40,
			TypeKeyMaxMS:   180,
			TypeEdgeFactor: 1.65,
			TypoChance:     0.03,
			TypoFixMinMS:   50,
			TypoFixMaxMS:   170,

			ScrollBurstEventsMin:  3,
			ScrollBurstEventsMax:  8,
			ScrollDeltaMinPX:      28,
			ScrollDeltaMaxPX:      210,
			ScrollEventDelayMinMS: 9,
			ScrollEventDelayMaxMS: 42,
			ScrollBurstPauseMinMS: 170,
			ScrollBurstPauseMaxMS: 650,

			ScrollCorrectionChance: 0.26,
			ScrollCorrectionMinPX:  50,
			ScrollCorrectionMaxPX:  180,

			ReadDwellMinMS: 900,
			ReadDwellMaxMS: 3200,
		}, true
	default:
		return Profile{}, false
	}
}
