package forms

import "testing"

func cents(v int64) *int64 { return &v }

func TestChooseDefaultAnswerPrefersExistingValue(t *testing.T) {
	field := DiscoveredField{
		ID:           "addon",
		PriceBearing: true,
		Options:      []string{"a", "b"},
		PriceOptions: []PriceOption{{Value: "a", CostCents: cents(0)}},
	}
	if got := ChooseDefaultAnswer(field, "b"); got != "b" {
		t.Fatalf("expected pre-filled value kept, got %q", got)
	}
}

func TestChooseDefaultAnswerPrefersZeroCost(t *testing.T) {
	field := DiscoveredField{
		ID:           "lunch",
		PriceBearing: true,
		Options:      []string{"premium", "none_needed", "standard"},
		PriceOptions: []PriceOption{
			{Value: "premium", CostCents: cents(1500)},
			{Value: "none_needed", CostCents: cents(0)},
			{Value: "standard", CostCents: cents(500)},
		},
	}
	if got := ChooseDefaultAnswer(field, ""); got != "none_needed" {
		t.Fatalf("expected zero-cost option even when listed after pricier ones, got %q", got)
	}
}

func TestChooseDefaultAnswerFallsBackToCheapest(t *testing.T) {
	field := DiscoveredField{
		ID:           "rental",
		PriceBearing: true,
		Options:      []string{"full", "half"},
		PriceOptions: []PriceOption{
			{Value: "full", CostCents: cents(4000)},
			{Value: "half", CostCents: cents(2000)},
		},
	}
	if got := ChooseDefaultAnswer(field, ""); got != "half" {
		t.Fatalf("expected cheapest option, got %q", got)
	}
}

func TestChooseDefaultAnswerNoCostDataSkipsPlaceholders(t *testing.T) {
	field := DiscoveredField{
		ID:           "group",
		PriceBearing: true,
		Options:      []string{"-- Select --", "red", "blue"},
		PriceOptions: []PriceOption{
			{Value: "red", CostCents: nil},
			{Value: "blue", CostCents: nil},
		},
	}
	if got := ChooseDefaultAnswer(field, ""); got != "red" {
		t.Fatalf("expected first non-placeholder option, got %q", got)
	}
}

func TestChooseDefaultAnswerWithoutOptionsReturnsCurrent(t *testing.T) {
	field := DiscoveredField{ID: "notes", Type: "text"}
	if got := ChooseDefaultAnswer(field, ""); got != "" {
		t.Fatalf("expected unchanged empty value, got %q", got)
	}
}

func TestComputeTotalCentsAddsAnsweredOptions(t *testing.T) {
	fields := []DiscoveredField{
		{
			ID:           "feeField",
			PriceBearing: true,
			PriceOptions: []PriceOption{
				{Value: "addonA", CostCents: cents(500)},
				{Value: "addonB", CostCents: cents(900)},
			},
		},
	}

	total := ComputeTotalCents(cents(1000), fields, map[string]any{"feeField": "addonA"})
	if total != 1500 {
		t.Fatalf("expected 1500, got %d", total)
	}
}

func TestComputeTotalCentsUnansweredFieldContributesNothing(t *testing.T) {
	fields := []DiscoveredField{
		{
			ID:           "feeField",
			PriceBearing: true,
			PriceOptions: []PriceOption{{Value: "addonA", CostCents: cents(500)}},
		},
	}

	if total := ComputeTotalCents(cents(1000), fields, nil); total != 1000 {
		t.Fatalf("expected base only, got %d", total)
	}
	if total := ComputeTotalCents(nil, fields, nil); total != 0 {
		t.Fatalf("expected zero for unknown base, got %d", total)
	}
}

func TestComputeTotalCentsUnknownCostNeverZeroesTotal(t *testing.T) {
	fields := []DiscoveredField{
		{
			ID:           "addons",
			PriceBearing: true,
			PriceOptions: []PriceOption{
				{Value: "helmet", CostCents: cents(700)},
				{Value: "mystery", CostCents: nil},
			},
		},
	}

	total := ComputeTotalCents(cents(1000), fields, map[string]any{
		"addons": []string{"helmet", "mystery"},
	})
	if total != 1700 {
		t.Fatalf("expected unknown cost to contribute nothing, got %d", total)
	}
}

func TestComputeTotalCentsMonotonicWithAdditionalSelections(t *testing.T) {
	fields := []DiscoveredField{
		{
			ID:           "addons",
			PriceBearing: true,
			PriceOptions: []PriceOption{
				{Value: "helmet", CostCents: cents(700)},
				{Value: "poles", CostCents: cents(300)},
			},
		},
	}

	one := ComputeTotalCents(cents(1000), fields, map[string]any{"addons": []string{"helmet"}})
	two := ComputeTotalCents(cents(1000), fields, map[string]any{"addons": []string{"helmet", "poles"}})
	if two < one {
		t.Fatalf("expected monotonic total, got %d then %d", one, two)
	}
	if two != 2000 {
		t.Fatalf("expected 2000, got %d", two)
	}
}
