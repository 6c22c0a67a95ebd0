package forms

import (
	"sort"
	"strings"
)

// ChooseDefaultAnswer picks a sane default value for a field when the user
// (or a stored profile) has not supplied one. An existing value is always
// returned unchanged. For price-bearing fields the preference order is:
// exactly-zero cost, then cheapest known cost, then the first
// non-placeholder option, then the first option outright.
func ChooseDefaultAnswer(field DiscoveredField, current string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}

	options := collectOptions(field.Options)
	if len(options) == 0 {
		return current
	}

	if field.PriceBearing && len(field.PriceOptions) > 0 {
		if value, ok := preferredPricedValue(field.PriceOptions); ok {
			return value
		}
	}

	for _, opt := range options {
		if !isPlaceholder(opt.Value, opt.Label) {
			return opt.Value
		}
	}
	return options[0].Value
}

func preferredPricedValue(priced []PriceOption) (string, bool) {
	var cheapest *PriceOption
	for i := range priced {
		opt := priced[i]
		if opt.CostCents == nil {
			continue
		}
		if *opt.CostCents == 0 {
			return opt.Value, true
		}
		if cheapest == nil || *opt.CostCents < *cheapest.CostCents {
			cheapest = &priced[i]
		}
	}
	if cheapest != nil {
		return cheapest.Value, true
	}
	// No cost data at all: fall through to the option-order heuristics.
	return "", false
}

// ComputeTotalCents computes the total owed from a base price plus every
// answered price-bearing field. A nil base is treated as zero. Unknown
// option costs contribute nothing; they never zero out the running total.
// Unanswered fields contribute nothing. Answers accept a single value or a
// list of selected values per field id.
func ComputeTotalCents(basePriceCents *int64, fields []DiscoveredField, answers map[string]any) int64 {
	var total int64
	if basePriceCents != nil {
		total = *basePriceCents
	}

	for _, field := range fields {
		if !field.PriceBearing || len(field.PriceOptions) == 0 {
			continue
		}
		for _, selected := range selectedValues(answers[field.ID]) {
			if cost, ok := costForValue(field.PriceOptions, selected); ok {
				total += cost
			}
		}
	}
	return total
}

func selectedValues(answer any) []string {
	switch typed := answer.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	case []string:
		out := make([]string, 0, len(typed))
		for _, value := range typed {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(typed))
		for _, value := range typed {
			if str, ok := value.(string); ok {
				if trimmed := strings.TrimSpace(str); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func costForValue(priced []PriceOption, value string) (int64, bool) {
	for _, opt := range priced {
		if opt.Value != value {
			continue
		}
		if opt.CostCents == nil {
			return 0, false
		}
		return *opt.CostCents, true
	}
	return 0, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
