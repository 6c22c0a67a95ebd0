package forms

import (
	"fmt"
	"regexp"
	"strings"
)

// skipPatterns marks fields that are never user-facing decision points:
// honeypots and internal controls, participant bookkeeping, coupon/discount
// entry, and captcha widgets.
var skipPatterns = []string{
	"honeypot",
	"hp_",
	"_hp",
	"form_build_id",
	"form_token",
	"csrf",
	"participant_id",
	"participant-tracking",
	"coupon",
	"discount",
	"promo",
	"captcha",
}

// trailing "($12.00)" style price annotation on an option label.
var labelPriceSuffix = regexp.MustCompile(`\s*\(\s*[-+]?\$\s*\d+(?:\.\d{1,2})?\s*\)\s*$`)

var placeholderLabels = []string{
	"-- select --",
	"--select--",
	"select one",
	"select an option",
	"choose",
	"please select",
	"please choose",
}

// Normalize maps heterogeneous discovered form fields into canonical
// questions. Honeypot/tracking/coupon/captcha and hidden fields are skipped,
// a semantic type is inferred, option lists are cleaned, and plain optional
// text fields are dropped. Output ordering matches input ordering minus
// filtered entries.
func Normalize(fields []DiscoveredField) []Question {
	out := make([]Question, 0, len(fields))
	for _, field := range fields {
		if shouldSkip(field) {
			continue
		}

		options := NormalizeOptions(field.Options)
		fieldType := inferType(field, options)

		// Free-text fields with no enforced requirement are assumed
		// pre-fillable and excluded from the user-facing question set.
		if fieldType == TypeText && !field.Required {
			continue
		}

		label := strings.TrimSpace(field.Label)
		if label == "" {
			label = labelFromID(field.ID)
		}

		out = append(out, Question{
			ID:       field.ID,
			Label:    label,
			Type:     fieldType,
			Required: field.Required,
			Options:  options,
		})
	}
	return out
}

func shouldSkip(field DiscoveredField) bool {
	if field.Hidden {
		return true
	}
	haystack := strings.ToLower(field.ID + " " + field.Label)
	for _, pattern := range skipPatterns {
		if strings.Contains(haystack, pattern) {
			return true
		}
	}
	return false
}

// inferType resolves the semantic field type from the declared hint or, when
// the hint is absent or unrecognized, from the presence of options. Priority
// order: select > radio > checkbox > textarea > number > date, then text.
func inferType(field DiscoveredField, options []Option) string {
	switch strings.ToLower(strings.TrimSpace(field.Type)) {
	case TypeSelect, "select-one", "select-multiple", "dropdown":
		return TypeSelect
	case TypeRadio:
		return TypeRadio
	case TypeCheckbox:
		return TypeCheckbox
	case TypeTextarea:
		return TypeTextarea
	case TypeNumber:
		return TypeNumber
	case TypeDate, "datetime", "datetime-local":
		return TypeDate
	}
	if len(options) > 0 {
		return TypeSelect
	}
	return TypeText
}

// NormalizeOptions accepts the three option shapes scraped descriptors
// arrive in: a string array, an array of value/label-like objects, or a
// plain key-value mapping. Placeholder entries and sentinel "none" values
// are stripped, trailing embedded price annotations are trimmed from
// labels, and duplicates are removed by value preserving first occurrence.
func NormalizeOptions(raw any) []Option {
	collected := collectOptions(raw)

	seen := make(map[string]struct{}, len(collected))
	out := make([]Option, 0, len(collected))
	for _, opt := range collected {
		value := strings.TrimSpace(opt.Value)
		label := CleanOptionLabel(opt.Label)
		if label == "" {
			label = value
		}
		if value == "" && label == "" {
			continue
		}
		if isPlaceholder(value, label) {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, Option{Value: value, Label: label})
	}
	return out
}

func collectOptions(raw any) []Option {
	switch typed := raw.(type) {
	case nil:
		return nil
	case []Option:
		return typed
	case []string:
		out := make([]Option, 0, len(typed))
		for _, value := range typed {
			out = append(out, Option{Value: value, Label: value})
		}
		return out
	case map[string]string:
		out := make([]Option, 0, len(typed))
		for _, key := range sortedKeys(typed) {
			out = append(out, Option{Value: key, Label: typed[key]})
		}
		return out
	case map[string]any:
		out := make([]Option, 0, len(typed))
		for _, key := range sortedAnyKeys(typed) {
			out = append(out, Option{Value: key, Label: stringify(typed[key])})
		}
		return out
	case []any:
		out := make([]Option, 0, len(typed))
		for _, entry := range typed {
			switch item := entry.(type) {
			case string:
				out = append(out, Option{Value: item, Label: item})
			case map[string]any:
				value := stringify(firstOf(item, "value", "id", "key"))
				label := stringify(firstOf(item, "label", "text", "name", "title"))
				if value == "" {
					value = label
				}
				out = append(out, Option{Value: value, Label: label})
			case Option:
				out = append(out, item)
			}
		}
		return out
	default:
		return nil
	}
}

// CleanOptionLabel trims whitespace and removes a trailing parenthesized
// dollar amount, e.g. "Full Day ($45.00)" -> "Full Day".
func CleanOptionLabel(label string) string {
	return strings.TrimSpace(labelPriceSuffix.ReplaceAllString(label, ""))
}

func isPlaceholder(value, label string) bool {
	lowerValue := strings.ToLower(value)
	if lowerValue == "none" || lowerValue == "_none" {
		return true
	}
	lowerLabel := strings.ToLower(label)
	for _, placeholder := range placeholderLabels {
		if strings.HasPrefix(lowerLabel, placeholder) {
			return true
		}
	}
	// "Choose..." / "choose an item…" style prompts.
	if strings.HasPrefix(lowerLabel, "choose") && (strings.HasSuffix(lowerLabel, "...") || strings.HasSuffix(lowerLabel, "…")) {
		return true
	}
	return false
}

func labelFromID(id string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ", "[", " ", "]", " ").Replace(id)
	return strings.Join(strings.Fields(cleaned), " ")
}

func firstOf(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := m[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		// JSON numbers decode as float64; render integers without a dot.
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
