package forms

import "testing"

func TestNormalizeOptionsShapes(t *testing.T) {
	shapes := map[string]any{
		"string array": []string{"-- Select --", "Morning", "Afternoon", "Morning"},
		"object array": []any{
			map[string]any{"value": "", "label": "-- Select --"},
			map[string]any{"value": "am", "label": "Morning"},
			map[string]any{"value": "pm", "label": "Afternoon"},
			map[string]any{"value": "am", "label": "Morning again"},
		},
		"key-value map": map[string]string{
			"_none": "Choose an option...",
			"am":    "Morning",
			"pm":    "Afternoon",
		},
	}

	for name, raw := range shapes {
		out := NormalizeOptions(raw)
		if len(out) != 2 {
			t.Fatalf("%s: expected 2 options, got %d: %+v", name, len(out), out)
		}
		seen := make(map[string]struct{})
		for _, opt := range out {
			if isPlaceholder(opt.Value, opt.Label) {
				t.Fatalf("%s: placeholder survived normalization: %+v", name, opt)
			}
			if _, dup := seen[opt.Value]; dup {
				t.Fatalf("%s: duplicate value %q", name, opt.Value)
			}
			seen[opt.Value] = struct{}{}
		}
	}
}

func TestNormalizeOptionsTrimsPriceSuffix(t *testing.T) {
	out := NormalizeOptions([]any{
		map[string]any{"value": "full", "label": "Full Day ($45.00)"},
		map[string]any{"value": "half", "label": "Half Day ( $20.50 )"},
		map[string]any{"value": "free", "label": "Observer"},
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 options, got %+v", out)
	}
	if out[0].Label != "Full Day" {
		t.Fatalf("expected trimmed label, got %q", out[0].Label)
	}
	if out[1].Label != "Half Day" {
		t.Fatalf("expected trimmed label, got %q", out[1].Label)
	}
	if out[2].Label != "Observer" {
		t.Fatalf("expected untouched label, got %q", out[2].Label)
	}
}

func TestNormalizeKeepsDecisionPointsOnly(t *testing.T) {
	fields := []DiscoveredField{
		{ID: "participant_name", Type: "text", Required: true, Label: "Participant Name"},
		{ID: "notes", Type: "text", Label: "Anything else?"},
		{ID: "shirt_size", Type: "select", Options: []string{"S", "M", "L"}},
		{ID: "waiver", Type: "checkbox", Label: "I agree"},
		{ID: "level", Type: "radio", Options: []string{"Beginner", "Expert"}},
		{ID: "dob", Type: "date", Label: "Date of Birth"},
		{ID: "age", Type: "number", Label: "Age"},
		{ID: "bio", Type: "textarea", Label: "About the participant"},
	}

	out := Normalize(fields)
	want := []string{"participant_name", "shirt_size", "waiver", "level", "dob", "age", "bio"}
	if len(out) != len(want) {
		t.Fatalf("expected %d questions, got %d: %+v", len(want), len(out), out)
	}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("question %d: expected %q, got %q", i, id, out[i].ID)
		}
	}
}

func TestNormalizeSkipsInternalAndHiddenFields(t *testing.T) {
	fields := []DiscoveredField{
		{ID: "form_build_id", Type: "text", Required: true},
		{ID: "coupon_code", Type: "text", Required: true, Label: "Coupon"},
		{ID: "captcha_response", Type: "text", Required: true},
		{ID: "secret", Type: "select", Hidden: true, Options: []string{"a"}},
		{ID: "website_hp_field", Type: "text", Required: true},
		{ID: "level", Type: "select", Options: []string{"Beginner"}},
	}

	out := Normalize(fields)
	if len(out) != 1 || out[0].ID != "level" {
		t.Fatalf("expected only the level field to survive, got %+v", out)
	}
}

func TestInferTypeFallsBackToSelectWhenOptionsPresent(t *testing.T) {
	field := DiscoveredField{ID: "session", Options: []string{"AM", "PM"}}
	out := Normalize([]DiscoveredField{field})
	if len(out) != 1 || out[0].Type != TypeSelect {
		t.Fatalf("expected inferred select, got %+v", out)
	}
}

func TestNormalizeLabelsFromID(t *testing.T) {
	out := Normalize([]DiscoveredField{{ID: "emergency_contact-phone", Type: "number"}})
	if len(out) != 1 {
		t.Fatalf("expected one question, got %+v", out)
	}
	if out[0].Label != "emergency contact phone" {
		t.Fatalf("unexpected derived label %q", out[0].Label)
	}
}
