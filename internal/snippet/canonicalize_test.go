package snippet

import (
	"strings"
	"testing"
)

const fixtureHTML = `
<div class="view-content" data-once="tracking">
  <style>.row { color: red; }</style>
  <script>window.__tracker = 1;</script>
  <!-- rendered by provider -->
  <div class="views-row" style="padding: 4px">
    <span class="title">Beginner   Ski Lessons</span>
    <a class="btn" target="_blank" href="/registration/123/register?sid=abc">Register</a>
  </div>
  <div class="views-row">
    <span class="title">Racing Club</span>
    <a href="/registration/456/register">Register</a>
  </div>
</div>
`

func TestCanonicalizeStripsScriptStyleAndAttributes(t *testing.T) {
	out, err := Canonicalize(fixtureHTML)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	for _, forbidden := range []string{"<script", "<style", "__tracker", "color: red", "class=", "style=", "data-once", "target=", "<!--"} {
		if strings.Contains(out, forbidden) {
			t.Fatalf("expected %q to be stripped, output: %s", forbidden, out)
		}
	}
	for _, required := range []string{
		`href="/registration/123/register?sid=abc"`,
		`href="/registration/456/register"`,
		"Beginner Ski Lessons",
		"Racing Club",
	} {
		if !strings.Contains(out, required) {
			t.Fatalf("expected %q preserved, output: %s", required, out)
		}
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	once, err := Canonicalize(fixtureHTML)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := Canonicalize(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if once != twice {
		t.Fatalf("canonicalize not idempotent:\nfirst:  %s\nsecond: %s", once, twice)
	}
}

func TestCanonicalizeCollapsesWhitespaceAndDedupesLines(t *testing.T) {
	out, err := Canonicalize("<div>\n<p>same   line</p>\n<p>same   line</p>\nrepeat me\nrepeat me\n</div>")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if strings.Contains(out, "  ") {
		t.Fatalf("expected whitespace runs collapsed, output: %q", out)
	}
	if strings.Count(out, "repeat me") != 1 {
		t.Fatalf("expected duplicate lines removed, output: %q", out)
	}
}

func TestContentHashStableAcrossEquivalentMarkup(t *testing.T) {
	first, err := Canonicalize(`<div class="a"><p>Hello</p></div>`)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	second, err := Canonicalize(`<div   id="b"
	><p>Hello</p></div>`)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if ContentHash(first) != ContentHash(second) {
		t.Fatalf("expected identical hashes:\n%s\n%s", first, second)
	}
}

func TestCacheKeyComposition(t *testing.T) {
	key, err := CacheKey("blackhawk", "nordic", "<div>x</div>")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if !strings.HasPrefix(key, "blackhawk|nordic|") {
		t.Fatalf("unexpected key %q", key)
	}
	if len(key) != len("blackhawk|nordic|")+64 {
		t.Fatalf("expected 64-char content hash suffix, got %q", key)
	}

	if _, err := CacheKey("  ", "nordic", "x"); err == nil {
		t.Fatalf("expected error for empty org ref")
	}

	defaulted, err := CacheKey("blackhawk", "", "x")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if !strings.HasPrefix(defaulted, "blackhawk|all|") {
		t.Fatalf("expected defaulted category, got %q", defaulted)
	}
}
