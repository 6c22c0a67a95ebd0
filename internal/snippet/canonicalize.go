package snippet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceRuns    = regexp.MustCompile(`[ \t\r\f\v]+`)
	interTagGaps = regexp.MustCompile(`>\s+<`)
)

// Canonicalize reduces raw HTML to a minimal, stable textual form used both
// as extraction-model input and as the content half of the cache key.
// Scripts, styles, noscript blocks and comments are removed; every element
// attribute except href on anchors is dropped; whitespace runs collapse to
// single spaces; whitespace between tags is removed; exact duplicate lines
// are deduplicated. The function is deterministic, pure, and idempotent.
func Canonicalize(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	for _, root := range doc.Nodes {
		pruneNode(root)
	}

	body := doc.Find("body")
	inner, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	return minimize(inner), nil
}

// pruneNode walks the node tree removing comment nodes and stripping
// attributes. Anchor href values are preserved verbatim; they carry the
// registration/detail links downstream consumers resolve.
func pruneNode(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			pruneNode(child)
		}
		child = next
	}

	if n.Type != html.ElementNode {
		return
	}
	if n.Data == "a" {
		kept := n.Attr[:0]
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				kept = append(kept, attr)
			}
		}
		n.Attr = kept
		return
	}
	n.Attr = nil
}

func minimize(rendered string) string {
	collapsed := spaceRuns.ReplaceAllString(rendered, " ")
	collapsed = interTagGaps.ReplaceAllString(collapsed, "><")

	lines := strings.Split(collapsed, "\n")
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// ContentHash returns the stable hex digest of a canonicalized snippet.
func ContentHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// CacheKey composes the content-addressed extraction cache key. Identical
// page content yields an identical key regardless of when it was observed.
func CacheKey(orgRef, category, canonical string) (string, error) {
	orgRef = strings.TrimSpace(orgRef)
	if orgRef == "" {
		return "", errors.New("org ref is required")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = "all"
	}
	return orgRef + "|" + category + "|" + ContentHash(canonical), nil
}
