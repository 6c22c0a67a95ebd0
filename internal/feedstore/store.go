package feedstore

import (
	"context"
	"strings"
	"time"

	"github.com/signupassist/provider-pipeline/internal/program"
)

// Feed is the last known good program listing for one (org, category) pair.
// CachedAt is when the programs were extracted, not when the row was
// written; callers use it to tell fresh data from day-old fallbacks.
type Feed struct {
	OrgRef   string            `json:"org_ref"`
	Category string            `json:"category"`
	Programs []program.Program `json:"programs"`
	CachedAt time.Time         `json:"cached_at"`
}

// Store persists feeds across process restarts. Implementations return
// found=false rather than an error when no feed exists yet.
type Store interface {
	Upsert(ctx context.Context, feed Feed) error
	Get(ctx context.Context, orgRef, category string) (Feed, bool, error)
	List(ctx context.Context, orgRef string) ([]Feed, error)
}

func normalizeOrgRef(orgRef string) string {
	return strings.ToLower(strings.TrimSpace(orgRef))
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return "all"
	}
	return category
}
