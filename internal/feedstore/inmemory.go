package feedstore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// InMemoryStore keeps feeds in process memory. It is the default backend
// for single-node deployments and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	feeds map[string]Feed
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{feeds: make(map[string]Feed)}
}

func (s *InMemoryStore) Upsert(ctx context.Context, feed Feed) error {
	feed.OrgRef = normalizeOrgRef(feed.OrgRef)
	feed.Category = normalizeCategory(feed.Category)
	if feed.OrgRef == "" {
		return errors.New("org ref is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[feed.OrgRef+"|"+feed.Category] = cloneFeed(feed)
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, orgRef, category string) (Feed, bool, error) {
	orgRef = normalizeOrgRef(orgRef)
	if orgRef == "" {
		return Feed{}, false, errors.New("org ref is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[orgRef+"|"+normalizeCategory(category)]
	if !ok {
		return Feed{}, false, nil
	}
	return cloneFeed(feed), true, nil
}

func (s *InMemoryStore) List(ctx context.Context, orgRef string) ([]Feed, error) {
	orgRef = normalizeOrgRef(orgRef)
	if orgRef == "" {
		return nil, errors.New("org ref is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds := make([]Feed, 0)
	for _, feed := range s.feeds {
		if feed.OrgRef == orgRef {
			feeds = append(feeds, cloneFeed(feed))
		}
	}
	sort.Slice(feeds, func(i, j int) bool {
		return feeds[i].Category < feeds[j].Category
	})
	return feeds, nil
}

func cloneFeed(feed Feed) Feed {
	out := feed
	out.Programs = append(feed.Programs[:0:0], feed.Programs...)
	return out
}
