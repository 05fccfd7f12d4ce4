package service

import (
	"context"
	"sync"
	"time"
)

// ListCacheStore holds serialized listing pages grouped by namespace so one
// write can drop every cached page of that listing.
type ListCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopListCacheStore struct{}

func (NoopListCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopListCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (NoopListCacheStore) InvalidateNamespace(context.Context, string) error { return nil }

type listCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryListCacheStore struct {
	mu    sync.RWMutex
	pages map[string]map[string]listCacheEntry
	now   func() time.Time
}

func NewInMemoryListCacheStore() *InMemoryListCacheStore {
	return &InMemoryListCacheStore{
		pages: make(map[string]map[string]listCacheEntry),
		now:   time.Now,
	}
}

func (s *InMemoryListCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	now := s.now().UTC()
	s.mu.RLock()
	entry, ok := s.pages[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		s.mu.Lock()
		if ns, found := s.pages[namespace]; found {
			delete(ns, key)
			if len(ns) == 0 {
				delete(s.pages, namespace)
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryListCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.pages[namespace]
	if !ok {
		ns = make(map[string]listCacheEntry)
		s.pages[namespace] = ns
	}
	ns[key] = listCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().UTC().Add(ttl),
	}
	return nil
}

func (s *InMemoryListCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, namespace)
	return nil
}
