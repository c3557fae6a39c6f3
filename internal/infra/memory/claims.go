package memory

import (
	"context"
	"sync"
	"time"
)

type claim struct {
	token     string
	expiresAt time.Time
}

// ClaimStore is an in-memory implementation of app.Claimer with per-key expiry.
type ClaimStore struct {
	mu     sync.Mutex
	clock  func() time.Time
	claims map[string]claim
}

func NewClaimStore() *ClaimStore {
	return &ClaimStore{clock: time.Now, claims: make(map[string]claim)}
}

// Claim takes key for ttl unless someone else holds an unexpired claim on it.
func (s *ClaimStore) Claim(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if c, ok := s.claims[key]; ok && c.expiresAt.After(now) {
		return false, nil
	}
	s.claims[key] = claim{token: token, expiresAt: now.Add(ttl)}
	s.sweepLocked(now)
	return true, nil
}

// Release drops key when it is still held under token.
func (s *ClaimStore) Release(_ context.Context, key, token string) error {
	s.mu.Lock()
	if c, ok := s.claims[key]; ok && c.token == token {
		delete(s.claims, key)
	}
	s.mu.Unlock()
	return nil
}

// Held reports whether key is currently claimed.
func (s *ClaimStore) Held(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[key]
	return ok && c.expiresAt.After(s.clock())
}

func (s *ClaimStore) sweepLocked(now time.Time) {
	for key, c := range s.claims {
		if !c.expiresAt.After(now) {
			delete(s.claims, key)
		}
	}
}
