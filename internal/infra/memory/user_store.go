package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"leveled-quiz-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) FindUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *UserStore) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return domain.User{}, fmt.Errorf("user %s: %w", u.ID, domain.ErrConflict)
	}
	u = cloneUser(u)
	u.Version = 0
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) CompareAndSwapStats(_ context.Context, id string, expected int64, stats domain.UserStats) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if u.Version != expected {
		return false, nil
	}
	u.Stats = cloneStats(stats)
	u.Version++
	s.users[id] = u
	return true, nil
}

func cloneUser(u domain.User) domain.User {
	u.Stats = cloneStats(u.Stats)
	return u
}

func cloneStats(st domain.UserStats) domain.UserStats {
	if st.RapidFireCheckpoint != nil {
		cp := *st.RapidFireCheckpoint
		st.RapidFireCheckpoint = &cp
	}
	return st
}
