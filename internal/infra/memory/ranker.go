package memory

import (
	"context"
	"sync"

	"leveled-quiz-service/internal/app"
	"leveled-quiz-service/internal/domain"
)

// Ranker keeps the latest stats of every ranked user in memory.
type Ranker struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewRanker() *Ranker {
	return &Ranker{users: make(map[string]domain.User)}
}

// Update stores u unless a newer version of the same user is already ranked.
func (r *Ranker) Update(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.users[u.ID]; ok && cur.Version > u.Version {
		return nil
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

// Count reports how many users are ranked.
func (r *Ranker) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *Ranker) Top(_ context.Context, limit int) ([]domain.RankedUser, error) {
	r.mu.RLock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()
	return app.RankUsers(users, limit), nil
}
