package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"leveled-quiz-service/internal/domain"
)

func TestApplyCompletionOnlineMean(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := domain.UserStats{}

	stats, err := ApplyCompletion(stats, domain.Completion{QuizResult: 3, StarsEarned: 5}, now)
	if err != nil {
		t.Fatalf("apply 1: %v", err)
	}
	if stats.QuizzesPlayed != 1 || stats.SuccessRate != 3 || stats.Stars != 5 {
		t.Fatalf("unexpected stats after first event: %+v", stats)
	}

	stats, err = ApplyCompletion(stats, domain.Completion{QuizResult: 5, StarsEarned: 2, RapidFire: true}, now)
	if err != nil {
		t.Fatalf("apply 2: %v", err)
	}
	if stats.QuizzesPlayed != 2 || stats.SuccessRate != 4 || stats.Stars != 7 {
		t.Fatalf("unexpected stats after second event: %+v", stats)
	}
	if stats.RapidFireCheckpoint == nil || !stats.RapidFireCheckpoint.Equal(now) {
		t.Fatalf("expected rapid fire checkpoint at %v, got %v", now, stats.RapidFireCheckpoint)
	}
}

func TestApplyCompletionRecoversNonFiniteRate(t *testing.T) {
	stats := domain.UserStats{QuizzesPlayed: 4, SuccessRate: math.NaN()}
	got, err := ApplyCompletion(stats, domain.Completion{QuizResult: 5}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if math.IsNaN(got.SuccessRate) || got.SuccessRate != 1 {
		t.Fatalf("expected finite rate 1, got %v", got.SuccessRate)
	}
}

func TestStatsAggregatorRetriesLostSwaps(t *testing.T) {
	store := &racingStore{user: domain.User{ID: "u1"}, losses: 2}
	agg := NewStatsAggregator(store, nil, 5)

	user, err := agg.Apply(context.Background(), "u1", domain.Completion{QuizResult: 1, StarsEarned: 2})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if store.attempts != 3 {
		t.Fatalf("expected 3 swap attempts, got %d", store.attempts)
	}
	if user.Stats.QuizzesPlayed != 1 || user.Stats.Stars != 2 {
		t.Fatalf("unexpected stats: %+v", user.Stats)
	}
}

func TestStatsAggregatorSurfacesConflict(t *testing.T) {
	store := &racingStore{user: domain.User{ID: "u1"}, losses: 100}
	agg := NewStatsAggregator(store, nil, 3)

	_, err := agg.Apply(context.Background(), "u1", domain.Completion{QuizResult: 1})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if store.attempts != 3 {
		t.Fatalf("expected retry budget of 3, got %d", store.attempts)
	}
}

func TestKeyedMutexSerializesPerKeyAndCleansUp(t *testing.T) {
	km := NewKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("u1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("expected 100 increments, got %d", counter)
	}
	if km.size() != 0 {
		t.Fatalf("expected no lingering entries, got %d", km.size())
	}

	// different keys do not block each other
	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on b blocked behind a")
	}
	unlockA()
}

// racingStore loses the first `losses` swaps as if another writer got there first.
type racingStore struct {
	mu       sync.Mutex
	user     domain.User
	losses   int
	attempts int
}

func (s *racingStore) FindUser(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.user.ID {
		return domain.User{}, domain.ErrNotFound
	}
	return s.user, nil
}

func (s *racingStore) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	return u, nil
}

func (s *racingStore) ListUsers(context.Context) ([]domain.User, error) {
	return []domain.User{s.user}, nil
}

func (s *racingStore) CompareAndSwapStats(_ context.Context, _ string, expected int64, stats domain.UserStats) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.losses {
		s.user.Version++
		return false, nil
	}
	if expected != s.user.Version {
		return false, nil
	}
	s.user.Stats = stats
	s.user.Version++
	return true, nil
}
