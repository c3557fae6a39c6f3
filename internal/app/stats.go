package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"leveled-quiz-service/internal/domain"
	"leveled-quiz-service/internal/metrics"
)

// DefaultStatsRetries is how many compare-and-swap rounds Apply tries before giving up.
const DefaultStatsRetries = 5

// ApplyCompletion folds one completion into stats as an online mean:
//
//	played' = played + 1
//	rate'   = (played*rate + quizResult) / played'
//	stars'  = stars + starsEarned
//
// Rapid fire completions also move the checkpoint to now.
func ApplyCompletion(stats domain.UserStats, c domain.Completion, now time.Time) (domain.UserStats, error) {
	if c.QuizResult < 0 {
		return stats, fmt.Errorf("%w: quiz result must not be negative, got %d", domain.ErrInvalidArgument, c.QuizResult)
	}
	played := stats.QuizzesPlayed
	if played < 0 {
		played = 0
	}
	rate := stats.SuccessRate
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}

	next := stats
	next.QuizzesPlayed = played + 1
	next.SuccessRate = (float64(played)*rate + float64(c.QuizResult)) / float64(next.QuizzesPlayed)
	next.Stars = stats.Stars + c.StarsEarned
	if c.RapidFire {
		stamp := now
		next.RapidFireCheckpoint = &stamp
	}
	return next, nil
}

// StatsAggregator applies completion events to stored user statistics. Writes for one user are
// serialized in-process and guarded by the store's version counter, so replicas sharing a store
// cannot lose updates either.
type StatsAggregator struct {
	users      UserStore
	locks      *KeyedMutex
	now        func() time.Time
	maxRetries int
	applied    func(ctx context.Context, user domain.User)
}

func NewStatsAggregator(users UserStore, now func() time.Time, maxRetries int) *StatsAggregator {
	if now == nil {
		now = time.Now
	}
	if maxRetries <= 0 {
		maxRetries = DefaultStatsRetries
	}
	return &StatsAggregator{users: users, locks: NewKeyedMutex(), now: now, maxRetries: maxRetries}
}

// OnApplied registers fn to run after every successful write, still holding the user's lock,
// so fn observes the writes of one user in order.
func (a *StatsAggregator) OnApplied(fn func(ctx context.Context, user domain.User)) {
	a.applied = fn
}

// Apply records c for userID and returns the user as written.
func (a *StatsAggregator) Apply(ctx context.Context, userID string, c domain.Completion) (domain.User, error) {
	if c.QuizResult < 0 {
		return domain.User{}, fmt.Errorf("%w: quiz result must not be negative, got %d", domain.ErrInvalidArgument, c.QuizResult)
	}
	unlock := a.locks.Lock(userID)
	defer unlock()

	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.User{}, err
		}
		user, err := a.users.FindUser(ctx, userID)
		if err != nil {
			return domain.User{}, err
		}
		next, err := ApplyCompletion(user.Stats, c, a.now())
		if err != nil {
			return domain.User{}, err
		}
		ok, err := a.users.CompareAndSwapStats(ctx, userID, user.Version, next)
		if err != nil {
			return domain.User{}, err
		}
		if ok {
			user.Stats = next
			user.Version++
			if a.applied != nil {
				a.applied(ctx, user)
			}
			return user, nil
		}
		metrics.StatsConflicts.Inc()
	}
	return domain.User{}, fmt.Errorf("%w: stats of user %s kept changing after %d attempts", domain.ErrConflict, userID, a.maxRetries)
}
