package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"leveled-quiz-service/internal/domain"
	"leveled-quiz-service/internal/metrics"
	"leveled-quiz-service/internal/sampler"
)

// DefaultClaimTTL bounds how long an issued but not yet completed rapid fire run blocks
// another issue on the same day.
const DefaultClaimTTL = 15 * time.Minute

// RapidFireTranches is the number of questions drawn per level for one rapid fire run.
var RapidFireTranches = [domain.LevelCount]int{15, 30, 45, 60, 75}

// RapidFireSet is the outcome of one gate decision. QuestionIDs is empty when the user is not
// eligible or another run is in flight. RunID identifies the claim taken for the run.
type RapidFireSet struct {
	Eligible    bool
	RunID       string
	QuestionIDs []string
	Exhausted   bool
}

// SessionGate limits each user to one rapid fire run per calendar day.
type SessionGate struct {
	users    UserStore
	index    *CatalogIndex
	claims   Claimer
	calendar Calendar
	rnd      sampler.Rand
	locks    *KeyedMutex
	claimTTL time.Duration
}

// NewSessionGate wires the gate. A nil claimer leaves only the in-process lock, which
// serializes concurrent requests but cannot stop a second request once the first returned.
func NewSessionGate(users UserStore, index *CatalogIndex, claims Claimer, calendar Calendar, rnd sampler.Rand, claimTTL time.Duration) *SessionGate {
	if rnd == nil {
		rnd = sampler.Global
	}
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &SessionGate{
		users:    users,
		index:    index,
		claims:   claims,
		calendar: calendar,
		rnd:      rnd,
		locks:    NewKeyedMutex(),
		claimTTL: claimTTL,
	}
}

// ClaimKey names the in-flight claim of userID for the day containing now.
func (g *SessionGate) ClaimKey(userID string, now time.Time) string {
	return "rapidfire:" + userID + ":" + g.calendar.DayKey(now)
}

// Issue draws a rapid fire set for userID when the user has not completed one today and no
// other run is in flight. No sampling happens otherwise.
func (g *SessionGate) Issue(ctx context.Context, userID string) (RapidFireSet, error) {
	unlock := g.locks.Lock(userID)
	defer unlock()

	user, err := g.users.FindUser(ctx, userID)
	if err != nil {
		return RapidFireSet{}, err
	}
	now := g.calendar.Now()
	if !g.calendar.IsEligibleToday(user.Stats.RapidFireCheckpoint, now) {
		metrics.RapidFireRequests.WithLabelValues("ineligible").Inc()
		return RapidFireSet{}, nil
	}

	key := g.ClaimKey(userID, now)
	runID := uuid.NewString()
	if g.claims != nil {
		claimed, err := g.claims.Claim(ctx, key, runID, g.claimTTL)
		if err != nil {
			return RapidFireSet{}, err
		}
		if !claimed {
			metrics.RapidFireRequests.WithLabelValues("in_flight").Inc()
			return RapidFireSet{}, nil
		}
	}

	ids, exhausted, err := g.draw(ctx)
	if err != nil {
		if g.claims != nil {
			if relErr := g.claims.Release(context.WithoutCancel(ctx), key, runID); relErr != nil {
				log.Printf("release rapid fire claim %s: %v", key, relErr)
			}
		}
		return RapidFireSet{}, err
	}
	metrics.RapidFireRequests.WithLabelValues("issued").Inc()
	return RapidFireSet{Eligible: true, RunID: runID, QuestionIDs: ids, Exhausted: exhausted}, nil
}

// Finish drops the claim of run runID once the run has been recorded. A claim taken by a later
// run is left alone. Without a run id the claim simply expires; the stamped checkpoint already
// blocks another run today.
func (g *SessionGate) Finish(ctx context.Context, userID, runID string, now time.Time) error {
	if g.claims == nil || runID == "" {
		return nil
	}
	return g.claims.Release(ctx, g.ClaimKey(userID, now), runID)
}

func (g *SessionGate) draw(ctx context.Context) ([]string, bool, error) {
	total := 0
	for _, n := range RapidFireTranches {
		total += n
	}
	out := make([]string, 0, total)
	exhausted := false
	for level, want := range RapidFireTranches {
		pool, err := g.index.LevelPool(ctx, level)
		if err != nil {
			return nil, false, err
		}
		picked, err := sampler.SelectRandom(g.rnd, pool, want)
		if err != nil {
			return nil, false, err
		}
		if len(picked) < want {
			exhausted = true
		}
		out = append(out, picked...)
	}
	return out, exhausted, nil
}
