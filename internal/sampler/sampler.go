// Package sampler draws question sets from leveled pools. Every function is pure apart from
// the injected random source, so callers may run them concurrently over private snapshots.
package sampler

import (
	"fmt"
	"math/rand"

	"leveled-quiz-service/internal/domain"
)

const (
	// DefaultPerTopicQuota is how many questions one topic contributes per pass.
	DefaultPerTopicQuota = 2
	// DefaultMaxPasses bounds the number of passes ComposeQuiz makes over the topic list.
	DefaultMaxPasses = 3000
)

// Rand is the subset of *rand.Rand the sampler needs. *rand.Rand is not safe for concurrent
// use; share Global or give each goroutine its own source.
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// Global draws from the math/rand top-level source, which is safe for concurrent use.
var Global Rand = globalRand{}

// NewRand returns a deterministic source, mainly for tests.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// SelectRandom returns min(count, len(pool)) elements drawn uniformly without replacement.
// Elements are distinguished by position, so equal values in pool are distinct draws.
func SelectRandom[T any](rnd Rand, pool []T, count int) ([]T, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative, got %d", domain.ErrInvalidArgument, count)
	}
	if count > len(pool) {
		count = len(pool)
	}
	// partial Fisher-Yates over an index permutation; pool itself is never mutated
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	selected := make([]T, 0, count)
	for i := 0; i < count; i++ {
		j := i + rnd.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		selected = append(selected, pool[idx[i]])
	}
	return selected, nil
}

// Shuffle returns a uniformly random permutation of seq.
func Shuffle[T any](rnd Rand, seq []T) []T {
	out, _ := SelectRandom(rnd, seq, len(seq))
	return out
}

// ComposeOptions tunes ComposeQuiz. Zero values fall back to the defaults.
type ComposeOptions struct {
	PerTopicQuota int
	MaxPasses     int
}

func (o ComposeOptions) withDefaults() ComposeOptions {
	if o.PerTopicQuota == 0 {
		o.PerTopicQuota = DefaultPerTopicQuota
	}
	if o.MaxPasses == 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	return o
}

// ComposeQuiz builds a quiz of up to target distinct ids from per-topic pools. Each pass
// walks the topics in order and takes up to PerTopicQuota unselected ids from each one, until
// target is met, the pass budget runs out, or every pool is exhausted. The result is shuffled
// so topic clustering is not visible. A short result is not an error.
func ComposeQuiz(rnd Rand, pools [][]string, target int, opts ComposeOptions) ([]string, error) {
	opts = opts.withDefaults()
	if target < 0 {
		return nil, fmt.Errorf("%w: target count must not be negative, got %d", domain.ErrInvalidArgument, target)
	}
	if opts.PerTopicQuota < 0 || opts.MaxPasses < 0 {
		return nil, fmt.Errorf("%w: quota and pass budget must be positive", domain.ErrInvalidArgument)
	}

	remaining := make([][]string, len(pools))
	for i, pool := range pools {
		remaining[i] = distinct(pool)
	}

	chosen := make(map[string]struct{}, target)
	out := make([]string, 0, target)

	for pass := 0; pass < opts.MaxPasses && len(out) < target; pass++ {
		progressed := false
		for t := range remaining {
			taken := 0
			for taken < opts.PerTopicQuota && len(remaining[t]) > 0 && len(out) < target {
				id := drawAndRemove(rnd, &remaining[t])
				if _, dup := chosen[id]; dup {
					// already contributed by another topic sharing the question
					continue
				}
				chosen[id] = struct{}{}
				out = append(out, id)
				taken++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return Shuffle(rnd, out), nil
}

// drawAndRemove pops a uniformly chosen element from *pool in O(1) by swapping with the tail.
func drawAndRemove(rnd Rand, pool *[]string) string {
	p := *pool
	i := rnd.Intn(len(p))
	id := p[i]
	last := len(p) - 1
	p[i] = p[last]
	*pool = p[:last]
	return id
}

func distinct(pool []string) []string {
	seen := make(map[string]struct{}, len(pool))
	out := make([]string, 0, len(pool))
	for _, id := range pool {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
