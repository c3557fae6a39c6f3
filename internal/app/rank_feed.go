package app

import (
	"sync"

	"leveled-quiz-service/internal/domain"
	"leveled-quiz-service/internal/metrics"
)

// RankFeed fans ranking snapshots out to live subscribers.
type RankFeed struct {
	mu          sync.Mutex
	latest      []domain.RankedUser
	subscribers map[chan []domain.RankedUser]struct{}
}

func NewRankFeed() *RankFeed {
	return &RankFeed{subscribers: make(map[chan []domain.RankedUser]struct{})}
}

// Subscribe returns a channel that first yields the latest known board (or initial when
// nothing was published yet) and then every later snapshot. Call cancel to stop.
func (f *RankFeed) Subscribe(initial []domain.RankedUser) (<-chan []domain.RankedUser, func()) {
	ch := make(chan []domain.RankedUser, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	if f.latest != nil {
		initial = f.latest
	}
	// sent under the lock so no Publish can overtake it; the buffer is empty here
	ch <- initial
	f.mu.Unlock()
	metrics.RankSubscribers.Inc()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
			metrics.RankSubscribers.Dec()
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish stores board as the latest snapshot and pushes it to every subscriber.
func (f *RankFeed) Publish(board []domain.RankedUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = board
	for ch := range f.subscribers {
		select {
		case ch <- board:
		default:
			// slow reader: replace its oldest snapshot with the newest one
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}

// Subscribers reports how many feeds are open.
func (f *RankFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
