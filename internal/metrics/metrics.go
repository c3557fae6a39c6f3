package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuizzesComposed counts question sets handed out, by kind (category, random, rapid_fire).
	QuizzesComposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sets_composed_total",
			Help: "Total number of question sets composed",
		},
		[]string{"kind"},
	)

	// SampleShortfalls counts sets that came back shorter than requested.
	SampleShortfalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_sample_shortfalls_total",
			Help: "Total number of question sets shorter than requested",
		},
		[]string{"kind"},
	)

	// RapidFireRequests counts gate decisions: issued, ineligible, in_flight.
	RapidFireRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_rapid_fire_requests_total",
			Help: "Rapid fire requests by gate outcome",
		},
		[]string{"outcome"},
	)

	// Completions counts applied completion events.
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_completions_total",
			Help: "Total number of quiz completions applied to user stats",
		},
		[]string{"mode"},
	)

	// StatsConflicts counts compare-and-swap attempts that lost a race.
	StatsConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_stats_cas_conflicts_total",
			Help: "Stats updates retried because the stored version moved",
		},
	)

	// RequestDuration observes HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)

	// RankSubscribers tracks open websocket ranking feeds.
	RankSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_rank_feed_subscribers",
			Help: "Current number of ranking feed subscribers",
		},
	)
)
