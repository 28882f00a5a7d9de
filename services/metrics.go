package services

import "github.com/prometheus/client_golang/prometheus"

var (
	achievementsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_achievements_awarded_total",
			Help: "Total number of achievements awarded, by trigger",
		},
		[]string{"trigger"},
	)
	challengesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_challenges_completed_total",
			Help: "Total number of challenge completions persisted",
		},
	)
	progressSyncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_progress_sync_failures_total",
			Help: "Total number of challenge progress writes that failed",
		},
	)
	statReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_stat_read_failures_total",
			Help: "Total number of activity reads that failed and defaulted to zero",
		},
		[]string{"stat"},
	)
)

// InitMetrics registers the engine metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(achievementsAwarded)
	prometheus.MustRegister(challengesCompleted)
	prometheus.MustRegister(progressSyncFailures)
	prometheus.MustRegister(statReadFailures)
}
