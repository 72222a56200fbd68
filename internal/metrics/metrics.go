// Package metrics holds the Prometheus collectors for the recommender service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	RecommendationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_recommendations_total",
			Help: "Total number of ranked recommendation lists produced",
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_candidates_scored_total",
			Help: "Total number of candidate articles scored",
		},
	)

	ProfileTerms = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_profile_terms",
			Help:    "Number of distinct terms in user profiles at ranking time",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_rank_duration_seconds",
			Help:    "Time spent building the profile and ranking candidates",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_upstream_errors_total",
			Help: "Total number of failed candidate source requests",
		},
		[]string{"source"},
	)

	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_like_operations_total",
			Help: "Total number of like and unlike operations",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records a completed API request
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRanking records one ranking pass
func RecordRanking(profileTerms, candidates int, duration time.Duration) {
	RecommendationsTotal.Inc()
	CandidatesScored.Add(float64(candidates))
	ProfileTerms.Observe(float64(profileTerms))
	RankDuration.Observe(duration.Seconds())
}
