// Package metrics provides Prometheus instrumentation for the scoring service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trustscore",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AttemptsScoredTotal counts scored attempts by review outcome.
	AttemptsScoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Name:      "attempts_scored_total",
			Help:      "Total attempts scored, by whether mandatory review was raised.",
		},
		[]string{"review"},
	)

	// ScoringFailuresTotal counts pipeline runs that did not produce a report.
	ScoringFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Name:      "scoring_failures_total",
			Help:      "Total scoring runs that failed, by stage.",
		},
		[]string{"stage"},
	)

	// RiskScore observes the distribution of computed risk scores.
	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustscore",
		Name:      "risk_score",
		Help:      "Distribution of attempt risk scores (0-100).",
		Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// RiskCapped counts attempts whose weighted sum exceeded the cap.
	RiskCapped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trustscore",
		Name:      "risk_capped_total",
		Help:      "Total attempts whose uncapped risk contributions exceeded 100.",
	})

	// TrustScoreDelta observes trust changes per attempt.
	TrustScoreDelta = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustscore",
		Name:      "trust_score_delta",
		Help:      "Trust score change applied per attempt.",
		Buckets:   []float64{-10, -7.5, -5, -2.5, -1, 0},
	})

	// BehaviorEventsTotal counts ingested behaviour events by type.
	BehaviorEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trustscore",
			Name:      "behavior_events_total",
			Help:      "Total behaviour events recorded, by event type.",
		},
		[]string{"type"},
	)

	// ActiveAttempts tracks attempt sessions that are open.
	ActiveAttempts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustscore",
		Name:      "active_attempts",
		Help:      "Number of attempt sessions currently open.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustscore", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustscore", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trustscore", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AttemptsScoredTotal,
		ScoringFailuresTotal,
		RiskScore,
		RiskCapped,
		TrustScoreDelta,
		BehaviorEventsTotal,
		ActiveAttempts,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// ObserveScored records one successfully scored attempt.
func ObserveScored(risk, trustDelta float64, review, capped bool) {
	AttemptsScoredTotal.WithLabelValues(strconv.FormatBool(review)).Inc()
	RiskScore.Observe(risk)
	TrustScoreDelta.Observe(trustDelta)
	if capped {
		RiskCapped.Inc()
	}
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern keeps attempt IDs out of labels
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
