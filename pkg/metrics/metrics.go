// Package metrics exposes the Prometheus collectors of the lottery service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nikepig"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ticketsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "tickets_confirmed_total",
			Help:      "Tickets accepted into a round.",
		},
	)

	purchasesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "purchases_rejected_total",
			Help:      "Ticket confirmations refused, by reason.",
		},
		[]string{"reason"},
	)

	roundOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "round_outcomes_total",
			Help:      "Processed rounds by outcome.",
		},
		[]string{"outcome"},
	)

	disbursementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lottery",
			Name:      "disbursement_duration_seconds",
			Help:      "Duration of ledger disbursement calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"success"},
	)

	roundNumber = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "lottery", Name: "round_number",
		Help: "Current round number.",
	})
	poolLovelace = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "lottery", Name: "pool_lovelace",
		Help: "Tracked pool amount of the current round.",
	})
	participants = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "lottery", Name: "participants",
		Help: "Participants in the current round.",
	})
	roundStuck = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "lottery", Name: "round_stuck",
		Help: "1 while a jackpot round waits for an operator.",
	})
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ticketsConfirmed,
		purchasesRejected,
		roundOutcomes,
		disbursementDuration,
		roundNumber,
		poolLovelace,
		participants,
		roundStuck,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and durations by route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if path == "/metrics" {
			return
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordTicketsConfirmed counts accepted tickets
func RecordTicketsConfirmed(n int64) {
	ticketsConfirmed.Add(float64(n))
}

// RecordPurchaseRejected counts a refused confirmation
func RecordPurchaseRejected(reason string) {
	purchasesRejected.WithLabelValues(reason).Inc()
}

// RecordRoundOutcome counts a processed round
func RecordRoundOutcome(outcome string) {
	roundOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveDisbursement records one ledger call
func ObserveDisbursement(success bool, d time.Duration) {
	disbursementDuration.WithLabelValues(strconv.FormatBool(success)).Observe(d.Seconds())
}

// SetRound updates the current round gauges
func SetRound(number int64, pool int64, participantCount int, stuck bool) {
	roundNumber.Set(float64(number))
	poolLovelace.Set(float64(pool))
	participants.Set(float64(participantCount))
	if stuck {
		roundStuck.Set(1)
	} else {
		roundStuck.Set(0)
	}
}
