package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "agrisense_"

	resultSuccess = "success"
	resultPartial = "partial"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	analyticsRowsInserted prometheus.Counter
	analyticsDegraded     prometheus.Counter

	frostDecisions    *prometheus.CounterVec
	leaseAcquisitions *prometheus.CounterVec
	frostEnqueues     *prometheus.CounterVec

	alertEvaluations    *prometheus.CounterVec
	alertNotifications  prometheus.Counter
	alertTokensCleared  prometheus.Counter
	alertDeliveryErrors prometheus.Counter

	sweepMarkedOffline prometheus.Counter
)

// Init registers ingestion, frost, alert and sweep metrics plus DB-backed
// gauges. Safe to call more than once.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_sensor_errors_total",
				Help: "Total per-sensor ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		analyticsRowsInserted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_rows_inserted_total",
				Help: "Total analytical rows inserted",
			},
		)
		analyticsDegraded = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_degraded_total",
				Help: "Total batches whose analytical insert failed",
			},
		)

		frostDecisions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frost_decisions_total",
				Help: "Total frost trigger decisions by reason",
			},
			[]string{"reason"},
		)
		leaseAcquisitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "zone_lease_acquisitions_total",
				Help: "Total zone run-lease acquisition attempts by outcome",
			},
			[]string{"outcome"},
		)
		frostEnqueues = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frost_enqueues_total",
				Help: "Total frost job enqueue attempts by result",
			},
			[]string{"result"},
		)

		alertEvaluations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_evaluations_total",
				Help: "Total alert rule evaluations by outcome",
			},
			[]string{"outcome"},
		)
		alertNotifications = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_notifications_sent_total",
				Help: "Total alert notification tokens delivered",
			},
		)
		alertTokensCleared = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_tokens_cleared_total",
				Help: "Total invalid delivery tokens cleared",
			},
		)
		alertDeliveryErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_delivery_errors_total",
				Help: "Total alert delivery failures",
			},
		)

		sweepMarkedOffline = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sweep_marked_offline_total",
				Help: "Total sensors marked offline by the staleness sweep",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			analyticsRowsInserted,
			analyticsDegraded,
			frostDecisions,
			leaseAcquisitions,
			frostEnqueues,
			alertEvaluations,
			alertNotifications,
			alertTokensCleared,
			alertDeliveryErrors,
			sweepMarkedOffline,
		)

		registerDBMetrics(db, logger)
	})
}

// ObserveIngest records one ingest request. processed/total drive the result
// label: success, partial or error.
func ObserveIngest(processed, total int, elapsed time.Duration) {
	if ingestRequests == nil {
		return
	}
	result := resultError
	switch {
	case processed == total && total > 0:
		result = resultSuccess
	case processed > 0:
		result = resultPartial
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

// IncIngestSensorError counts one per-sensor validation failure.
func IncIngestSensorError(reason string) {
	if ingestErrors == nil {
		return
	}
	ingestErrors.WithLabelValues(reason).Inc()
}

// AddAnalyticsRows counts rows written to the analytical store.
func AddAnalyticsRows(count int) {
	if analyticsRowsInserted == nil || count <= 0 {
		return
	}
	analyticsRowsInserted.Add(float64(count))
}

// IncAnalyticsDegraded counts a failed analytical bulk insert.
func IncAnalyticsDegraded() {
	if analyticsDegraded == nil {
		return
	}
	analyticsDegraded.Inc()
}

// IncFrostDecision counts one trigger decision by reason.
func IncFrostDecision(reason string) {
	if frostDecisions == nil {
		return
	}
	frostDecisions.WithLabelValues(reason).Inc()
}

// IncLeaseAcquisition counts a lease attempt outcome (acquired/denied/error).
func IncLeaseAcquisition(outcome string) {
	if leaseAcquisitions == nil {
		return
	}
	leaseAcquisitions.WithLabelValues(outcome).Inc()
}

// IncFrostEnqueue counts a frost job enqueue attempt.
func IncFrostEnqueue(result string) {
	if frostEnqueues == nil {
		return
	}
	frostEnqueues.WithLabelValues(result).Inc()
}

// IncAlertEvaluation counts one rule evaluation outcome.
func IncAlertEvaluation(outcome string) {
	if alertEvaluations == nil {
		return
	}
	alertEvaluations.WithLabelValues(outcome).Inc()
}

// AddAlertNotifications counts delivered notification tokens.
func AddAlertNotifications(count int) {
	if alertNotifications == nil || count <= 0 {
		return
	}
	alertNotifications.Add(float64(count))
}

// AddAlertTokensCleared counts cleared invalid tokens.
func AddAlertTokensCleared(count int) {
	if alertTokensCleared == nil || count <= 0 {
		return
	}
	alertTokensCleared.Add(float64(count))
}

// IncAlertDeliveryError counts a failed multicast send.
func IncAlertDeliveryError() {
	if alertDeliveryErrors == nil {
		return
	}
	alertDeliveryErrors.Inc()
}

// AddSweepMarkedOffline counts sensors flagged offline by the sweep.
func AddSweepMarkedOffline(count int) {
	if sweepMarkedOffline == nil || count <= 0 {
		return
	}
	sweepMarkedOffline.Add(float64(count))
}
