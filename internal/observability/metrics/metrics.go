package metrics

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fleet_"

	ResultSuccess = "success"
	ResultError   = "error"

	ConsumerOutcomePersisted = "persisted"
	ConsumerOutcomeDropped   = "dropped"
	ConsumerOutcomeRequeued  = "requeued"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	consumerEvents *prometheus.CounterVec

	presenceWrites prometheus.Counter

	historyRows prometheus.Gauge
)

// Init registers metrics and, when a db is provided, starts a gauge
// poller for the history row count.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total telemetry ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total telemetry ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Telemetry ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		consumerEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "consumer_events_total",
				Help: "Total consumed telemetry events by outcome",
			},
			[]string{"outcome"},
		)

		presenceWrites = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "presence_writes_total",
				Help: "Total presence cache overwrites",
			},
		)

		historyRows = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "history_rows",
				Help: "Current telemetry history row count",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			consumerEvents,
			presenceWrites,
			historyRows,
		)

		if db != nil {
			go pollHistoryRows(db, logger)
		}
	})
}

func pollHistoryRows(db *sql.DB, logger *log.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var count int64
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry_history`).Scan(&count)
		cancel()
		if err != nil {
			if logger != nil {
				logger.Printf("metrics: history row poll error: %v", err)
			}
			continue
		}
		historyRows.Set(float64(count))
	}
}

// IngestObserve records one ingest request with its latency.
func IngestObserve(result string, seconds float64) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(seconds)
}

// IngestErrorInc counts an ingest error by reason.
func IngestErrorInc(reason string) {
	if ingestErrors == nil {
		return
	}
	ingestErrors.WithLabelValues(reason).Inc()
}

// ConsumerEventInc counts a consumed event by outcome.
func ConsumerEventInc(outcome string) {
	if consumerEvents == nil {
		return
	}
	consumerEvents.WithLabelValues(outcome).Inc()
}

// PresenceWriteInc counts a presence overwrite.
func PresenceWriteInc() {
	if presenceWrites == nil {
		return
	}
	presenceWrites.Inc()
}
