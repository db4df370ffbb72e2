package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ms-discovery/internal/classifier"
)

var (
	eventsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_events_classified_total",
			Help: "Events classified for API responses, by status",
		},
		[]string{"status"},
	)

	staleStatuses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cached_status_stale_total",
			Help: "Served events whose recorded status differs from the computed one",
		},
		[]string{"cached", "computed"},
	)

	cdcMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cdc_messages_total",
			Help: "Event change messages consumed from Kafka",
		},
		[]string{"op", "result"},
	)

	workerJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_worker_jobs_total",
			Help: "SQS jobs handled by background workers",
		},
		[]string{"worker", "result"},
	)

	trendingSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "discovery_trending_events",
			Help: "Number of events in the last computed trending set",
		},
	)
)

// ObserveStatus counts one classification.
func ObserveStatus(s classifier.Status) {
	eventsClassified.WithLabelValues(string(s)).Inc()
}

// ObserveCachedStatus counts a served event whose recorded status lags the
// computed one. Events without a recorded status are ignored.
func ObserveCachedStatus(cached, computed classifier.Status) {
	if cached == "" || cached == computed {
		return
	}
	staleStatuses.WithLabelValues(string(cached), string(computed)).Inc()
}

// ObserveCDC counts one consumed change message.
func ObserveCDC(op string, err error) {
	cdcMessages.WithLabelValues(op, result(err)).Inc()
}

// ObserveJob counts one worker job.
func ObserveJob(worker string, err error) {
	workerJobs.WithLabelValues(worker, result(err)).Inc()
}

// SetTrendingSize records the size of the trending set.
func SetTrendingSize(n int) {
	trendingSize.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
