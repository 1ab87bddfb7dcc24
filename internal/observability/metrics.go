package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zmux_analytics"

var (
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Detection events read from the stream, by outcome",
	}, []string{"result"})

	ActionFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_fired_total",
		Help:      "Actions fired in response to detection events",
	}, []string{"action"})

	ActionSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "action_skipped_total",
		Help:      "Actions suppressed by their debounce window or missing input",
	}, []string{"action"})

	RemoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_failures_total",
		Help:      "Failed calls to the recorder or PTZ services",
	}, []string{"action"})

	ConfigApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_applied_total",
		Help:      "Configurations applied by the dispatch loop",
	})

	ConfigPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "config_pending",
		Help:      "Configurations accepted but not yet applied",
	})

	PTZResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ptz_resets_total",
		Help:      "Home-position commands issued after an idle period",
	})

	StreamErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_errors_total",
		Help:      "Failed reads from the event stream",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Event outcome labels.
const (
	ResultProcessed = "processed"
	ResultMalformed = "malformed"
)
