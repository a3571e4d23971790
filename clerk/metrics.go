package clerk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alexlup06-authgate/clerk-go/backend"
)

// metrics holds the Prometheus collectors of an SDK. A nil *metrics records
// nothing.
type metrics struct {
	requestStates *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requestStates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clerk",
			Subsystem: "auth",
			Name:      "request_states_total",
			Help:      "Requests by resolved authentication status and reason",
		}, []string{"status", "reason"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clerk",
			Subsystem: "auth",
			Name:      "authenticate_duration_seconds",
			Help:      "Time spent resolving the request state",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clerk",
			Subsystem: "auth",
			Name:      "errors_total",
			Help:      "Requests rejected before authentication, by error kind",
		}, []string{"kind"}),
	}
}

func (m *metrics) observe(state backend.RequestState, d time.Duration) {
	if m == nil {
		return
	}
	m.requestStates.WithLabelValues(string(state.Status), string(state.Reason)).Inc()
	m.duration.WithLabelValues(string(state.Status)).Observe(d.Seconds())
}

func (m *metrics) observeError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}
