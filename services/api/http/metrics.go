package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

// Metrics counts what synthesis calls produced.
type Metrics struct {
	messages *prometheus.CounterVec
	objects  *prometheus.CounterVec
	requests *prometheus.HistogramVec
}

// NewMetrics registers the synthesis collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synthesis_messages_total",
			Help: "Messages attached to synthesis responses by severity and datasource",
		}, []string{"severity", "datasource"}),
		objects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "synthesis_objects_total",
			Help: "Objects returned by synthesis calls by entity type",
		}, []string{"entity"}),
		requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synthesis_request_duration_seconds",
			Help:    "Synthesis call duration including stream drain",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"entity", "operation"}),
	}
}

func (m *Metrics) observe(entity synthesis.EntityType, operation string, seconds float64, objects int, messages []synthesis.Message) {
	m.requests.WithLabelValues(string(entity), operation).Observe(seconds)
	m.objects.WithLabelValues(string(entity)).Add(float64(objects))
	for _, msg := range messages {
		datasource := ""
		if len(msg.Where) == 2 {
			datasource = msg.Where[0]
		}
		m.messages.WithLabelValues(string(msg.Level), datasource).Inc()
	}
}
