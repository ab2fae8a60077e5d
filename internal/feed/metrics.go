package feed

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the feed server's poll and broadcast paths.
type Metrics struct {
	MessagesPulled prometheus.Counter
	RecordsFed     prometheus.Counter
	DecodeErrors   prometheus.Counter
	PullFailures   prometheus.Counter
	WSClients      prometheus.Gauge
}

// NewMetrics registers the feed collectors with reg (the default registerer
// when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		MessagesPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swift_messages_pulled_total",
			Help: "New SBD messages retrieved from the SWIFT server.",
		}),
		RecordsFed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swift_records_broadcast_total",
			Help: "Decoded records broadcast to websocket clients.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swift_decode_errors_total",
			Help: "Messages that produced error records instead of data.",
		}),
		PullFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swift_pull_failures_total",
			Help: "Poll cycles that failed to reach the SWIFT server.",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swift_ws_clients",
			Help: "Currently connected websocket clients.",
		}),
	}
	reg.MustRegister(m.MessagesPulled, m.RecordsFed, m.DecodeErrors, m.PullFailures, m.WSClients)
	return m
}
