// Package metrics holds the Prometheus collectors of an OSCQuery server.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plml/oscquery-go/pkg/tree"
)

const namespace = "oscquery"

// Metrics groups every collector of the server.
type Metrics struct {
	controlMessages *prometheus.CounterVec
	controlPackets  *prometheus.CounterVec

	queryRequests *prometheus.CounterVec
	queryErrors   prometheus.Counter
	queryDuration prometheus.Histogram

	sessions             prometheus.Gauge
	notificationsSent    *prometheus.CounterVec
	notificationsDropped prometheus.Counter

	advertisements *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil registerer
// disables metrics and returns nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		controlMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "messages_total",
			Help:      "Control messages processed, by result.",
		}, []string{"result"}),

		controlPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "packets_total",
			Help:      "Control datagrams received, by decode status.",
		}, []string{"status"}),

		queryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Query requests served, by kind.",
		}, []string{"kind"}),

		queryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Query requests answered with a server error.",
		}),

		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "request_duration_seconds",
			Help:      "Query request duration in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "sessions",
			Help:      "Open subscription sessions.",
		}),

		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "notifications_sent_total",
			Help:      "Notifications queued to the active session, by command.",
		}, []string{"command"}),

		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped because no session was active or its queue was full.",
		}),

		advertisements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "advertisements_total",
			Help:      "Advertisement attempts, by service type and result.",
		}, []string{"service", "result"}),
	}

	for _, c := range []prometheus.Collector{
		m.controlMessages, m.controlPackets,
		m.queryRequests, m.queryErrors, m.queryDuration,
		m.sessions, m.notificationsSent, m.notificationsDropped,
		m.advertisements,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ResultLabel maps a tree error to a metric label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, tree.ErrNotFound):
		return "not_found"
	case errors.Is(err, tree.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, tree.ErrMalformed):
		return "malformed"
	case errors.Is(err, tree.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, tree.ErrOutOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}

// ControlMessage records one applied or rejected control message.
func (m *Metrics) ControlMessage(err error) {
	if m == nil {
		return
	}
	m.controlMessages.WithLabelValues(ResultLabel(err)).Inc()
}

// ControlPacket records a received datagram; decodeErr is the decode result.
func (m *Metrics) ControlPacket(decodeErr error) {
	if m == nil {
		return
	}
	status := "ok"
	if decodeErr != nil {
		status = "malformed"
	}
	m.controlPackets.WithLabelValues(status).Inc()
}

// QueryRequest records a served query.
func (m *Metrics) QueryRequest(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryRequests.WithLabelValues(kind).Inc()
	m.queryDuration.Observe(d.Seconds())
}

// QueryError records a 500 response.
func (m *Metrics) QueryError() {
	if m == nil {
		return
	}
	m.queryErrors.Inc()
}

// SessionOpened and SessionClosed track open subscription sessions.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// NotificationSent records a queued push.
func (m *Metrics) NotificationSent(command string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(command).Inc()
}

// NotificationDropped records a dropped push.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notificationsDropped.Inc()
}

// Advertisement records an advertisement attempt.
func (m *Metrics) Advertisement(service string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.advertisements.WithLabelValues(service, result).Inc()
}
