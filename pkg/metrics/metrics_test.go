package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plml/oscquery-go/pkg/tree"
)

func TestNilRegistryDisables(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Every recorder is a no-op on nil.
	m.ControlMessage(nil)
	m.ControlPacket(errors.New("x"))
	m.QueryRequest("tree", time.Millisecond)
	m.QueryError()
	m.SessionOpened()
	m.SessionClosed()
	m.NotificationSent("VALUE")
	m.NotificationDropped()
	m.Advertisement("_osc._udp", nil)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ControlMessage(nil)
	m.ControlMessage(fmt.Errorf("/x: %w", tree.ErrOutOfRange))
	m.ControlMessage(fmt.Errorf("/x: %w", tree.ErrOutOfRange))
	m.NotificationDropped()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.controlMessages.WithLabelValues("applied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.controlMessages.WithLabelValues("out_of_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))

	expected := `
# HELP oscquery_subscription_notifications_dropped_total Notifications dropped because no session was active or its queue was full.
# TYPE oscquery_subscription_notifications_dropped_total counter
oscquery_subscription_notifications_dropped_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "oscquery_subscription_notifications_dropped_total"))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestResultLabel(t *testing.T) {
	tests := map[error]string{
		nil:                  "applied",
		tree.ErrNotFound:     "not_found",
		tree.ErrAccessDenied: "access_denied",
		tree.ErrMalformed:    "malformed",
		tree.ErrTypeMismatch: "type_mismatch",
		tree.ErrOutOfRange:   "out_of_range",
		errors.New("boom"):   "error",
	}
	for err, want := range tests {
		assert.Equal(t, want, ResultLabel(err))
	}
}
