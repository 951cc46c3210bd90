package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIngest_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewIngest(reg)
	require.NoError(t, err)

	m.RecordRequest("success", 0.05)
	m.RecordRequest("success", 0.07)
	m.RecordRequest("duplicate_skipped", 0.01)
	m.RecordNotification()

	assert.InDelta(t, 2, testutil.ToFloat64(m.requests.WithLabelValues("success")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("duplicate_skipped")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notifications), 0.001)
}

func TestNewIngest_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewIngest(reg)
	require.NoError(t, err)

	_, err = NewIngest(reg)
	assert.Error(t, err)
}

func TestIngest_NilReceiverIsSafe(t *testing.T) {
	var m *Ingest
	m.RecordRequest("success", 0.01)
	m.RecordNotification()
}
