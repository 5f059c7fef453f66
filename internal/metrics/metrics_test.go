package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ItemsLive.Inc()
	m.Notifications.WithLabelValues("data").Add(3)
	m.Overflows.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "uamonitor_monitored_items")
	assert.Contains(t, names, "uamonitor_notifications_enqueued_total")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Notifications.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overflows))
}

func TestNewWithoutRegistry(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.SamplingErrors.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SamplingErrors))
}
