package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ListingsReceived.Inc()
	m.FramesDiscarded.WithLabelValues("decode").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingsReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesDiscarded.WithLabelValues("decode")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestSetListenerState(t *testing.T) {
	all := []string{"DISCONNECTED", "CONNECTING", "SUBSCRIBED"}

	SetListenerState("CONNECTING", all)

	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.ListenerState.WithLabelValues("DISCONNECTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.ListenerState.WithLabelValues("CONNECTING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.ListenerState.WithLabelValues("SUBSCRIBED")))
}

func TestMonotonicMirror(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("mirror", reg)
	var mirror monotonicMirror

	mirror.update(3, m.StoreEvictions)
	mirror.update(3, m.StoreEvictions)
	mirror.update(5, m.StoreEvictions)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.StoreEvictions))
}
