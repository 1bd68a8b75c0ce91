package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Observe("osrm", 200, 120*time.Millisecond)
	c.Observe("osrm", 200, 80*time.Millisecond)
	c.Observe("osrm", 429, 10*time.Millisecond)
	c.Observe("google", 0, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("osrm", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("osrm", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("google", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "routingpy_request_duration_seconds" {
			continue
		}
		var samples uint64
		for _, m := range fam.GetMetric() {
			samples += m.GetHistogram().GetSampleCount()
		}
		assert.Equal(t, uint64(4), samples)
	}
}

func TestObserveNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Observe("osrm", 200, time.Millisecond)
	})
}
