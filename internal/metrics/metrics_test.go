package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshake_RegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New()
	h.Register(reg)

	h.FramesDecoded.Inc()
	h.HandshakesCompleted.Inc()
	h.HandshakesFailed.WithLabelValues("malformed").Inc()
	h.ActiveConnections.Set(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.FramesDecoded))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.HandshakesCompleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.HandshakesFailed.WithLabelValues("malformed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(h.ActiveConnections))
}

func TestHandshake_RegisterTwiceOnSameRegistryFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New()
	h.Register(reg)

	h2 := New()
	err := reg.Register(h2.FramesDecoded)
	require.Error(t, err, "a second counter under the same name must collide")
}
