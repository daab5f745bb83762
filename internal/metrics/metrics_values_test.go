package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterValues(t *testing.T) {
	require.NoError(t, Register(prometheus.DefaultRegisterer))

	before := testutil.ToFloat64(spawns.WithLabelValues("job-v"))
	IncSpawn("job-v")
	IncSpawn("job-v")
	assert.Equal(t, before+2, testutil.ToFloat64(spawns.WithLabelValues("job-v")))

	beforeErr := testutil.ToFloat64(spawnErrors.WithLabelValues("job-v", "permission denied"))
	IncSpawnError("job-v", "permission denied")
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(spawnErrors.WithLabelValues("job-v", "permission denied")))
}

func TestGaugeTracksRunning(t *testing.T) {
	require.NoError(t, Register(prometheus.DefaultRegisterer))

	g := running.WithLabelValues("job-g")
	base := testutil.ToFloat64(g)

	IncRunning("job-g")
	IncRunning("job-g")
	DecRunning("job-g")

	assert.Equal(t, base+1, testutil.ToFloat64(g))
}
