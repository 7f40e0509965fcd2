package promexport

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godaddy/asherah/go/cyphercell"
)

func TestCollector_Register(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("")))

	// a second collector with the same names must be rejected
	assert.Error(t, reg.Register(NewCollector("")))
	assert.NoError(t, reg.Register(NewCollector("other")))
}

func TestCollector_Count(t *testing.T) {
	assert.Equal(t, 7, testutil.CollectAndCount(NewCollector("test")))
}

func TestCollector_Collect(t *testing.T) {
	cyphercell.AllocCounter.Clear()
	cyphercell.InUseCounter.Clear()
	cyphercell.ExpiredCounter.Clear()

	open := cyphercell.New([]byte("kept"))
	defer open.Close()

	expired := cyphercell.New([]byte("expired"), cyphercell.WithTTL(0))
	_, err := expired.Reveal()
	require.ErrorIs(t, err, cyphercell.ErrTTLExpired)
	require.NoError(t, expired.Close())

	expected := `
# HELP test_cells_allocated_total Total number of cells created.
# TYPE test_cells_allocated_total counter
test_cells_allocated_total 2
# HELP test_cells_in_use Number of cells currently holding memory.
# TYPE test_cells_in_use gauge
test_cells_in_use 1
# HELP test_ttl_expired_total Total number of reads rejected because the cell TTL had elapsed.
# TYPE test_ttl_expired_total counter
test_ttl_expired_total 1
`

	err = testutil.CollectAndCompare(NewCollector("test"), strings.NewReader(expected),
		"test_cells_allocated_total", "test_cells_in_use", "test_ttl_expired_total")
	assert.NoError(t, err)
}

func TestCollector_AllocDuration(t *testing.T) {
	c := cyphercell.New([]byte("timed"))
	require.NoError(t, c.Close())

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("test")))

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "test_alloc_duration_seconds" {
			continue
		}

		require.Len(t, mf.GetMetric(), 1)

		summary := mf.GetMetric()[0].GetSummary()
		assert.GreaterOrEqual(t, summary.GetSampleCount(), uint64(1))
		assert.Len(t, summary.GetQuantile(), 3)

		return
	}

	assert.Fail(t, "alloc duration summary not gathered")
}
