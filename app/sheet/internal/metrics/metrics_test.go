package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetMetrics(t *testing.T) {
	m, err := New(&Config{Namespace: "test"})
	require.NoError(t, err)
	defer m.Stop()

	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.RecordAction("item_add", ResultApplied, 0.01)
	m.RecordAction("item_add", ResultDuplicate, 0.001)
	m.RecordAction("item_update", ResultRejected, 0.002)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordPurge("empty", 3)
	m.RecordPurge("stale", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionTotal.WithLabelValues("item_add", ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionTotal.WithLabelValues("item_update", ResultRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheTotal.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PurgedTotal.WithLabelValues("empty")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PurgedTotal))

	stats := m.GetStats()
	assert.Greater(t, stats.ActionsPerSecond, 0.0)
	assert.InDelta(t, 66.66, stats.SuccessRate, 0.1)

	// 重复注册失败
	assert.Error(t, m.Register(reg))
}
