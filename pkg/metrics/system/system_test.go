package system

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.Start(10 * time.Millisecond)
	c.Start(10 * time.Millisecond)
	defer c.Stop()

	stats := c.GetStats()
	assert.Positive(t, stats.Goroutines)
	assert.False(t, stats.UpdatedAt.IsZero())

	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg, "test"))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)

	c.Stop()
	c.Stop()
}
