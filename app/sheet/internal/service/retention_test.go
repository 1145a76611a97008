package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
)

type fakePurger struct {
	emptyBefore, staleBefore time.Time
	empty, stale             []string
	err                      error
}

func (p *fakePurger) PurgeEmpty(_ context.Context, before time.Time) ([]string, error) {
	p.emptyBefore = before
	return p.empty, p.err
}

func (p *fakePurger) PurgeStale(_ context.Context, before time.Time) ([]string, error) {
	p.staleBefore = before
	return p.stale, nil
}

func newRetention(t *testing.T, cfg *RetentionConfig, p *fakePurger, c *memCache) *RetentionService {
	t.Helper()
	r, err := NewRetentionService(cfg, p, c, newTestMetrics(t), logger.NewNoop())
	require.NoError(t, err)
	r.now = func() time.Time { return testNow }
	return r
}

func TestRetentionRun(t *testing.T) {
	p := &fakePurger{empty: []string{"a", "b"}, stale: []string{"c"}}
	c := newMemCache()
	r := newRetention(t, nil, p, c)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, testNow.Add(-24*time.Hour), p.emptyBefore)
	assert.Equal(t, testNow.Add(-90*24*time.Hour), p.staleBefore)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, c.evicted)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.metrics.PurgedTotal.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.PurgedTotal.WithLabelValues("stale")))
}

func TestRetentionDisabledRule(t *testing.T) {
	p := &fakePurger{}
	r := newRetention(t, &RetentionConfig{EmptySheetTTL: time.Hour, StaleSheetTTL: -1}, p, newMemCache())

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, testNow.Add(-time.Hour), p.emptyBefore)
	assert.True(t, p.staleBefore.IsZero())
}

func TestRetentionErrorStillRunsStale(t *testing.T) {
	boom := errors.New("boom")
	p := &fakePurger{err: boom, stale: []string{"x"}}
	r := newRetention(t, nil, p, newMemCache())

	err := r.Run(context.Background())
	assert.True(t, errors.Is(err, boom))
	assert.False(t, p.staleBefore.IsZero())
}

func TestRetentionUpdate(t *testing.T) {
	r := newRetention(t, nil, &fakePurger{}, newMemCache())
	assert.Equal(t, "@every 10m", r.Config().Spec)

	require.NoError(t, r.Update(&RetentionConfig{Spec: "@hourly", EmptySheetTTL: 2 * time.Hour}))
	assert.Equal(t, "@hourly", r.Config().Spec)
	assert.Equal(t, 2*time.Hour, r.Config().EmptySheetTTL)

	err := r.Update(&RetentionConfig{Spec: "every tuesday"})
	assert.True(t, errors.Is(err, scheduler.ErrInvalidSpec))
	assert.Equal(t, "@hourly", r.Config().Spec)
}

func TestRetentionScheduled(t *testing.T) {
	p := &fakePurger{empty: []string{"a"}}
	r := newRetention(t, nil, p, newMemCache())

	s := scheduler.New(logger.NewNoop())
	require.NoError(t, s.Register(r.Config().Spec, r))
	require.NoError(t, s.RunNow(context.Background(), RetentionJobName))
	assert.False(t, p.emptyBefore.IsZero())
}
