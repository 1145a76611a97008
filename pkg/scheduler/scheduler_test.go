package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

func countingJob(name string, n *atomic.Int32) Job {
	return JobFunc{JobName: name, Fn: func(ctx context.Context) error {
		n.Add(1)
		return nil
	}}
}

// TestValidateSpec 测试表达式校验
func TestValidateSpec(t *testing.T) {
	for _, spec := range []string{"@every 10m", "*/5 * * * *", "0 */5 * * * *", "@hourly"} {
		assert.NoError(t, ValidateSpec(spec), spec)
	}
	for _, spec := range []string{"", "every 10m", "* * *", "61 * * * *"} {
		assert.True(t, errors.Is(ValidateSpec(spec), ErrInvalidSpec), spec)
	}
}

// TestRegister 测试注册与重复注册
func TestRegister(t *testing.T) {
	s := New(logger.NewNoop())
	var n atomic.Int32

	require.NoError(t, s.Register("@every 10m", countingJob("purge", &n)))
	assert.ErrorIs(t, s.Register("@every 10m", countingJob("purge", &n)), ErrJobExists)
	assert.True(t, errors.Is(s.Register("nope", countingJob("other", &n)), ErrInvalidSpec))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "purge", entries[0].Name)
	assert.Equal(t, "@every 10m", entries[0].Spec)
}

// TestRunNow 测试手动触发
func TestRunNow(t *testing.T) {
	s := New(logger.NewNoop(), WithJobTimeout(time.Second))
	boom := errors.New("boom")

	require.NoError(t, s.Register("@hourly", JobFunc{JobName: "fail", Fn: func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return boom
	}}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "fail"), boom)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

// TestReschedule 测试修改执行计划
func TestReschedule(t *testing.T) {
	s := New(logger.NewNoop())
	var n atomic.Int32
	require.NoError(t, s.Register("@every 10m", countingJob("purge", &n)))

	require.NoError(t, s.Reschedule("purge", "@every 10m"))
	require.NoError(t, s.Reschedule("purge", "@every 1h"))
	assert.Equal(t, "@every 1h", s.Entries()[0].Spec)

	assert.True(t, errors.Is(s.Reschedule("purge", "bad"), ErrInvalidSpec))
	assert.Equal(t, "@every 1h", s.Entries()[0].Spec)
	assert.ErrorIs(t, s.Reschedule("missing", "@hourly"), ErrJobNotFound)
}

// TestSchedulerFires 测试定时触发与停止
func TestSchedulerFires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	s := New(logger.NewNoop())
	var n atomic.Int32
	require.NoError(t, s.Register("@every 1s", countingJob("tick", &n)))
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop())
}
