package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

func TestWorkflowRunsStepsInOrder(t *testing.T) {
	w := NewWorkflow("order", logger.NewNoop())
	w.AddStep("first", func(_ context.Context, d *Data) error {
		d.Append("trace", "first")
		d.Set("sheet_id", "s-1")
		return nil
	}).AddStep("second", func(_ context.Context, d *Data) error {
		id, ok := d.GetString("sheet_id")
		if !ok {
			return errors.New("missing sheet id")
		}
		d.Append("trace", "second:"+id)
		return nil
	})

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, StatusSuccess, w.GetStatus())
	assert.Equal(t, []string{"first", "second:s-1"}, w.GetData().GetStrings("trace"))
	assert.Equal(t, 2, w.GetCurrentStep())

	for _, r := range w.Report() {
		assert.Equal(t, StatusSuccess, r.Status)
		assert.NoError(t, r.Err)
	}
}

func TestWorkflowRetries(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
		wantCalls  int
	}{
		{name: "succeeds after retry", failures: 2, maxRetries: 3, wantCalls: 3},
		{name: "retries exhausted", failures: 5, maxRetries: 2, wantErr: true, wantCalls: 3},
		{name: "no retries", failures: 1, maxRetries: 0, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			w := NewWorkflow(tt.name, logger.NewNoop())
			w.AddStepWithOptions("flaky", func(context.Context, *Data) error {
				calls++
				if calls <= tt.failures {
					return errors.New("boom")
				}
				return nil
			}, tt.maxRetries, time.Millisecond, time.Second)

			err := w.Run(context.Background())
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, StatusFailure, w.GetStatus())
				assert.Equal(t, StatusFailure, w.Report()[0].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.failures, w.Report()[0].Retries)
		})
	}
}

func TestWorkflowStepTimeout(t *testing.T) {
	w := NewWorkflow("timeout", logger.NewNoop())
	w.AddStepWithOptions("slow", func(ctx context.Context, _ *Data) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}, 0, 0, 10*time.Millisecond)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepTimeout))
}

func TestWorkflowStepPanic(t *testing.T) {
	w := NewWorkflow("panic", logger.NewNoop())
	w.AddStepWithOptions("explode", func(context.Context, *Data) error {
		panic("kaboom")
	}, 0, 0, time.Second)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepPanicked))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWorkflowCancelledDuringRetryWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorkflow("cancel", logger.NewNoop())
	w.AddStepWithOptions("fails", func(context.Context, *Data) error {
		cancel()
		return errors.New("boom")
	}, 5, time.Hour, time.Second)

	err := w.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusFailure, w.GetStatus())
	assert.Equal(t, 0, w.Report()[0].Retries)
}

func TestWorkflowReset(t *testing.T) {
	w := NewWorkflow("reset", logger.NewNoop())
	w.AddStep("set", func(_ context.Context, d *Data) error {
		d.Set("k", 1)
		return nil
	})
	require.NoError(t, w.Run(context.Background()))

	w.Reset()
	assert.Equal(t, StatusPending, w.GetStatus())
	assert.Equal(t, 0, w.GetCurrentStep())
	_, ok := w.GetData().Get("k")
	assert.False(t, ok)
	assert.Equal(t, StatusPending, w.Report()[0].Status)
}

func TestValueTypeMismatch(t *testing.T) {
	d := NewData()
	d.Set("n", 3)

	n, ok := Value[int](d, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = Value[string](d, "n")
	assert.False(t, ok)
}
