package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/notify"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (n *recordingNotifier) Send(_ context.Context, a *notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, *a)
	return n.err
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) sent() []notify.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Alert(nil), n.alerts...)
}

type countingReporter struct {
	mu    sync.Mutex
	count int
}

func (c *countingReporter) CaptureError(context.Context, error, map[string]string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return "evt-1"
}

func newTestReporter(t *testing.T) (*Reporter, *recordingNotifier, *countingReporter) {
	t.Helper()
	n := &recordingNotifier{}
	next := &countingReporter{}
	r := New(&Config{Cooldown: time.Minute, Service: "sheet-test"}, next, n, logger.NewNoop())
	t.Cleanup(func() { _ = r.Close() })
	return r, n, next
}

func TestCaptureErrorInvariant(t *testing.T) {
	r, n, next := newTestReporter(t)

	err := errors.Mark(errors.New("item carried by removed character"), service.ErrInvariant)
	id := r.CaptureError(context.Background(), err, map[string]string{"action_type": "character_remove"})
	r.wg.Wait()

	assert.Equal(t, "evt-1", id)
	assert.Equal(t, 1, next.count)

	sent := n.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.AlertLevelCritical, sent[0].Level)
	assert.Equal(t, "sheet-test", sent[0].Service)
	assert.Equal(t, "evt-1", sent[0].Labels["sentry_event"])
	assert.Equal(t, "character_remove", sent[0].Labels["action_type"])
	assert.False(t, sent[0].StartsAt.IsZero())
}

func TestCaptureErrorOtherErrors(t *testing.T) {
	r, n, next := newTestReporter(t)

	r.CaptureError(context.Background(), errors.New("connection reset"), nil)
	r.CaptureError(context.Background(), nil, nil)
	r.wg.Wait()

	assert.Equal(t, 2, next.count)
	assert.Empty(t, n.sent())
}

func TestNotifyCooldown(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	n := &recordingNotifier{}
	r := New(&Config{Cooldown: time.Minute}, nil, n, logger.NewNoop(),
		WithClock(func() time.Time { return time.Unix(0, clock.Load()) }),
	)
	t.Cleanup(func() { _ = r.Close() })

	tests := []struct {
		name        string
		advance     time.Duration
		fingerprint string
		want        bool
	}{
		{name: "first", fingerprint: "a", want: true},
		{name: "repeat within cooldown", advance: 30 * time.Second, fingerprint: "a", want: false},
		{name: "other fingerprint", fingerprint: "b", want: true},
		{name: "after cooldown", advance: 31 * time.Second, fingerprint: "a", want: true},
		{name: "no fingerprint", want: true},
		{name: "no fingerprint again", want: true},
	}
	for _, tt := range tests {
		clock.Add(int64(tt.advance))
		got := r.Notify(&notify.Alert{Summary: tt.name, Fingerprint: tt.fingerprint})
		assert.Equal(t, tt.want, got, tt.name)
	}

	r.wg.Wait()
	assert.Len(t, n.sent(), 5)
}

func TestWatchJob(t *testing.T) {
	r, n, _ := newTestReporter(t)

	failing := r.Watch(scheduler.JobFunc{
		JobName: service.RetentionJobName,
		Fn:      func(context.Context) error { return errors.New("purge failed") },
	})
	ok := r.Watch(scheduler.JobFunc{
		JobName: "noop",
		Fn:      func(context.Context) error { return nil },
	})
	canceled := r.Watch(scheduler.JobFunc{
		JobName: "canceled",
		Fn:      func(context.Context) error { return context.Canceled },
	})

	assert.Equal(t, service.RetentionJobName, failing.Name())
	assert.Error(t, failing.Run(context.Background()))
	assert.NoError(t, ok.Run(context.Background()))
	assert.Error(t, canceled.Run(context.Background()))
	r.wg.Wait()

	sent := n.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.AlertLevelWarning, sent[0].Level)
	assert.Equal(t, service.RetentionJobName, sent[0].Labels["job"])
}

func TestSendFailureIsLogged(t *testing.T) {
	r, n, _ := newTestReporter(t)
	n.err = errors.New("webhook down")

	assert.True(t, r.Notify(&notify.Alert{Summary: "x"}))
	r.wg.Wait()
	assert.Len(t, n.sent(), 1)
}

func TestNotifyAfterClose(t *testing.T) {
	n := &recordingNotifier{}
	r := New(nil, nil, n, logger.NewNoop())
	require.NoError(t, r.Close())

	assert.False(t, r.Notify(&notify.Alert{Summary: "late"}))
	assert.Empty(t, n.sent())
}

func TestNewNotifier(t *testing.T) {
	n, err := NewNotifier(&Config{})
	require.NoError(t, err)
	assert.Equal(t, "noop", n.Name())

	cfg := &Config{}
	cfg.Feishu.WebhookURL = "https://open.feishu.cn/open-apis/bot/v2/hook/abc"
	n, err = NewNotifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, "feishu", n.Name())

	cfg.Feishu.WebhookURL = "ftp://nope"
	_, err = NewNotifier(cfg)
	assert.True(t, errors.Is(err, notify.ErrInvalidConfig))
}
