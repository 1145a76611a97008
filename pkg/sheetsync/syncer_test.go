package sheetsync

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// TestPollOnceOutcomes 拉取结果计数
func TestPollOnceOutcomes(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)
	gw := &fakeGateway{}
	gw.setSnapshot(fixture())
	sy := NewSyncer(st, gw, nil)
	ctx := context.Background()

	out, err := sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)

	remote := fixture()
	remote.Items = remote.Items[:1]
	gw.setSnapshot(remote)
	out, err = sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)
	assert.Len(t, st.State().Sheet.Items, 1)

	require.NoError(t, st.Dispatch(sheet.NewAction(sheet.ItemPatch{ID: "X", Name: strPtr("Local")})))
	out, err = sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, out)

	gw.mu.Lock()
	gw.fetchErr = errors.New("connection refused")
	gw.mu.Unlock()
	out, err = sy.PollOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, out)

	assert.Equal(t, SyncStats{Polls: 4, Applied: 1, Suppressed: 1, Unchanged: 1, Failed: 1}, sy.Stats())
}

// TestPollOnceSkipsMalformedSnapshot 不合法快照不影响本地状态
func TestPollOnceSkipsMalformedSnapshot(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)

	broken := fixture()
	broken.Characters = nil
	gw := &fakeGateway{}
	gw.setSnapshot(broken)

	out, err := NewSyncer(st, gw, nil).PollOnce(context.Background())
	assert.Equal(t, OutcomeFailed, out)
	assert.True(t, errors.Is(err, sheet.ErrMalformedSnapshot))
	assert.True(t, st.State().Sheet.ContentEqual(fixture()))
}

// TestSyncerETagReuse 本地未变化时复用 etag，本地写入后不复用
func TestSyncerETagReuse(t *testing.T) {
	srv, hs := newMemServer(t)
	srv.put(fixture())

	gw, err := NewClient(hs.URL, nil)
	require.NoError(t, err)

	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)
	sy := NewSyncer(st, gw, nil)
	ctx := context.Background()

	out, err := sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)

	out, err = sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
	assert.Equal(t, 1, srv.notModified())

	// 本地写入未送达服务端，窗口结束后必须被服务端快照覆盖
	require.NoError(t, st.Dispatch(sheet.NewAction(sheet.ItemRemove{ID: "X"})))
	clock.Advance(8 * time.Second)

	out, err = sy.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)
	assert.True(t, st.State().Sheet.ContentEqual(fixture()))
	assert.Equal(t, 1, srv.notModified())
}

// TestSyncerRunStopsOnCancel Run 在 ctx 取消后返回
func TestSyncerRunStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.RefetchInterval = 10 * time.Millisecond
	st, err := NewStore(fixture(), cfg, WithClock(clock.Now))
	require.NoError(t, err)

	gw := &fakeGateway{}
	gw.setSnapshot(fixture())
	sy := NewSyncer(st, gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sy.Run(ctx) }()

	assert.Eventually(t, func() bool { return sy.Stats().Polls >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
