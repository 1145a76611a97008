package sheetsync

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// TestNoOpPollIsIdempotent 结构相等的快照不触发替换
func TestNoOpPollIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)

	notified := 0
	st.Subscribe(func(State) { notified++ })

	same := fixture()
	same.Items[0].Weight = d("10.000")

	before := st.State()
	assert.Equal(t, OutcomeUnchanged, st.Reconcile(same))
	assert.Equal(t, before, st.State())
	assert.Equal(t, uint64(0), st.Version())
	assert.Zero(t, notified)
}

// TestSuppressionCorrectness 写入后窗口内的旧快照被跳过，窗口结束后覆盖
func TestSuppressionCorrectness(t *testing.T) {
	payloads := map[string]sheet.Payload{
		"item_update":          sheet.ItemPatch{ID: "X", Name: strPtr("Lasso")},
		"item_remove":          sheet.ItemRemove{ID: "Y"},
		"sheet_metadataUpdate": sheet.MetadataUpdate{Name: strPtr("Renamed")},
	}

	for name, p := range payloads {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			st := newTestStore(t, fixture(), clock)
			pre := fixture()

			require.NoError(t, st.Dispatch(sheet.NewAction(p)))
			local := st.State().Sheet

			assert.Equal(t, OutcomeSuppressed, st.Reconcile(pre))
			assert.True(t, st.State().Sheet.ContentEqual(local))

			clock.Advance(7 * time.Second)
			assert.Equal(t, OutcomeSuppressed, st.Reconcile(pre))
			assert.True(t, st.State().Sheet.ContentEqual(local))

			clock.Advance(time.Millisecond)
			assert.Equal(t, OutcomeApplied, st.Reconcile(pre))
			assert.True(t, st.State().Sheet.ContentEqual(pre))
		})
	}
}

// TestAddDoesNotSuppress 新增后立即轮询到不同快照会被应用
func TestAddDoesNotSuppress(t *testing.T) {
	for _, p := range []sheet.Payload{
		sheet.ItemAdd{Item: sheet.Item{ID: "N", Name: "Gem", Quantity: 1}},
		sheet.CharacterAdd{Character: sheet.Character{ID: "C", Name: "Cato"}},
	} {
		clock := newFakeClock()
		st := newTestStore(t, fixture(), clock)
		require.NoError(t, st.Dispatch(sheet.NewAction(p)))

		other := fixture()
		other.Name = "Changed elsewhere"
		assert.Equal(t, OutcomeApplied, st.Reconcile(other), "%T", p)
		assert.Equal(t, "Changed elsewhere", st.State().Sheet.Name)
	}
}

// TestStalePollSuppressed 窗口内旧名字不会覆盖本地新名字
func TestStalePollSuppressed(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)

	require.NoError(t, st.Dispatch(sheet.NewAction(sheet.ItemPatch{ID: "X", Name: strPtr("New")})))

	clock.Advance(3 * time.Second)
	assert.Equal(t, OutcomeSuppressed, st.Reconcile(fixture()))

	x, ok := st.State().Sheet.FindItem("X")
	require.True(t, ok)
	assert.Equal(t, "New", x.Name)
}

// TestStoreKeepsUIOnReplace 快照替换保留界面状态
func TestStoreKeepsUIOnReplace(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)
	st.UpdateUI(func(ui *UIState) { ui.SelectedItemID = "X" })

	server := fixture()
	server.Name = "Server"
	require.Equal(t, OutcomeApplied, st.Reconcile(server))
	assert.Equal(t, "X", st.State().UI.SelectedItemID)
}

// TestStoreInvariantViolation 非严格模式拒绝并上报，严格模式 panic
func TestStoreInvariantViolation(t *testing.T) {
	broken := fixture()
	broken.Characters = broken.Characters[1:]
	bad := sheet.NewAction(sheet.SheetUpdate{Sheet: broken})

	reporter := &captured{}
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock, WithReporter(reporter))

	err := st.Dispatch(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.True(t, errors.HasAssertionFailure(err))
	assert.Equal(t, 1, reporter.count())
	assert.True(t, st.State().Sheet.ContentEqual(fixture()))

	assert.Equal(t, OutcomeFailed, st.Reconcile(broken))

	cfg := testConfig()
	cfg.Strict = true
	strict, err := NewStore(fixture(), cfg, WithClock(clock.Now))
	require.NoError(t, err)
	assert.Panics(t, func() { _ = strict.Dispatch(bad) })
}

// TestStoreSubscribeAndClose 订阅、取消与卸载
func TestStoreSubscribeAndClose(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, fixture(), clock)

	var got []string
	cancel := st.Subscribe(func(s State) { got = append(got, s.Sheet.Name) })

	require.NoError(t, st.Dispatch(sheet.NewAction(sheet.MetadataUpdate{Name: strPtr("One")})))
	cancel()
	require.NoError(t, st.Dispatch(sheet.NewAction(sheet.MetadataUpdate{Name: strPtr("Two")})))

	assert.Equal(t, []string{"One"}, got)
	assert.Equal(t, uint64(2), st.Version())

	st.Close()
	assert.ErrorIs(t, st.Dispatch(sheet.NewAction(sheet.ItemRemove{ID: "X"})), ErrStoreClosed)
}

// TestOutcomeString 日志输出
func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "suppressed", OutcomeSuppressed.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
