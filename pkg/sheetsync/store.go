package sheetsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// Outcome 一次轮询对本地状态的影响
type Outcome int

const (
	// OutcomeUnchanged 快照与本地一致
	OutcomeUnchanged Outcome = iota
	// OutcomeApplied 快照已替换本地状态
	OutcomeApplied
	// OutcomeSuppressed 快照不同但处于抑制窗口内，本次跳过
	OutcomeSuppressed
	// OutcomeFailed 拉取失败或快照不合法
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeApplied:
		return "applied"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Reporter 错误上报，*sentry.Client 满足该接口
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) string
}

// Listener 状态变化回调
type Listener func(State)

// Store 一个表页面的状态持有者，挂载时创建，卸载时 Close
// 所有修改经 Dispatch 串行执行
type Store struct {
	mu      sync.RWMutex
	state   State
	version uint64
	closed  bool

	subs    map[uint64]Listener
	nextSub uint64

	cfg      *Config
	clock    Clock
	logger   logger.Logger
	reporter Reporter
}

// StoreOption Store 选项
type StoreOption func(*Store)

// WithClock 替换时间源
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger 设置 logger
func WithLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReporter 设置错误上报
func WithReporter(r Reporter) StoreOption {
	return func(s *Store) {
		s.reporter = r
	}
}

// NewStore 以首次拉取的快照创建 Store
func NewStore(initial sheet.Sheet, cfg *Config, opts ...StoreOption) (*Store, error) {
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		state:  State{Sheet: initial.Clone().Normalize()},
		subs:   make(map[uint64]Listener),
		cfg:    merged,
		clock:  time.Now,
		logger: logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("sheetsync.store").WithFields("sheet_id", initial.ID)
	return s, nil
}

// State 当前状态快照
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version 每次状态变化递增
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SheetID 当前表 id
func (s *Store) SheetID() string {
	return s.State().Sheet.ID
}

// Config 生效配置
func (s *Store) Config() *Config {
	return s.cfg
}

// Now 当前时间
func (s *Store) Now() time.Time {
	return s.clock()
}

// Dispatch 同步应用一个本地动作
// 动作不合法时返回错误且状态不变；应用后破坏不变量时严格模式 panic，否则记录并拒绝
func (s *Store) Dispatch(a sheet.Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	next, err := Reduce(s.state, a, s.clock(), s.cfg)
	if err == nil {
		err = s.checkLocked(next, a)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	listeners := s.commitLocked(next)
	s.mu.Unlock()

	notify(listeners, next)
	return nil
}

// Reconcile 比较服务端快照并在允许时替换本地状态，比较、窗口判断与替换原子完成
func (s *Store) Reconcile(snapshot sheet.Sheet) Outcome {
	outcome, _ := s.reconcile(snapshot)
	return outcome
}

// reconcile 同时返回合并后的版本号
func (s *Store) reconcile(snapshot sheet.Sheet) (Outcome, uint64) {
	s.mu.Lock()
	if s.closed {
		v := s.version
		s.mu.Unlock()
		return OutcomeUnchanged, v
	}

	if snapshot.ContentEqual(s.state.Sheet) {
		v := s.version
		s.mu.Unlock()
		return OutcomeUnchanged, v
	}
	if s.state.Suppressed(s.clock()) {
		v := s.version
		s.mu.Unlock()
		return OutcomeSuppressed, v
	}

	a := sheet.NewAction(sheet.SheetUpdate{Sheet: snapshot.Normalize()})
	next, err := Reduce(s.state, a, s.clock(), s.cfg)
	if err == nil {
		err = s.checkLocked(next, a)
	}
	if err != nil {
		v := s.version
		s.mu.Unlock()
		return OutcomeFailed, v
	}

	listeners := s.commitLocked(next)
	v := s.version
	s.mu.Unlock()

	notify(listeners, next)
	return OutcomeApplied, v
}

// UpdateUI 修改本地界面状态，不影响表内容与抑制窗口
func (s *Store) UpdateUI(fn func(*UIState)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	next := s.state
	fn(&next.UI)
	listeners := s.commitLocked(next)
	s.mu.Unlock()

	notify(listeners, next)
}

// Subscribe 注册状态变化回调，返回取消函数
// 回调在锁外执行
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close 卸载，之后的 Dispatch 返回 ErrStoreClosed
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[uint64]Listener)
}

func (s *Store) commitLocked(next State) []Listener {
	s.state = next
	s.version++

	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	return listeners
}

func (s *Store) checkLocked(next State, a sheet.Action) error {
	err := next.Sheet.CheckInvariants()
	if err == nil {
		return nil
	}
	if s.cfg.Strict {
		panic(err)
	}

	ctx := logger.WithActionID(logger.WithSheetID(context.Background(), next.Sheet.ID), a.ID)
	s.logger.ErrorContext(ctx, "invariant violated, action rejected",
		"action_type", a.Type,
		"error", err,
	)
	if s.reporter != nil {
		s.reporter.CaptureError(ctx, err, map[string]string{"action_type": string(a.Type)})
	}
	return errors.Mark(err, ErrInvariant)
}

func notify(listeners []Listener, st State) {
	for _, fn := range listeners {
		fn(st)
	}
}
