package sheetsync

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// SessionOptions 挂载选项
type SessionOptions struct {
	Clock    Clock
	Logger   logger.Logger
	Reporter Reporter
	Recent   *RecentStore
	NewID    func() string
}

// Session 一个表页面的生命周期：挂载时拉取快照并创建 Store，卸载时关闭
type Session struct {
	Store     *Store
	Syncer    *Syncer
	Forwarder *Forwarder

	cancel context.CancelFunc
	done   chan struct{}
}

// Mount 拉取初始快照并组装 Store、Syncer、Forwarder
func Mount(ctx context.Context, gw Gateway, sheetID string, cfg *Config, o SessionOptions) (*Session, error) {
	merged, err := mergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	fetchCtx, cancel := context.WithTimeout(ctx, merged.FetchTimeout)
	snap, err := gw.Fetch(fetchCtx, sheetID, "")
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, "mount sheet %s", sheetID)
	}

	store, err := NewStore(snap.Sheet, merged,
		WithClock(o.Clock), WithLogger(o.Logger), WithReporter(o.Reporter))
	if err != nil {
		return nil, err
	}

	fopts := []ForwarderOption{WithForwarderLogger(o.Logger), WithForwarderReporter(o.Reporter)}
	if o.NewID != nil {
		fopts = append(fopts, WithIDGenerator(o.NewID))
	}

	s := &Session{
		Store:     store,
		Syncer:    NewSyncer(store, gw, o.Logger),
		Forwarder: NewForwarder(store, gw, fopts...),
		done:      make(chan struct{}),
	}
	s.Syncer.remember(snap.ETag, store.Version())

	if o.Recent != nil {
		if err := o.Recent.Touch(snap.Sheet, o.Clock()); err != nil {
			o.Logger.Warn("update recent sheets failed", "sheet_id", sheetID, "error", err)
		}
	}
	return s, nil
}

// Start 在后台启动轮询
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		_ = s.Syncer.Run(ctx)
	}()
}

// Dispatch 见 Forwarder.Dispatch
func (s *Session) Dispatch(ctx context.Context, a sheet.Action, opts ...DispatchOption) *Future {
	return s.Forwarder.Dispatch(ctx, a, opts...)
}

// Close 卸载：停止轮询，等待在途提交，关闭 Store
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	err := s.Forwarder.Close()
	s.Store.Close()
	return err
}
