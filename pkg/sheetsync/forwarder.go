package sheetsync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

type dispatchOptions struct {
	onThen    func()
	onCatch   func(error)
	onFinally func()
}

// DispatchOption 转发完成回调
type DispatchOption func(*dispatchOptions)

// OnThen 服务端接受后调用
func OnThen(fn func()) DispatchOption {
	return func(o *dispatchOptions) { o.onThen = fn }
}

// OnCatch 服务端拒绝或网络失败时调用
func OnCatch(fn func(error)) DispatchOption {
	return func(o *dispatchOptions) { o.onCatch = fn }
}

// OnFinally 无论结果都会调用，在 OnThen/OnCatch 之后
func OnFinally(fn func()) DispatchOption {
	return func(o *dispatchOptions) { o.onFinally = fn }
}

func (o *dispatchOptions) complete(err error) {
	if err == nil {
		if o.onThen != nil {
			o.onThen()
		}
	} else if o.onCatch != nil {
		o.onCatch(err)
	}
	if o.onFinally != nil {
		o.onFinally()
	}
}

// ForwarderOption Forwarder 选项
type ForwarderOption func(*Forwarder)

// WithIDGenerator 替换 actionId 与新增实体 id 的生成方式
func WithIDGenerator(gen func() string) ForwarderOption {
	return func(f *Forwarder) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithForwarderReporter 设置失败上报
func WithForwarderReporter(r Reporter) ForwarderOption {
	return func(f *Forwarder) {
		f.reporter = r
	}
}

// WithForwarderLogger 设置 logger
func WithForwarderLogger(l logger.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// Forwarder 先同步更新本地状态，再把 sendToServer 的动作异步提交到网关
// 失败不回滚本地状态
type Forwarder struct {
	store    *Store
	gw       Gateway
	logger   logger.Logger
	reporter Reporter
	newID    func() string

	// mu 保证 closed 检查与 wg.Go 相对 Close 原子
	mu      sync.RWMutex
	closed  bool
	wg      conc.WaitGroup
	pending atomic.Int64
}

// NewForwarder 创建转发器
func NewForwarder(store *Store, gw Gateway, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		store:  store,
		gw:     gw,
		logger: logger.NewNoop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("sheetsync.forwarder").WithFields("sheet_id", store.SheetID())
	return f
}

// Dispatch 分配 id、同步应用到本地，需要时后台提交
// 本地应用失败时立即返回已失败的 Future 且不提交；纯本地动作返回已完成的 Future
func (f *Forwarder) Dispatch(ctx context.Context, a sheet.Action, opts ...DispatchOption) *Future {
	var o dispatchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if a.ID == "" {
		a.ID = f.newID()
	}
	a = sheet.AssignIDs(f.store.State().Sheet, a, f.newID)

	if err := f.store.Dispatch(a); err != nil {
		o.complete(err)
		return resolvedFuture(err)
	}
	if !a.SendToServer {
		return resolvedFuture(nil)
	}

	wire := a
	wire.SendToServer = false
	ctx = logger.WithActionID(logger.WithSheetID(context.WithoutCancel(ctx), f.store.SheetID()), wire.ID)

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		o.complete(ErrForwarderClosed)
		return resolvedFuture(ErrForwarderClosed)
	}

	fut := newFuture()
	f.pending.Inc()
	f.wg.Go(func() {
		var err error
		defer func() {
			f.pending.Dec()
			fut.resolve(err)
		}()

		err = f.send(ctx, wire)
		o.complete(err)
	})
	return fut
}

// Pending 尚未完成的提交数
func (f *Forwarder) Pending() int64 {
	return f.pending.Load()
}

// Close 停止接受新的提交并等待已发出的提交结束
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if r := f.wg.WaitAndRecover(); r != nil {
		f.logger.Error("forward callback panicked", "panic", r.String())
		return r.AsError()
	}
	return nil
}

func (f *Forwarder) send(ctx context.Context, a sheet.Action) error {
	sendCtx, cancel := context.WithTimeout(ctx, f.store.Config().SendTimeout)
	defer cancel()

	res, err := f.gw.Send(sendCtx, f.store.SheetID(), a)
	if err != nil {
		f.logger.ErrorContext(ctx, "forward action failed",
			"action_type", a.Type,
			"error", err,
		)
		if f.reporter != nil {
			f.reporter.CaptureError(ctx, err, map[string]string{"action_type": string(a.Type)})
		}
		return err
	}

	f.logger.DebugContext(ctx, "action forwarded",
		"action_type", a.Type,
		"revision", res.Revision,
		"duplicate", res.Duplicate,
	)
	return nil
}
