package sheetsync

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// SyncStats 轮询计数
type SyncStats struct {
	Polls      int64
	Applied    int64
	Suppressed int64
	Unchanged  int64
	Failed     int64
}

// Syncer 按固定间隔拉取服务端快照并与本地状态合并
type Syncer struct {
	store  *Store
	gw     Gateway
	logger logger.Logger

	// etag 只在本地版本未变化时复用
	mu          sync.Mutex
	etag        string
	etagVersion uint64

	polls      atomic.Int64
	applied    atomic.Int64
	suppressed atomic.Int64
	unchanged  atomic.Int64
	failed     atomic.Int64
}

// NewSyncer 创建轮询器，配置取自 store
func NewSyncer(store *Store, gw Gateway, l logger.Logger) *Syncer {
	if l == nil {
		l = logger.NewNoop()
	}
	return &Syncer{
		store:  store,
		gw:     gw,
		logger: l.Named("sheetsync.syncer").WithFields("sheet_id", store.SheetID()),
	}
}

// Run 阻塞执行轮询直到 ctx 取消
// 每次轮询在 ticker 协程内串行执行，慢请求只推迟下一次轮询
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.store.Config().RefetchInterval)
	defer ticker.Stop()

	s.logger.Info("sync loop started", "interval", s.store.Config().RefetchInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync loop stopped", "polls", s.polls.Load())
			return ctx.Err()
		case <-ticker.C:
			_, _ = s.PollOnce(ctx)
		}
	}
}

// PollOnce 执行一次拉取-校验-合并
// 拉取失败与快照不合法都只记录日志，返回 OutcomeFailed
func (s *Syncer) PollOnce(ctx context.Context) (Outcome, error) {
	s.polls.Inc()
	ctx = logger.WithSheetID(ctx, s.store.SheetID())

	version := s.store.Version()
	fetchCtx, cancel := context.WithTimeout(ctx, s.store.Config().FetchTimeout)
	defer cancel()

	snap, err := s.gw.Fetch(fetchCtx, s.store.SheetID(), s.etagFor(version))
	if errors.Is(err, ErrNotModified) {
		s.unchanged.Inc()
		return OutcomeUnchanged, nil
	}
	if err != nil {
		s.failed.Inc()
		s.logger.WarnContext(ctx, "fetch snapshot failed, retry next tick", "error", err)
		return OutcomeFailed, err
	}
	if err := sheet.ValidateSnapshot(snap.Sheet); err != nil {
		s.failed.Inc()
		s.logger.WarnContext(ctx, "malformed snapshot skipped", "error", err)
		return OutcomeFailed, err
	}

	outcome, version := s.store.reconcile(snap.Sheet)
	switch outcome {
	case OutcomeApplied:
		s.applied.Inc()
		s.remember(snap.ETag, version)
		s.logger.DebugContext(ctx, "snapshot applied", "items", len(snap.Sheet.Items))
	case OutcomeUnchanged:
		s.unchanged.Inc()
		s.remember(snap.ETag, version)
	case OutcomeSuppressed:
		// 不记 etag，窗口结束后仍要重新比较
		s.suppressed.Inc()
		s.logger.DebugContext(ctx, "snapshot suppressed by local write")
	default:
		s.failed.Inc()
		s.logger.ErrorContext(ctx, "snapshot rejected by store")
		return outcome, errors.Wrap(ErrInvariant, "reconcile")
	}
	return outcome, nil
}

// Stats 计数快照
func (s *Syncer) Stats() SyncStats {
	return SyncStats{
		Polls:      s.polls.Load(),
		Applied:    s.applied.Load(),
		Suppressed: s.suppressed.Load(),
		Unchanged:  s.unchanged.Load(),
		Failed:     s.failed.Load(),
	}
}

func (s *Syncer) etagFor(version uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.etag == "" || s.etagVersion != version {
		return ""
	}
	return s.etag
}

// remember 记录与本地 version 一致的快照 etag
func (s *Syncer) remember(etag string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etag = etag
	s.etagVersion = version
}
