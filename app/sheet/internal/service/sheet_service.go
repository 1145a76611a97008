package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/partysheet/app/sheet/internal/journal"
	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/pkg/idgen"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/otel"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

// SheetStore 物品表持久化
type SheetStore interface {
	Create(ctx context.Context, rec *model.SheetRecord) error
	Get(ctx context.Context, id string) (*model.SheetRecord, error)
	// Mutate 在事务内修改一条记录，fn 返回错误时不写入
	Mutate(ctx context.Context, id string, fn func(rec *model.SheetRecord) error) (*model.SheetRecord, error)
}

// SnapshotCache 快照缓存、动作去重与表锁
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, id string) (*model.SheetRecord, error)
	SetSnapshot(ctx context.Context, rec *model.SheetRecord) error
	Invalidate(ctx context.Context, id string, revision int64) error
	MarkAction(ctx context.Context, sheetID, actionID string) (bool, error)
	ReleaseAction(ctx context.Context, sheetID, actionID string) error
	WithSheetLock(ctx context.Context, sheetID string, fn func() error) error
}

// Reporter 错误上报
type Reporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) string
}

// ApplyResult 动作应用结果
type ApplyResult struct {
	ActionID  string
	Revision  int64
	Duplicate bool
}

// Option SheetService 选项
type Option func(*SheetService)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(s *SheetService) { s.now = now }
}

// WithIDGenerator 替换新实体 id 生成器，默认使用 idgen
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *SheetService) { s.newID = gen }
}

// WithReporter 设置错误上报
func WithReporter(r Reporter) Option {
	return func(s *SheetService) { s.reporter = r }
}

// SheetService 物品表读写
type SheetService struct {
	store    SheetStore
	cache    SnapshotCache
	journal  journal.Publisher
	metrics  *metrics.SheetMetrics
	logger   logger.Logger
	reporter Reporter

	now   func() time.Time
	newID func() (string, error)
	group singleflight.Group
}

// NewSheetService 创建物品表服务
func NewSheetService(
	store SheetStore,
	cache SnapshotCache,
	pub journal.Publisher,
	m *metrics.SheetMetrics,
	l logger.Logger,
	opts ...Option,
) *SheetService {
	s := &SheetService{
		store:   store,
		cache:   cache,
		journal: pub,
		metrics: m,
		logger:  l.Named("service.sheet"),
		now:     time.Now,
		newID:   idgen.NextString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 新建空表
func (s *SheetService) Create(ctx context.Context, name string) (*model.SheetRecord, error) {
	id, err := s.newID()
	if err != nil {
		return nil, errors.Wrap(err, "generate sheet id")
	}

	rec, err := model.NewSheetRecord(sheet.Sheet{ID: id, Name: name}, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sheet created", "sheet_id", id)
	return rec, nil
}

// Get 读取快照，先查缓存，未命中时按 sheet id 合并数据库读取
func (s *SheetService) Get(ctx context.Context, id string) (*model.SheetRecord, error) {
	rec, err := s.cache.GetSnapshot(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot cache read failed", "sheet_id", id, "error", err)
	} else if rec != nil {
		s.metrics.RecordCache(true)
		return rec, nil
	}
	s.metrics.RecordCache(false)

	v, err, _ := s.group.Do(id, func() (any, error) {
		// 共享调用不受单个请求取消影响
		fctx := context.WithoutCancel(ctx)
		rec, err := s.store.Get(fctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetSnapshot(fctx, rec); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache fill failed", "sheet_id", id, "error", err)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.SheetRecord), nil
}

// Apply 在表锁内去重、应用并持久化一个客户端动作
func (s *SheetService) Apply(ctx context.Context, sheetID string, a sheet.Action) (*ApplyResult, error) {
	start := time.Now()
	a.SendToServer = false

	if err := a.Validate(); err != nil {
		s.metrics.RecordAction(string(a.Type), metrics.ResultRejected, time.Since(start).Seconds())
		return nil, errors.Mark(err, ErrInvalidAction)
	}
	if a.Type == sheet.TypeSheetUpdate {
		s.metrics.RecordAction(string(a.Type), metrics.ResultRejected, time.Since(start).Seconds())
		return nil, ErrSnapshotAction
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	ctx = logger.WithActionID(logger.WithSheetID(ctx, sheetID), a.ID)
	ctx, span := otel.Tracer("partysheet.service").Start(ctx, "sheet.apply",
		otel.WithAttributes(
			otel.String("sheet.id", sheetID),
			otel.String("action.type", string(a.Type)),
		),
	)
	defer span.End()

	res := &ApplyResult{ActionID: a.ID}
	err := s.cache.WithSheetLock(ctx, sheetID, func() error {
		fresh, err := s.cache.MarkAction(ctx, sheetID, a.ID)
		if err != nil {
			return errors.Wrap(err, "mark action")
		}
		if !fresh {
			res.Duplicate = true
			return nil
		}

		rec, applied, err := s.apply(ctx, sheetID, a)
		if err != nil {
			if relErr := s.cache.ReleaseAction(context.WithoutCancel(ctx), sheetID, a.ID); relErr != nil {
				s.logger.WarnContext(ctx, "release action id failed", "error", relErr)
			}
			return err
		}
		res.Revision = rec.Revision

		invErr := s.cache.Invalidate(context.WithoutCancel(ctx), sheetID, rec.Revision)
		s.publish(ctx, sheetID, applied, rec.Revision)
		if invErr != nil {
			// 动作 id 保持已记录，客户端重试按重复处理
			return errors.Mark(errors.Wrapf(invErr, "revision %d", rec.Revision), ErrStaleSnapshot)
		}
		return nil
	})

	elapsed := time.Since(start).Seconds()
	switch {
	case err == nil && res.Duplicate:
		s.metrics.RecordAction(string(a.Type), metrics.ResultDuplicate, elapsed)
		s.logger.InfoContext(ctx, "duplicate action ignored", "action_type", a.Type)
		return res, nil
	case err == nil:
		s.metrics.RecordAction(string(a.Type), metrics.ResultApplied, elapsed)
		s.logger.DebugContext(ctx, "action applied", "action_type", a.Type, "revision", res.Revision)
		return res, nil
	case errors.Is(err, ErrInvalidAction), errors.Is(err, ErrNotFound):
		s.metrics.RecordAction(string(a.Type), metrics.ResultRejected, elapsed)
		s.logger.InfoContext(ctx, "action rejected", "action_type", a.Type, "error", err)
	default:
		s.metrics.RecordAction(string(a.Type), metrics.ResultFailed, elapsed)
		s.logger.ErrorContext(ctx, "action failed", "action_type", a.Type, "error", err)
		span.RecordError(err)
		span.SetStatus(otel.CodeError, err.Error())
		if errors.Is(err, ErrInvariant) && s.reporter != nil {
			s.reporter.CaptureError(ctx, err, map[string]string{"action_type": string(a.Type)})
		}
	}
	return nil, err
}

func (s *SheetService) apply(ctx context.Context, sheetID string, a sheet.Action) (*model.SheetRecord, sheet.Action, error) {
	var applied sheet.Action
	rec, err := s.store.Mutate(ctx, sheetID, func(rec *model.SheetRecord) error {
		cur, err := rec.Sheet()
		if err != nil {
			return err
		}

		applied = sheet.AssignIDs(cur, a, s.nextID)
		next, err := sheet.Apply(cur, applied)
		if err != nil {
			return errors.Mark(err, ErrInvalidAction)
		}
		if err := next.CheckInvariants(); err != nil {
			return errors.Mark(err, ErrInvariant)
		}
		return rec.SetSheet(next, s.now())
	})
	return rec, applied, err
}

// nextID 服务端实体 id，生成器故障时退回 uuid
func (s *SheetService) nextID() string {
	id, err := s.newID()
	if err != nil {
		s.logger.Warn("id generator failed, falling back to uuid", "error", err)
		return uuid.NewString()
	}
	return id
}

func (s *SheetService) publish(ctx context.Context, sheetID string, a sheet.Action, revision int64) {
	ev, err := model.NewJournalEvent(sheetID, a, revision, s.now())
	if err == nil {
		err = s.journal.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "journal publish failed", "revision", revision, "error", err)
	}
}
