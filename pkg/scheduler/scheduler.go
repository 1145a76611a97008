package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

var (
	// ErrJobExists 同名任务已注册
	ErrJobExists = errors.New("scheduler: job already registered")

	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrInvalidSpec cron 表达式无效
	ErrInvalidSpec = errors.New("scheduler: invalid spec")
)

// 支持可选秒字段和 @every/@hourly 等描述符
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job 定时任务
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc 函数形式的任务
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// EntryInfo 已注册任务的调度信息
type EntryInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type entry struct {
	id   cron.EntryID
	spec string
	job  Job
}

// Scheduler 基于 robfig/cron 的任务调度器，同一任务上一次未结束时跳过本次
type Scheduler struct {
	cron    *cron.Cron
	logger  logger.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// Option 调度器选项
type Option func(*Scheduler)

// WithJobTimeout 单次任务执行超时
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New 创建调度器
func New(l logger.Logger, opts ...Option) *Scheduler {
	if l == nil {
		l = logger.NewNoop()
	}
	l = l.Named("scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		logger:  l,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{l}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// ValidateSpec 校验 cron 表达式
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return errors.Mark(errors.Wrapf(err, "parse %q", spec), ErrInvalidSpec)
	}
	return nil
}

// Register 注册任务
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.Name()]; ok {
		return errors.Wrapf(ErrJobExists, "%s", job.Name())
	}
	return s.addLocked(spec, job)
}

func (s *Scheduler) addLocked(spec string, job Job) error {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "parse %q", spec), ErrInvalidSpec)
	}
	id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(job) }))
	s.entries[job.Name()] = &entry{id: id, spec: spec, job: job}
	s.logger.Info("job registered", "job", job.Name(), "spec", spec)
	return nil
}

// Reschedule 修改已注册任务的执行计划，spec 相同时不做任何事
func (s *Scheduler) Reschedule(name, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "%s", name)
	}
	if e.spec == spec {
		return nil
	}
	if err := ValidateSpec(spec); err != nil {
		return err
	}
	s.cron.Remove(e.id)
	delete(s.entries, name)
	return s.addLocked(spec, e.job)
}

// RunNow 立即同步执行一次任务
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrJobNotFound, "%s", name)
	}
	return s.run(ctx, e.job)
}

// Entries 已注册任务
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryInfo, 0, len(s.entries))
	for name, e := range s.entries {
		ce := s.cron.Entry(e.id)
		out = append(out, EntryInfo{Name: name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	return out
}

// Start 启动调度
func (s *Scheduler) Start() error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.Entries()))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() error {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) execute(job Job) {
	if err := s.run(s.ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("job failed", "job", job.Name(), "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	s.logger.Debug("job finished", "job", job.Name(), "duration", time.Since(start), "error", err)
	return err
}

// cronLogger 把 cron 内部日志接到 pkg/logger
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
