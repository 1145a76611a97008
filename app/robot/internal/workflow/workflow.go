package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

var (
	ErrStepTimeout  = errors.New("step timeout")
	ErrStepPanicked = errors.New("step panicked")
)

// Status 工作流状态
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailure
	StatusRetrying
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusRetrying:
		return "Retrying"
	default:
		return "Unknown"
	}
}

// StepFunc 步骤执行函数
type StepFunc func(ctx context.Context, data *Data) error

// Step 工作流步骤
type Step struct {
	Name       string
	Func       StepFunc
	MaxRetries int           // 最大重试次数
	RetryDelay time.Duration // 重试延迟
	Timeout    time.Duration // 超时时间

	retryCount   int
	status       Status
	err          error
	startTime    time.Time
	completeTime time.Time
}

// StepReport 步骤执行结果
type StepReport struct {
	Name     string
	Status   Status
	Retries  int
	Duration time.Duration
	Err      error
}

// Workflow 按顺序执行的步骤序列，失败的步骤按配置重试
type Workflow struct {
	id      string
	steps   []*Step
	current int
	data    *Data
	logger  logger.Logger
	status  Status
}

// Data 步骤间共享的数据，并发安全
type Data struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewData 创建数据容器
func NewData() *Data {
	return &Data{
		values: make(map[string]any),
	}
}

// Set 设置数据
func (d *Data) Set(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = value
}

// Get 获取数据
func (d *Data) Get(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	val, ok := d.values[key]
	return val, ok
}

// GetString 获取字符串
func (d *Data) GetString(key string) (string, bool) {
	return Value[string](d, key)
}

// GetStrings 获取字符串列表
func (d *Data) GetStrings(key string) []string {
	v, _ := Value[[]string](d, key)
	return v
}

// Append 向字符串列表追加
func (d *Data) Append(key string, vals ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, _ := d.values[key].([]string)
	d.values[key] = append(cur, vals...)
}

// Value 按类型取值，类型不匹配时视为不存在
func Value[T any](d *Data, key string) (T, bool) {
	var zero T
	val, ok := d.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := val.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// NewWorkflow 创建工作流
func NewWorkflow(id string, l logger.Logger) *Workflow {
	return &Workflow{
		id:     id,
		steps:  make([]*Step, 0),
		data:   NewData(),
		logger: l.Named("workflow").WithFields("workflow", id),
		status: StatusPending,
	}
}

// ID 工作流标识
func (w *Workflow) ID() string {
	return w.id
}

// AddStep 添加步骤，默认重试 3 次，间隔 1 秒，超时 30 秒
func (w *Workflow) AddStep(name string, fn StepFunc) *Workflow {
	return w.AddStepWithOptions(name, fn, 3, time.Second, 30*time.Second)
}

// AddStepWithOptions 添加带配置的步骤
func (w *Workflow) AddStepWithOptions(name string, fn StepFunc, maxRetries int, retryDelay, timeout time.Duration) *Workflow {
	step := &Step{
		Name:       name,
		Func:       fn,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		Timeout:    timeout,
		status:     StatusPending,
	}
	w.steps = append(w.steps, step)
	return w
}

// Run 运行工作流，ctx 取消时立即停止
func (w *Workflow) Run(ctx context.Context) error {
	w.status = StatusRunning
	w.logger.Info("workflow started", "total_steps", len(w.steps))

	for w.current < len(w.steps) {
		step := w.steps[w.current]
		w.logger.Debug("executing step",
			"step", step.Name,
			"index", w.current+1,
			"total", len(w.steps),
		)

		err := w.executeStep(ctx, step)
		if err != nil {
			w.logger.Warn("step failed", "step", step.Name, "error", err)

			if ctx.Err() == nil && step.retryCount < step.MaxRetries {
				step.retryCount++
				step.status = StatusRetrying
				w.logger.Info("retrying step",
					"step", step.Name,
					"retry", step.retryCount,
					"max", step.MaxRetries,
				)

				select {
				case <-time.After(step.RetryDelay):
					continue
				case <-ctx.Done():
					err = errors.CombineErrors(err, ctx.Err())
				}
			}

			step.status = StatusFailure
			step.err = err
			step.completeTime = time.Now()
			w.status = StatusFailure
			return errors.Wrapf(err, "step %s failed after %d retries", step.Name, step.retryCount)
		}

		step.status = StatusSuccess
		step.completeTime = time.Now()
		w.logger.Info("step completed",
			"step", step.Name,
			"duration", step.completeTime.Sub(step.startTime),
		)

		w.current++
	}

	w.status = StatusSuccess
	w.logger.Info("workflow completed successfully")
	return nil
}

// executeStep 执行单个步骤，超时后不再等待步骤返回
func (w *Workflow) executeStep(ctx context.Context, step *Step) error {
	step.startTime = time.Now()
	step.status = StatusRunning

	stepCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- errors.Mark(errors.Newf("%v", r), ErrStepPanicked)
			}
		}()
		errChan <- step.Func(stepCtx, w.data)
	}()

	select {
	case err := <-errChan:
		return err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrapf(ErrStepTimeout, "after %v", step.Timeout)
	}
}

// GetData 获取工作流数据
func (w *Workflow) GetData() *Data {
	return w.data
}

// GetStatus 获取工作流状态
func (w *Workflow) GetStatus() Status {
	return w.status
}

// GetCurrentStep 获取当前步骤索引
func (w *Workflow) GetCurrentStep() int {
	return w.current
}

// Report 各步骤执行结果
func (w *Workflow) Report() []StepReport {
	out := make([]StepReport, 0, len(w.steps))
	for _, s := range w.steps {
		r := StepReport{Name: s.Name, Status: s.status, Retries: s.retryCount, Err: s.err}
		if !s.completeTime.IsZero() {
			r.Duration = s.completeTime.Sub(s.startTime)
		}
		out = append(out, r)
	}
	return out
}

// Reset 重置工作流
func (w *Workflow) Reset() {
	w.current = 0
	w.status = StatusPending
	w.data = NewData()
	for _, step := range w.steps {
		step.status = StatusPending
		step.retryCount = 0
		step.err = nil
		step.startTime = time.Time{}
		step.completeTime = time.Time{}
	}
}
