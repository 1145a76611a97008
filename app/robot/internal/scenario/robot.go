// Package scenario 用同步核心模拟多人同时编辑同一张物品表
package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"

	"github.com/lk2023060901/partysheet/app/robot/internal/workflow"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheet"
	"github.com/lk2023060901/partysheet/pkg/sheetsync"
)

var (
	ErrNotMounted = errors.New("robot is not mounted")
	ErrDiverged   = errors.New("robot state diverged from server")
)

// Gateway 机器人需要的网关能力，*sheetsync.Client 满足该接口
type Gateway interface {
	sheetsync.Gateway
	Create(ctx context.Context, name string) (string, error)
}

// Options 机器人行为参数
type Options struct {
	// Characters 招募的角色数
	Characters int
	// Items 添加的物品数
	Items int
	// Edits 随机修改物品的次数
	Edits int
	// Rename 非空时把表重命名
	Rename string
	// Seed 随机种子，相同种子产生相同的动作序列
	Seed uint64
}

// Robot 一个无界面的表客户端
type Robot struct {
	name   string
	gw     Gateway
	cfg    *sheetsync.Config
	opts   Options
	recent *sheetsync.RecentStore
	rng    *rand.Rand
	logger logger.Logger

	session  *sheetsync.Session
	own      []string
	sent     atomic.Int64
	rejected atomic.Int64
}

// NewRobot 创建机器人，recent 可为 nil
func NewRobot(name string, gw Gateway, cfg *sheetsync.Config, opts Options, recent *sheetsync.RecentStore, l logger.Logger) *Robot {
	return &Robot{
		name:   name,
		gw:     gw,
		cfg:    cfg,
		opts:   opts,
		recent: recent,
		rng:    rand.New(rand.NewPCG(opts.Seed, uint64(len(name)))),
		logger: l.Named("robot").WithFields("robot", name),
	}
}

// Name 机器人名称
func (r *Robot) Name() string {
	return r.name
}

// Stats 已提交与被拒绝的动作数
func (r *Robot) Stats() (sent, rejected int64) {
	return r.sent.Load(), r.rejected.Load()
}

// Workflow 组装编辑流程，ctx 决定后台轮询的生命周期
func (r *Robot) Workflow(ctx context.Context, sheetID string) *workflow.Workflow {
	w := workflow.NewWorkflow(r.name, r.logger)
	w.GetData().Set(keySheetID, sheetID)

	w.AddStepWithOptions("mount", func(stepCtx context.Context, d *workflow.Data) error {
		return r.mount(ctx, stepCtx, d)
	}, 2, 200*time.Millisecond, 30*time.Second)
	w.AddStepWithOptions("recruit", r.recruit, 0, 0, time.Minute)
	w.AddStepWithOptions("stock", r.stock, 0, 0, time.Minute)
	w.AddStepWithOptions("shuffle", r.shuffle, 0, 0, time.Minute)
	if r.opts.Rename != "" {
		w.AddStepWithOptions("retitle", r.retitle, 0, 0, time.Minute)
	}
	w.AddStepWithOptions("dismiss", r.dismiss, 0, 0, time.Minute)
	return w
}

// Sheet 本地当前的表
func (r *Robot) Sheet() sheet.Sheet {
	if r.session == nil {
		return sheet.Sheet{}
	}
	return r.session.Store.State().Sheet
}

// Settle 等待在途提交完成、抑制窗口过期，再拉取一次，返回拉取后的本地表
func (r *Robot) Settle(ctx context.Context) (sheet.Sheet, error) {
	if r.session == nil {
		return sheet.Sheet{}, ErrNotMounted
	}
	s := r.session

	for s.Forwarder.Pending() > 0 {
		if err := sleep(ctx, 10*time.Millisecond); err != nil {
			return sheet.Sheet{}, err
		}
	}

	for {
		now := s.Store.Now()
		if st := s.Store.State(); st.Suppressed(now) {
			until := st.BlockRefetch.From.Add(st.BlockRefetch.For)
			if err := sleep(ctx, until.Sub(now)+time.Millisecond); err != nil {
				return sheet.Sheet{}, err
			}
			continue
		}

		out, err := s.Syncer.PollOnce(ctx)
		if err != nil {
			return sheet.Sheet{}, errors.Wrapf(err, "robot %s settle", r.name)
		}
		if out != sheetsync.OutcomeSuppressed {
			return s.Store.State().Sheet, nil
		}
	}
}

// Close 卸载会话
func (r *Robot) Close() error {
	if r.session == nil {
		return nil
	}
	return r.session.Close()
}

const (
	keySheetID    = "sheet_id"
	keyCharacters = "characters"
	keyItems      = "items"
)

func (r *Robot) mount(runCtx, stepCtx context.Context, d *workflow.Data) error {
	if r.session != nil {
		return nil
	}
	sheetID, _ := d.GetString(keySheetID)
	s, err := sheetsync.Mount(stepCtx, r.gw, sheetID, r.cfg, sheetsync.SessionOptions{
		Logger: r.logger,
		Recent: r.recent,
	})
	if err != nil {
		return err
	}
	s.Start(runCtx)
	r.session = s
	r.logger.Info("mounted", "sheet_id", sheetID, "items", len(s.Store.State().Sheet.Items))
	return nil
}

func (r *Robot) recruit(ctx context.Context, d *workflow.Data) error {
	actions := make([]sheet.Action, 0, r.opts.Characters)
	for i := 0; i < r.opts.Characters; i++ {
		id := uuid.NewString()
		actions = append(actions, sheet.NewAction(sheet.CharacterAdd{Character: sheet.Character{
			ID:            id,
			Name:          fmt.Sprintf("%s-%d", r.name, i+1),
			CarryCapacity: decimal.NewFromInt(int64(50 + r.rng.IntN(100))),
		}}))
		r.own = append(r.own, id)
		d.Append(keyCharacters, id)
	}
	return r.dispatchAll(ctx, actions)
}

var categories = []string{"weapon", "armor", "potion", "tool", "treasure"}

func (r *Robot) stock(ctx context.Context, d *workflow.Data) error {
	actions := make([]sheet.Action, 0, r.opts.Items)
	for i := 0; i < r.opts.Items; i++ {
		it := sheet.NewItem(fmt.Sprintf("%s item %d", r.name, i+1))
		it.ID = uuid.NewString()
		it.Quantity = 1 + r.rng.IntN(5)
		it.Weight = cents(r.rng.IntN(500))
		it.Value = cents(r.rng.IntN(10000))
		it.Category = categories[r.rng.IntN(len(categories))]
		if len(r.own) > 0 && r.rng.IntN(3) > 0 {
			it.CarriedByCharacterID = sheet.Ref(r.own[r.rng.IntN(len(r.own))])
		}
		actions = append(actions, sheet.NewAction(sheet.ItemAdd{Item: it}))
		d.Append(keyItems, it.ID)
	}
	return r.dispatchAll(ctx, actions)
}

// shuffle 随机修改表中任意物品，包括其他机器人添加的
func (r *Robot) shuffle(ctx context.Context, _ *workflow.Data) error {
	for i := 0; i < r.opts.Edits; i++ {
		cur := r.Sheet()
		if len(cur.Items) == 0 {
			return nil
		}
		it := cur.Items[r.rng.IntN(len(cur.Items))]

		patch := sheet.ItemPatch{ID: it.ID}
		switch r.rng.IntN(3) {
		case 0:
			q := 1 + r.rng.IntN(9)
			patch.Quantity = &q
		case 1:
			if len(cur.Characters) == 0 {
				patch.Carrier = sheet.ClearCarrier()
				break
			}
			patch.Carrier = sheet.SetCarrier(cur.Characters[r.rng.IntN(len(cur.Characters))].ID)
		default:
			patch.Carrier = sheet.ClearCarrier()
		}
		if err := r.dispatchAll(ctx, []sheet.Action{sheet.NewAction(patch)}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Robot) retitle(ctx context.Context, _ *workflow.Data) error {
	name := r.opts.Rename
	return r.dispatchAll(ctx, []sheet.Action{sheet.NewAction(sheet.MetadataUpdate{Name: &name})})
}

// dismiss 按随机策略删除自己招募的一个角色
func (r *Robot) dismiss(ctx context.Context, _ *workflow.Data) error {
	if len(r.own) == 0 {
		return nil
	}
	victim := r.own[len(r.own)-1]
	r.own = r.own[:len(r.own)-1]

	strategy := sheet.ToNobody()
	switch r.rng.IntN(4) {
	case 0:
		strategy = sheet.DeleteItems()
	case 1:
		if len(r.own) > 0 {
			strategy = sheet.PassTo(r.own[0])
		}
	case 2:
		if len(r.own) > 0 {
			strategy = sheet.GiveTo(r.own[0])
		}
	}
	r.logger.Info("dismissing character", "character_id", victim, "strategy", strategy.Kind)
	return r.dispatchAll(ctx, []sheet.Action{sheet.NewAction(sheet.CharacterRemove{
		Removal: sheet.CharacterRemoval{ID: victim, Strategy: strategy},
	})})
}

// dispatchAll 依次分发并等待提交结果
// 本地或服务端拒绝只计数，网络以外的错误不会让步骤失败
func (r *Robot) dispatchAll(ctx context.Context, actions []sheet.Action) error {
	if r.session == nil {
		return ErrNotMounted
	}
	futures := make([]*sheetsync.Future, 0, len(actions))
	for _, a := range actions {
		r.sent.Inc()
		futures = append(futures, r.session.Dispatch(ctx, a.WithSend(),
			sheetsync.OnCatch(func(err error) {
				r.rejected.Inc()
				r.logger.Warn("action rejected", "type", a.Type, "error", err)
			}),
		))
	}
	for _, f := range futures {
		if err := f.Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}
	return nil
}

// Converged 所有机器人沉淀后与服务端快照逐一比较
func Converged(ctx context.Context, gw sheetsync.Gateway, sheetID string, robots []*Robot) (sheet.Sheet, error) {
	snap, err := gw.Fetch(ctx, sheetID, "")
	if err != nil {
		return sheet.Sheet{}, errors.Wrap(err, "fetch server snapshot")
	}

	var diverged []string
	for _, r := range robots {
		got, err := r.Settle(ctx)
		if err != nil {
			return snap.Sheet, err
		}
		if !snap.Sheet.ContentEqual(got) {
			diverged = append(diverged, r.Name())
		}
	}
	if len(diverged) > 0 {
		return snap.Sheet, errors.Wrapf(ErrDiverged, "%v", diverged)
	}
	return snap.Sheet, nil
}

func cents(n int) decimal.Decimal {
	return decimal.New(int64(n), -2)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
