package dao

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/pkg/compress"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/database/redis"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/serializer"
)

// CacheConfig 快照缓存、动作去重与表锁配置
type CacheConfig struct {
	// CacheTTL 快照缓存过期时间，不应超过客户端拉取间隔
	CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" validate:"gt=0"`
	// DedupTTL 动作 id 去重窗口
	DedupTTL time.Duration `mapstructure:"dedup_ttl" json:"dedup_ttl" validate:"gt=0"`

	LockTTL           time.Duration `mapstructure:"lock_ttl" json:"lock_ttl" validate:"gt=0"`
	LockRetryInterval time.Duration `mapstructure:"lock_retry_interval" json:"lock_retry_interval" validate:"gt=0"`
	LockMaxRetries    int           `mapstructure:"lock_max_retries" json:"lock_max_retries" validate:"gte=0"`

	// Codec 快照压缩算法: none, snappy, zstd, lz4
	Codec compress.Type `mapstructure:"codec" json:"codec"`
}

// DefaultCacheConfig 默认配置
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		CacheTTL:          5 * time.Second,
		DedupTTL:          24 * time.Hour,
		LockTTL:           5 * time.Second,
		LockRetryInterval: 20 * time.Millisecond,
		LockMaxRetries:    250,
		Codec:             compress.TypeSnappy,
	}
}

// storeIfNewer 只在缓存中的 revision 不比当前新时写入快照
const storeIfNewer = `
local cur = redis.call('GET', KEYS[2])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`

// cachedSheet 缓存中的快照，实体列表保持 JSON 原文
type cachedSheet struct {
	ID         string `codec:"id"`
	Name       string `codec:"name"`
	Items      []byte `codec:"items"`
	Characters []byte `codec:"characters"`
	Revision   int64  `codec:"revision"`
	CreatedAt  int64  `codec:"createdAt"`
	UpdatedAt  int64  `codec:"updatedAt"`
}

// CacheDAO 缓存数据访问对象
type CacheDAO struct {
	redis      *redis.Client
	config     *CacheConfig
	compressor compress.Compressor
	logger     logger.Logger
}

// NewCacheDAO 创建缓存 DAO
func NewCacheDAO(rdb *redis.Client, cfg *CacheConfig, l logger.Logger) (*CacheDAO, error) {
	newCfg, err := config.MergeConfig(DefaultCacheConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge cache config")
	}
	if err := config.NewValidator().Validate(newCfg); err != nil {
		return nil, err
	}

	c, err := compress.New(newCfg.Codec)
	if err != nil {
		return nil, errors.Mark(err, ErrUnknownCodec)
	}

	return &CacheDAO{
		redis:      rdb,
		config:     newCfg,
		compressor: c,
		logger:     l.Named("dao.cache"),
	}, nil
}

// 同一张表的键共享 hash tag，集群模式下落在同一个 slot
func (d *CacheDAO) snapshotKey(id string) string {
	return d.redis.Key("sheet", "{"+id+"}", "snapshot")
}

func (d *CacheDAO) revisionKey(id string) string {
	return d.redis.Key("sheet", "{"+id+"}", "rev")
}

func (d *CacheDAO) actionKey(sheetID, actionID string) string {
	return d.redis.Key("sheet", "{"+sheetID+"}", "action", actionID)
}

func (d *CacheDAO) lockKey(id string) string {
	return d.redis.Key("lock", "sheet", id)
}

// GetSnapshot 读取快照缓存，未命中返回 nil, nil
func (d *CacheDAO) GetSnapshot(ctx context.Context, id string) (*model.SheetRecord, error) {
	data, err := d.redis.GetBytes(ctx, d.snapshotKey(id))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get snapshot %s", id)
	}
	return d.decode(data)
}

// SetSnapshot 写入快照缓存，已有更新的 revision 时跳过
func (d *CacheDAO) SetSnapshot(ctx context.Context, rec *model.SheetRecord) error {
	data, err := d.encode(rec)
	if err != nil {
		return err
	}

	_, err = d.redis.Eval(ctx, storeIfNewer,
		[]string{d.snapshotKey(rec.ID), d.revisionKey(rec.ID)},
		data, rec.Revision, d.config.CacheTTL.Milliseconds(),
	)
	if err != nil && !errors.Is(err, redis.ErrNil) {
		return errors.Wrapf(err, "set snapshot %s", rec.ID)
	}
	return nil
}

// Invalidate 表写入后删除快照并记录最新 revision
func (d *CacheDAO) Invalidate(ctx context.Context, id string, revision int64) error {
	err := d.redis.Pipeline().
		Del(ctx, d.snapshotKey(id)).
		Set(ctx, d.revisionKey(id), revision, d.config.CacheTTL).
		Exec(ctx)
	return errors.Wrapf(err, "invalidate snapshot %s", id)
}

// Evict 删除表的全部缓存键
func (d *CacheDAO) Evict(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		keys = append(keys, d.snapshotKey(id), d.revisionKey(id))
	}
	_, err := d.redis.Del(ctx, keys...)
	return err
}

// MarkAction 记录动作 id，窗口内已见过时返回 false
func (d *CacheDAO) MarkAction(ctx context.Context, sheetID, actionID string) (bool, error) {
	return d.redis.SetNX(ctx, d.actionKey(sheetID, actionID), 1, d.config.DedupTTL)
}

// ReleaseAction 应用失败后释放动作 id，允许客户端重试
func (d *CacheDAO) ReleaseAction(ctx context.Context, sheetID, actionID string) error {
	_, err := d.redis.Del(ctx, d.actionKey(sheetID, actionID))
	return err
}

// WithSheetLock 持有表锁执行 fn
func (d *CacheDAO) WithSheetLock(ctx context.Context, sheetID string, fn func() error) error {
	return d.redis.WithLock(ctx, d.lockKey(sheetID),
		d.config.LockTTL, d.config.LockRetryInterval, d.config.LockMaxRetries, fn)
}

func (d *CacheDAO) encode(rec *model.SheetRecord) ([]byte, error) {
	raw, err := serializer.EncodeWithSizeHint(cachedSheet{
		ID:         rec.ID,
		Name:       rec.Name,
		Items:      rec.Items,
		Characters: rec.Characters,
		Revision:   rec.Revision,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
		UpdatedAt:  rec.UpdatedAt.UnixMilli(),
	}, len(rec.Items)+len(rec.Characters)+64)
	if err != nil {
		return nil, errors.Wrapf(err, "encode snapshot %s", rec.ID)
	}
	return d.compressor.Compress(raw)
}

func (d *CacheDAO) decode(data []byte) (*model.SheetRecord, error) {
	raw, err := d.compressor.Decompress(data)
	if err != nil {
		return nil, errors.Wrap(err, "decompress snapshot")
	}
	var c cachedSheet
	if err := serializer.Decode(raw, &c); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &model.SheetRecord{
		ID:         c.ID,
		Name:       c.Name,
		Items:      c.Items,
		Characters: c.Characters,
		Revision:   c.Revision,
		CreatedAt:  time.UnixMilli(c.CreatedAt).UTC(),
		UpdatedAt:  time.UnixMilli(c.UpdatedAt).UTC(),
	}, nil
}
