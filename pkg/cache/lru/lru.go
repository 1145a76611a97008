// Package lru 带过期时间的并发安全 LRU，用于限流器表与告警冷却
package lru

import (
	"container/list"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// Config LRU 配置，零值字段取默认值
type Config struct {
	MaxSize         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// LRU 超出 MaxSize 时淘汰最久未访问的条目，过期条目在访问或后台清理时删除
type LRU[K comparable, V any] struct {
	cfg     Config
	now     func() time.Time
	onEvict func(key K, value V)

	mu    sync.Mutex
	order *list.List // 队头为最近访问
	items map[K]*list.Element

	wg   conc.WaitGroup
	stop chan struct{}
	once sync.Once
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// Option LRU 配置选项
type Option[K comparable, V any] func(*LRU[K, V])

// WithOnEvict 条目被删除（淘汰、过期、Delete）时回调，回调在持锁状态下执行
func WithOnEvict[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// WithClock 替换时钟
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New 创建 LRU 并启动后台清理
func New[K comparable, V any](cfg *Config, opts ...Option[K, V]) *LRU[K, V] {
	c := &LRU[K, V]{
		cfg:   Config{MaxSize: 1024, DefaultTTL: 10 * time.Minute, CleanupInterval: time.Minute},
		now:   time.Now,
		order: list.New(),
		items: make(map[K]*list.Element),
		stop:  make(chan struct{}),
	}
	if cfg != nil {
		if cfg.MaxSize > 0 {
			c.cfg.MaxSize = cfg.MaxSize
		}
		if cfg.DefaultTTL > 0 {
			c.cfg.DefaultTTL = cfg.DefaultTTL
		}
		if cfg.CleanupInterval > 0 {
			c.cfg.CleanupInterval = cfg.CleanupInterval
		}
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Go(c.cleanupLoop)
	return c
}

func (c *LRU[K, V]) cleanupLoop() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for e := c.order.Back(); e != nil; {
				prev := e.Prev()
				if c.expired(e, now) {
					c.remove(e)
				}
				e = prev
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Get 取值并刷新访问顺序
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookup(key); e != nil {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set 使用默认 TTL 写入
func (c *LRU[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.cfg.DefaultTTL)
}

// SetWithTTL 写入并重置过期时间
func (c *LRU[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		ent := e.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(e)
		return
	}
	c.insert(key, value, ttl)
}

// SetIfAbsent 仅当 key 不存在或已过期时写入，返回是否写入
func (c *LRU[K, V]) SetIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lookup(key) != nil {
		return false
	}
	c.insert(key, value, c.cfg.DefaultTTL)
	return true
}

// GetOrCreate 不存在时调用 create 生成并写入，create 在持锁状态下执行
func (c *LRU[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookup(key); e != nil {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value
	}
	v := create()
	c.insert(key, v, c.cfg.DefaultTTL)
	return v
}

func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Len 包含尚未清理的过期条目
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear 清空，不触发淘汰回调
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Close 停止后台清理，可重复调用
func (c *LRU[K, V]) Close() error {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
	return nil
}

// lookup 返回未过期的元素，过期的顺手删除
func (c *LRU[K, V]) lookup(key K) *list.Element {
	e, ok := c.items[key]
	if !ok {
		return nil
	}
	if c.expired(e, c.now()) {
		c.remove(e)
		return nil
	}
	return e
}

func (c *LRU[K, V]) insert(key K, value V, ttl time.Duration) {
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: c.now().Add(ttl)})
	for c.order.Len() > c.cfg.MaxSize {
		c.remove(c.order.Back())
	}
}

func (c *LRU[K, V]) expired(e *list.Element, now time.Time) bool {
	return now.After(e.Value.(*entry[K, V]).expiresAt)
}

func (c *LRU[K, V]) remove(e *list.Element) {
	ent := c.order.Remove(e).(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
