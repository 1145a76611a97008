package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/app/sheet/internal/dao"
	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore 内存版 SheetStore
type memStore struct {
	mu      sync.Mutex
	rows    map[string]model.SheetRecord
	gets    int
	getGate chan struct{}
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]model.SheetRecord)}
}

func (s *memStore) Create(_ context.Context, rec *model.SheetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; ok {
		return errors.Newf("duplicate key %s", rec.ID)
	}
	s.rows[rec.ID] = *rec
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*model.SheetRecord, error) {
	s.mu.Lock()
	s.gets++
	gate := s.getGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return nil, errors.Wrapf(dao.ErrSheetNotFound, "sheet %s", id)
	}
	return &rec, nil
}

func (s *memStore) Mutate(_ context.Context, id string, fn func(rec *model.SheetRecord) error) (*model.SheetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return nil, errors.Wrapf(dao.ErrSheetNotFound, "sheet %s", id)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	s.rows[id] = rec
	return &rec, nil
}

func (s *memStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// memCache 内存版 SnapshotCache，回填规则与 redis 脚本一致
type memCache struct {
	mu        sync.Mutex
	lock      sync.Mutex
	snapshots map[string]model.SheetRecord
	revisions map[string]int64
	actions   map[string]bool
	evicted   []string

	invalidateErr error
}

func newMemCache() *memCache {
	return &memCache{
		snapshots: make(map[string]model.SheetRecord),
		revisions: make(map[string]int64),
		actions:   make(map[string]bool),
	}
}

func (c *memCache) GetSnapshot(_ context.Context, id string) (*model.SheetRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.snapshots[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *memCache) SetSnapshot(_ context.Context, rec *model.SheetRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.revisions[rec.ID]; ok && cur > rec.Revision {
		return nil
	}
	c.snapshots[rec.ID] = *rec
	c.revisions[rec.ID] = rec.Revision
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string, revision int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.snapshots, id)
	c.revisions[id] = revision
	return nil
}

func (c *memCache) Evict(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.snapshots, id)
		delete(c.revisions, id)
	}
	c.evicted = append(c.evicted, ids...)
	return nil
}

func (c *memCache) MarkAction(_ context.Context, sheetID, actionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sheetID + "/" + actionID
	if c.actions[key] {
		return false, nil
	}
	c.actions[key] = true
	return true, nil
}

func (c *memCache) ReleaseAction(_ context.Context, sheetID, actionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.actions, sheetID+"/"+actionID)
	return nil
}

func (c *memCache) WithSheetLock(_ context.Context, _ string, fn func() error) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return fn()
}

func (c *memCache) hasAction(sheetID, actionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actions[sheetID+"/"+actionID]
}

// memJournal 记录发布的事件
type memJournal struct {
	mu     sync.Mutex
	events []*model.JournalEvent
}

func (j *memJournal) Publish(_ context.Context, ev *model.JournalEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *memJournal) Close() error { return nil }

func newTestMetrics(t *testing.T) *metrics.SheetMetrics {
	t.Helper()
	m, err := metrics.New(nil)
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m
}

// sequentialIDs 依次生成 id-1, id-2 ...
func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

type fixture struct {
	svc     *SheetService
	store   *memStore
	cache   *memCache
	journal *memJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newMemStore(), cache: newMemCache(), journal: &memJournal{}}
	f.svc = NewSheetService(f.store, f.cache, f.journal, newTestMetrics(t), logger.NewNoop(),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
	)
	return f
}
