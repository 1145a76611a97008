package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/app/sheet/internal/dao"
	"github.com/lk2023060901/partysheet/app/sheet/internal/journal"
	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/app/sheet/internal/model"
	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/web/validator"
)

// memBackend 同时实现 SheetStore 与 SnapshotCache
type memBackend struct {
	mu      sync.Mutex
	lock    sync.Mutex
	rows    map[string]model.SheetRecord
	actions map[string]bool
	failGet bool
}

func newMemBackend() *memBackend {
	return &memBackend{rows: make(map[string]model.SheetRecord), actions: make(map[string]bool)}
}

func (b *memBackend) Create(_ context.Context, rec *model.SheetRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows[rec.ID] = *rec
	return nil
}

func (b *memBackend) Get(_ context.Context, id string) (*model.SheetRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGet {
		return nil, errors.New("connection refused")
	}
	rec, ok := b.rows[id]
	if !ok {
		return nil, errors.Wrapf(dao.ErrSheetNotFound, "sheet %s", id)
	}
	return &rec, nil
}

func (b *memBackend) Mutate(_ context.Context, id string, fn func(rec *model.SheetRecord) error) (*model.SheetRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.rows[id]
	if !ok {
		return nil, errors.Wrapf(dao.ErrSheetNotFound, "sheet %s", id)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	b.rows[id] = rec
	return &rec, nil
}

// 快照缓存始终未命中
func (b *memBackend) GetSnapshot(context.Context, string) (*model.SheetRecord, error) {
	return nil, nil
}

func (b *memBackend) SetSnapshot(context.Context, *model.SheetRecord) error { return nil }

func (b *memBackend) Invalidate(context.Context, string, int64) error { return nil }

func (b *memBackend) MarkAction(_ context.Context, sheetID, actionID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := sheetID + "/" + actionID
	if b.actions[key] {
		return false, nil
	}
	b.actions[key] = true
	return true, nil
}

func (b *memBackend) ReleaseAction(_ context.Context, sheetID, actionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.actions, sheetID+"/"+actionID)
	return nil
}

func (b *memBackend) WithSheetLock(_ context.Context, _ string, fn func() error) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return fn()
}

type captured struct {
	mu   sync.Mutex
	errs []error
}

func (c *captured) CaptureError(_ context.Context, err error, _ map[string]string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
	return "event"
}

type testServer struct {
	engine   *gin.Engine
	backend  *memBackend
	reporter *captured
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validator.Init(Rules()...))

	m, err := metrics.New(nil)
	require.NoError(t, err)
	t.Cleanup(m.Stop)

	var (
		mu sync.Mutex
		n  int
	)
	ids := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "sheet-" + strconv.Itoa(n), nil
	}

	backend := newMemBackend()
	svc := service.NewSheetService(backend, backend, journal.Noop(), m, logger.NewNoop(), service.WithIDGenerator(ids))
	reporter := &captured{}

	engine := gin.New()
	NewSheetHandler(svc, reporter, logger.NewNoop()).Register(engine)
	return &testServer{engine: engine, backend: backend, reporter: reporter}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}
