package sheetsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lk2023060901/partysheet/pkg/checksum"
	"github.com/lk2023060901/partysheet/pkg/sheet"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *Config {
	return &Config{
		BaseURL:           "http://gateway.test",
		RefetchInterval:   5 * time.Second,
		SuppressionBuffer: 2 * time.Second,
		FetchTimeout:      time.Second,
		SendTimeout:       time.Second,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// fixture A 携带 X、Y，B 空手
func fixture() sheet.Sheet {
	return sheet.Sheet{
		ID:   "s1",
		Name: "Party",
		Characters: []sheet.Character{
			{ID: "A", Name: "Aria"},
			{ID: "B", Name: "Bram"},
		},
		Items: []sheet.Item{
			{ID: "X", Name: "Rope", Quantity: 1, Weight: d("10"), CarriedByCharacterID: sheet.Ref("A")},
			{ID: "Y", Name: "Torch", Quantity: 3, Weight: d("1"), CarriedByCharacterID: sheet.Ref("A")},
		},
	}
}

func newTestStore(t *testing.T, s sheet.Sheet, clock *fakeClock, opts ...StoreOption) *Store {
	t.Helper()
	opts = append([]StoreOption{WithClock(clock.Now)}, opts...)
	st, err := NewStore(s, testConfig(), opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

// fakeGateway 内存网关，可注入失败
type fakeGateway struct {
	mu       sync.Mutex
	snap     Snapshot
	fetchErr error
	sendErr  error
	sent     []sheet.Action
	release  chan struct{}
}

func (g *fakeGateway) Fetch(ctx context.Context, sheetID, etag string) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return Snapshot{}, g.fetchErr
	}
	return Snapshot{Sheet: g.snap.Sheet.Clone(), ETag: g.snap.ETag}, nil
}

func (g *fakeGateway) Send(ctx context.Context, sheetID string, a sheet.Action) (SendResult, error) {
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, a)
	if g.sendErr != nil {
		return SendResult{}, g.sendErr
	}
	return SendResult{Revision: int64(len(g.sent))}, nil
}

func (g *fakeGateway) setSnapshot(s sheet.Sheet) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = Snapshot{Sheet: s}
}

func (g *fakeGateway) sentActions() []sheet.Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sheet.Action(nil), g.sent...)
}

type captured struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (c *captured) CaptureError(ctx context.Context, err error, tags map[string]string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
	return "evt"
}

func (c *captured) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// memServer 进程内持久化网关，服务端用 sheet.Apply 应用动作
type memServer struct {
	mu        sync.Mutex
	sheets    map[string]sheet.Sheet
	revisions map[string]int64
	seen      map[string]bool
	nextID    int
	notMod    int
}

func newMemServer(t *testing.T) (*memServer, *httptest.Server) {
	t.Helper()
	m := &memServer{
		sheets:    make(map[string]sheet.Sheet),
		revisions: make(map[string]int64),
		seen:      make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sheets", m.create)
	mux.HandleFunc("GET /sheets/{id}", m.get)
	mux.HandleFunc("PATCH /sheets/{id}", m.patch)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return m, srv
}

func (m *memServer) genID() string {
	m.nextID++
	return "srv-" + strconv.Itoa(m.nextID)
}

func (m *memServer) put(s sheet.Sheet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[s.ID] = s.Clone().Normalize()
}

func (m *memServer) sheet(id string) sheet.Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheets[id].Clone()
}

func (m *memServer) notModified() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notMod
}

func writeEnvelope(w http.ResponseWriter, status, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "message": msg, "data": data})
}

func (m *memServer) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	m.mu.Lock()
	id := m.genID()
	m.sheets[id] = sheet.Sheet{ID: id, Name: in.Name}.Normalize()
	m.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, 0, "ok", map[string]string{"id": id})
}

func (m *memServer) get(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	s, ok := m.sheets[r.PathValue("id")]
	m.mu.Unlock()
	if !ok {
		writeEnvelope(w, http.StatusNotFound, 40004, "sheet not found", nil)
		return
	}

	body, _ := json.Marshal(s)
	etag := checksum.ETag(body)
	if checksum.MatchETag(r.Header.Get("If-None-Match"), etag) {
		m.mu.Lock()
		m.notMod++
		m.mu.Unlock()
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (m *memServer) patch(w http.ResponseWriter, r *http.Request) {
	var a sheet.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 40001, err.Error(), nil)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := r.PathValue("id")
	s, ok := m.sheets[id]
	if !ok {
		writeEnvelope(w, http.StatusNotFound, 40004, "sheet not found", nil)
		return
	}
	if a.ID != "" && m.seen[a.ID] {
		writeEnvelope(w, http.StatusOK, 0, "ok", map[string]any{"duplicate": true})
		return
	}

	a = sheet.AssignIDs(s, a, m.genID)
	next, err := sheet.Apply(s, a)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, 40001, err.Error(), nil)
		return
	}
	m.sheets[id] = next.Normalize()
	m.revisions[id]++
	m.seen[a.ID] = true
	writeEnvelope(w, http.StatusOK, 0, "ok", map[string]any{"revision": m.revisions[id]})
}
