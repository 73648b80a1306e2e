package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/logging"
	"github.com/JonMunkholm/pokedex/internal/ratelimit"
	"github.com/JonMunkholm/pokedex/internal/store/memory"
)

const dataset = `[
  {"Name":"Bulbasaur","Type 1":"Grass","Type 2":"Poison","Total":318,"HP":45,"Attack":49,"Defense":49,"Sp. Atk":65,"Sp. Def":65,"Speed":45,"Generation":1,"Legendary":false},
  {"Name":"Charmander","Type 1":"Fire","Type 2":null,"Total":309,"HP":39,"Attack":52,"Defense":43,"Sp. Atk":60,"Sp. Def":50,"Speed":65,"Generation":1,"Legendary":false}
]`

func validBody(name string) map[string]any {
	return map[string]any{
		"name": name, "type_1": "Water", "type_2": nil, "total": 314,
		"hp": 44, "attack": 48, "defense": 65, "sp_atk": 50, "sp_def": 64,
		"speed": 43, "generation": 1, "legendary": false,
	}
}

type ServerSuite struct {
	suite.Suite
	store   *memory.Store
	limiter *core.ImportLimiter
	server  *Server
	payload string
	status  int
	remote  *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.payload = dataset
	s.status = http.StatusOK
	s.remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.payload))
	}))

	s.store = memory.New()
	s.limiter = core.NewImportLimiter(1, 50*time.Millisecond)
	source := core.NewHTTPSource(s.remote.URL, 5*time.Second, 1<<20)
	importer := core.NewImporter(s.store, source, s.limiter, time.Minute)
	s.server = NewServer(core.NewService(s.store, importer), Options{})
}

func (s *ServerSuite) TearDownTest() {
	s.remote.Close()
}

func (s *ServerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.server.Router().ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ServerSuite) errorBody(rec *httptest.ResponseRecorder) ErrorResponse {
	var resp ErrorResponse
	s.decode(rec, &resp)
	return resp
}

func (s *ServerSuite) create(name string) core.Record {
	rec := s.do(http.MethodPost, "/records", validBody(name))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var out core.Record
	s.decode(rec, &out)
	return out
}

func (s *ServerSuite) TestCreate() {
	first := s.create("Squirtle")
	second := s.create("Wartortle")

	s.Equal(int64(1), first.ID)
	s.Equal(int64(2), second.ID)
	s.Equal("Squirtle", first.Name)
	s.Nil(first.Type2)
}

func (s *ServerSuite) TestCreate_DefaultsGeneration() {
	body := validBody("Squirtle")
	delete(body, "generation")

	rec := s.do(http.MethodPost, "/records", body)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var out core.Record
	s.decode(rec, &out)
	s.Equal(core.DefaultGeneration, out.Generation)
}

func (s *ServerSuite) TestCreate_Validation() {
	body := validBody("S")
	body["speed"] = 4
	delete(body, "hp")

	rec := s.do(http.MethodPost, "/records", body)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	resp := s.errorBody(rec)
	s.Equal("VAL001", resp.Code)
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	s.True(fields["name"])
	s.True(fields["speed"])
	s.True(fields["hp"])
	s.Equal(0, s.store.Len())
}

func (s *ServerSuite) TestCreate_WrongType() {
	body := validBody("Squirtle")
	body["hp"] = "lots"

	rec := s.do(http.MethodPost, "/records", body)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("hp", s.errorBody(rec).Fields[0].Field)
}

func (s *ServerSuite) TestCreate_MalformedBody() {
	rec := s.do(http.MethodPost, "/records", `{"name":`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VAL003", s.errorBody(rec).Code)

	rec = s.do(http.MethodPost, "/records", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestGet() {
	created := s.create("Squirtle")

	rec := s.do(http.MethodGet, fmt.Sprintf("/records/%d", created.ID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var got core.Record
	s.decode(rec, &got)
	s.Equal(created, got)
}

func (s *ServerSuite) TestNotFoundMessages() {
	tests := []struct {
		method string
		body   any
		want   string
	}{
		{http.MethodGet, nil, "Pokemon not found.."},
		{http.MethodPut, validBody("Squirtle"), "Pokemon with this id does not exist."},
		{http.MethodPatch, map[string]any{"hp": 10}, "Pokemon with id 42 doesn't exist..."},
		{http.MethodDelete, nil, "Pokemon not found"},
	}

	for _, tt := range tests {
		s.Run(tt.method, func() {
			rec := s.do(tt.method, "/records/42", tt.body)
			s.Equal(http.StatusNotFound, rec.Code)

			resp := s.errorBody(rec)
			s.Equal(tt.want, resp.Error)
			s.Equal("REC001", resp.Code)
		})
	}
}

func (s *ServerSuite) TestNonIntegerID() {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := s.do(method, "/records/abc", validBody("Squirtle"))
		s.Equal(http.StatusUnprocessableEntity, rec.Code, method)
		s.Equal("id", s.errorBody(rec).Fields[0].Field, method)
	}
}

func (s *ServerSuite) TestReplace() {
	created := s.create("Squirtle")

	body := validBody("Blastoise")
	body["type_2"] = "Steel"
	rec := s.do(http.MethodPut, fmt.Sprintf("/records/%d", created.ID), body)
	s.Require().Equal(http.StatusAccepted, rec.Code)

	var got core.Record
	s.decode(rec, &got)
	s.Equal(created.ID, got.ID)
	s.Equal("Blastoise", got.Name)
	s.Require().NotNil(got.Type2)
	s.Equal("Steel", *got.Type2)
}

func (s *ServerSuite) TestReplace_RequiresFullBody() {
	created := s.create("Squirtle")

	rec := s.do(http.MethodPut, fmt.Sprintf("/records/%d", created.ID), map[string]any{"name": "Blastoise"})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerSuite) TestPatch() {
	body := validBody("Squirtle")
	body["type_2"] = "Ice"
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/records", body).Code)

	rec := s.do(http.MethodPatch, "/records/1", map[string]any{"hp": 99, "type_2": nil})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var got core.Record
	s.decode(rec, &got)
	s.Equal(99, got.HP)
	s.Nil(got.Type2)
	s.Equal("Squirtle", got.Name)
	s.Equal(48, got.Attack)
}

func (s *ServerSuite) TestPatch_Invalid() {
	s.create("Squirtle")

	rec := s.do(http.MethodPatch, "/records/1", map[string]any{"speed": 500})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPatch, "/records/1", map[string]any{"name": nil})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerSuite) TestPatch_Empty() {
	created := s.create("Squirtle")

	rec := s.do(http.MethodPatch, "/records/1", map[string]any{})
	s.Require().Equal(http.StatusOK, rec.Code)

	var got core.Record
	s.decode(rec, &got)
	s.Equal(created, got)
}

func (s *ServerSuite) TestDelete() {
	s.create("Squirtle")

	rec := s.do(http.MethodDelete, "/records/1", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.String())

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/records/1", nil).Code)
}

func (s *ServerSuite) TestList() {
	for _, name := range []string{"Squirtle", "Wartortle", "Blastoise"} {
		s.create(name)
	}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"trailing slash", "/records/", []string{"Squirtle", "Wartortle", "Blastoise"}},
		{"no slash", "/records", []string{"Squirtle", "Wartortle", "Blastoise"}},
		{"desc", "/records?sort_order=desc", []string{"Blastoise", "Wartortle", "Squirtle"}},
		{"paged", "/records?limit=2&page=2", []string{"Blastoise"}},
		{"page below one", "/records?limit=2&page=0", []string{"Squirtle", "Wartortle"}},
		{"zero limit", "/records?limit=0", []string{}},
		{"keyword", "/records?keyword=TORT", []string{"Wartortle"}},
		{"keyword on column", "/records?search_column=type_1&keyword=wat", []string{"Squirtle", "Wartortle", "Blastoise"}},
		{"past the end", "/records?page=9", []string{}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodGet, tt.target, nil)
			s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

			var got []core.Record
			s.decode(rec, &got)
			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Name)
			}
			s.Equal(tt.want, names)
		})
	}
}

func (s *ServerSuite) TestList_Errors() {
	rec := s.do(http.MethodGet, "/records?search_column=color&keyword=red", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid column name: color", s.errorBody(rec).Error)

	// search column is only checked when there is a keyword
	rec = s.do(http.MethodGet, "/records?search_column=color", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/records?limit=ten", nil)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal("limit", s.errorBody(rec).Fields[0].Field)
}

func (s *ServerSuite) TestImport() {
	s.create("Squirtle")

	rec := s.do(http.MethodPost, "/records/import", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp ImportResponse
	s.decode(rec, &resp)
	s.Equal("Data successfully stored in the database", resp.Message)
	s.Equal(2, resp.Inserted)
	s.NotEmpty(resp.ImportID)

	got, err := s.store.Get(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal("Charmander", got.Name)
	s.Nil(got.Type2)
}

func (s *ServerSuite) TestImport_SourceFailures() {
	tests := []struct {
		name    string
		status  int
		payload string
		code    string
	}{
		{"upstream error", http.StatusInternalServerError, "oops", "IMP001"},
		{"not json", http.StatusOK, "<html>", "IMP001"},
		{"missing key", http.StatusOK, `[{"Name":"Bulbasaur"}]`, "IMP002"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.status = tt.status
			s.payload = tt.payload

			rec := s.do(http.MethodPost, "/records/import", nil)
			s.Equal(http.StatusBadGateway, rec.Code)

			resp := s.errorBody(rec)
			s.Equal(tt.code, resp.Code)
			s.NotEmpty(resp.Error)
			s.Equal(0, s.store.Len())
		})
	}
}

func (s *ServerSuite) TestImport_Busy() {
	s.Require().True(s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := s.do(http.MethodPost, "/records/import", nil)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("IMP003", s.errorBody(rec).Code)
}

func (s *ServerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp HealthResponse
	s.decode(rec, &resp)
	s.Equal("ok", resp.Status)
	s.Require().NotNil(resp.Imports)
	s.Equal(1, resp.Imports.MaxConcurrent)
}

func (s *ServerSuite) TestBrowse() {
	s.create("Squirtle")
	s.create("Wartortle")

	rec := s.do(http.MethodGet, "/?keyword=war", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	s.Require().NoError(err)
	rows := doc.Find("table.records tbody tr")
	s.Equal(1, rows.Length())
	s.Equal("Wartortle", rows.Find("td.name").Text())
}

func (s *ServerSuite) TestBrowse_Error() {
	rec := s.do(http.MethodGet, "/?search_column=color&keyword=x", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	s.Require().NoError(err)
	s.Equal("Code: VAL002", doc.Find("div.error .error-code").Text())
}

func (s *ServerSuite) TestSecurityHeaders() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
	s.Equal("DENY", rec.Header().Get("X-Frame-Options"))
}

func TestServer_RateLimit(t *testing.T) {
	limiter := ratelimit.NewMemory(1, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })

	srv := NewServer(core.NewService(memory.New(), nil), Options{Limiter: limiter})

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RATE001", resp.Code)
}

func TestServer_ImportNotConfigured(t *testing.T) {
	srv := NewServer(core.NewService(memory.New(), nil), Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/records/import", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_ShutdownWaitsForImports(t *testing.T) {
	limiter := core.NewImportLimiter(1, time.Second)
	importer := core.NewImporter(memory.New(), core.NewHTTPSource("http://127.0.0.1:0", time.Second, 1), limiter, time.Minute)
	srv := NewServer(core.NewService(memory.New(), importer), Options{})

	require.True(t, limiter.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, srv.Shutdown(ctx), context.DeadlineExceeded)

	limiter.Release()
	assert.NoError(t, srv.Shutdown(context.Background()))
}

// faultyStore overrides selected memory store calls.
type faultyStore struct {
	*memory.Store
	ping func(ctx context.Context) error
	get  func(ctx context.Context, id int64) (core.Record, error)
	list func(ctx context.Context, q core.ListQuery) ([]core.Record, error)
}

func (f *faultyStore) Ping(ctx context.Context) error {
	if f.ping != nil {
		return f.ping(ctx)
	}
	return f.Store.Ping(ctx)
}

func (f *faultyStore) Get(ctx context.Context, id int64) (core.Record, error) {
	if f.get != nil {
		return f.get(ctx, id)
	}
	return f.Store.Get(ctx, id)
}

func (f *faultyStore) List(ctx context.Context, q core.ListQuery) ([]core.Record, error) {
	if f.list != nil {
		return f.list(ctx, q)
	}
	return f.Store.List(ctx, q)
}

func TestServer_ImportOutlivesRequestTimeout(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(dataset))
	}))
	t.Cleanup(remote.Close)

	store := memory.New()
	source := core.NewHTTPSource(remote.URL, 5*time.Second, 1<<20)
	importer := core.NewImporter(store, source, core.NewImportLimiter(1, time.Second), time.Minute)
	srv := NewServer(core.NewService(store, importer), Options{RequestTimeout: 100 * time.Millisecond})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/records/import", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, store.Len())
}

func TestServer_ImportTimeout(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(remote.Close)

	store := memory.New()
	source := core.NewHTTPSource(remote.URL, 5*time.Second, 1<<20)
	importer := core.NewImporter(store, source, core.NewImportLimiter(1, time.Second), time.Minute)
	srv := NewServer(core.NewService(store, importer), Options{ImportTimeout: 100 * time.Millisecond})

	start := time.Now()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/records/import", nil))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestServer_RequestTimeoutStillApplies(t *testing.T) {
	store := &faultyStore{
		Store: memory.New(),
		list: func(ctx context.Context, _ core.ListQuery) ([]core.Record, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	srv := NewServer(core.NewService(store, nil), Options{
		RequestTimeout: 50 * time.Millisecond,
		ImportTimeout:  time.Minute,
	})

	start := time.Now()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))
	assert.Less(t, time.Since(start), time.Second)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DB004", resp.Code)
}

func TestServer_HealthUnavailable(t *testing.T) {
	store := &faultyStore{
		Store: memory.New(),
		ping: func(context.Context) error {
			return errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
		},
	}
	srv := NewServer(core.NewService(store, nil), Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "Unable to connect to database (Code: DB002). Please try again in a few moments", resp.Error)
	assert.NotContains(t, resp.Error, "5432")
}

func TestServer_LogsUnmappedErrors(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	store := &faultyStore{
		Store: memory.New(),
		get: func(context.Context, int64) (core.Record, error) {
			return core.Record{}, errors.New("disk on fire")
		},
	}
	srv := NewServer(core.NewService(store, nil), Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/1", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ERR000", resp.Code)
	assert.NotContains(t, resp.Error, "disk on fire")

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e))
		if e["msg"] == "request error" {
			entry = e
		}
	}
	require.NotNil(t, entry, buf.String())
	assert.Equal(t, true, entry["unmapped"])
	assert.Equal(t, "disk on fire", entry["error"])
}
