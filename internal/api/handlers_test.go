package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EmpoweredVote/geobase/internal/config"
	"github.com/EmpoweredVote/geobase/internal/db"
	"github.com/EmpoweredVote/geobase/internal/middleware"
	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminToken = "let-me-in"

type testServer struct {
	store *ranges.Store
	h     http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb, err := db.Open(config.Database{URL: "sqlite://" + filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	store, err := ranges.New(ranges.Config{Conn: db.NewConn(gdb), Table: "ip_ranges", Decode: true})
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	return &testServer{
		store: store,
		h:     middleware.RequestID(SetupRoutes(NewHandler(store), string(hash))),
	}
}

func (s *testServer) do(t *testing.T, method, target, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	city := "Testville"
	wide := "Wide"
	require.NoError(t, s.store.Insert(ctx, ranges.Record{IStart: 167772160, IEnd: 167772415, City: &city}))
	require.NoError(t, s.store.Insert(ctx, ranges.Record{IStart: 167772160, IEnd: 184549375, City: &wide}))
}

func TestLookupHandler(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/lookup/10.0.0.5", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Server-Timing"), "lookup;dur=")

	got := decode[[]ranges.Record](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "Testville", *got[0].City)
	assert.Equal(t, "10.0.0.0", got[0].Start)

	rec = s.do(t, http.MethodGet, "/lookup/8.8.8.8", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/lookup/10.0.0.256", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.NotEmpty(t, body.RequestID)
}

func TestBestHandler(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/lookup/10.0.1.1/best", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wide", *decode[ranges.Record](t, rec).City)

	rec = s.do(t, http.MethodGet, "/lookup/8.8.8.8/best", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntersectionsHandler(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodGet, "/ranges?start=10.0.0.0&end=10.255.255.255&order=desc", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]ranges.Record](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "Wide", *got[0].City)

	rec = s.do(t, http.MethodGet, "/ranges?start=11.0.0.0", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/ranges?start=10.0.0.0&order=sideways", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/ranges", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRangeCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/ranges", `{"istart":1,"iend":9,"city":"Nine"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/ranges", `{"istart":1,"iend":9,"city":"Nine"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ranges.Record](t, rec)
	assert.Equal(t, "0.0.0.1", created.Start)
	assert.Equal(t, "0.0.0.9", created.End)

	rec = s.do(t, http.MethodPost, "/ranges", `{"istart":1,"iend":9}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/ranges", `{"istart":9,"iend":1}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/ranges", `{"istart":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/ranges/1/9", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nine", *decode[ranges.Record](t, rec).City)

	rec = s.do(t, http.MethodPatch, "/ranges/1/9", `{"city":"Renamed","latitude":1.5}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[ranges.Record](t, rec)
	assert.Equal(t, "Renamed", *updated.City)
	assert.InDelta(t, 1.5, *updated.Latitude, 1e-9)

	rec = s.do(t, http.MethodPatch, "/ranges/1/9", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/ranges/2/9", `{"city":"x"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/ranges/1/9", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/ranges/1/9", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/ranges/1/9", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/ranges/x/9", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
