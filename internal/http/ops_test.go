package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dict-relay-bot/internal/common/errors"
	dictdomain "dict-relay-bot/internal/domain/dictionary"
	udomain "dict-relay-bot/internal/domain/user"

	_ "github.com/lib/pq"
)

type stubUserRepo struct {
	total, banned int
	countErr      error
}

func (s stubUserRepo) Upsert(context.Context, int64, udomain.Profile) (*udomain.User, error) {
	return nil, nil
}
func (s stubUserRepo) GetByID(context.Context, int64) (*udomain.User, error)       { return nil, nil }
func (s stubUserRepo) GetByThreadID(context.Context, int64) (*udomain.User, error) { return nil, nil }
func (s stubUserRepo) SetThreadID(context.Context, int64, int64) (bool, error)     { return false, nil }
func (s stubUserRepo) SetBanned(context.Context, int64, bool) (bool, error)        { return false, nil }
func (s stubUserRepo) List(context.Context) ([]udomain.User, error)                { return nil, nil }
func (s stubUserRepo) Count(context.Context) (int, int, error) {
	return s.total, s.banned, s.countErr
}

type stubDictRepo struct {
	entries int
}

func (s stubDictRepo) Add(context.Context, string, string) error        { return nil }
func (s stubDictRepo) Lookup(context.Context, string) (string, error)   { return "", nil }
func (s stubDictRepo) Delete(context.Context, string) (bool, error)     { return false, nil }
func (s stubDictRepo) List(context.Context) ([]dictdomain.Entry, error) { return nil, nil }
func (s stubDictRepo) Count(context.Context) (int, error)               { return s.entries, nil }

// unreachableDB opens a lazy handle; no connection is made until a ping.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://localhost:1/none?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func serve(t *testing.T, srv *OpsServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewOpsServer(":0", unreachableDB(t), nil, stubUserRepo{}, stubDictRepo{}, false)

	rec := serve(t, srv, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dict-relay-bot", body["service"])
}

func TestReadyzUnreadyWithoutPostgres(t *testing.T) {
	srv := NewOpsServer(":0", unreachableDB(t), nil, stubUserRepo{}, stubDictRepo{}, false)

	rec := serve(t, srv, "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unready", body["status"])
	assert.Equal(t, "postgres unavailable", body["error"])
}

func TestStats(t *testing.T) {
	srv := NewOpsServer(":0", unreachableDB(t), nil,
		stubUserRepo{total: 7, banned: 2}, stubDictRepo{entries: 120}, false)

	rec := serve(t, srv, "/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 7, body["users"])
	assert.EqualValues(t, 2, body["banned_users"])
	assert.EqualValues(t, 120, body["dictionary_entries"])
}

func TestStatsCountFailure(t *testing.T) {
	srv := NewOpsServer(":0", unreachableDB(t), nil,
		stubUserRepo{countErr: apperrors.NewDatabaseError("count users", assert.AnError)},
		stubDictRepo{}, false)

	rec := serve(t, srv, "/stats")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
