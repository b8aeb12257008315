package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

type noQueries struct{}

func (noQueries) ListRecipes(context.Context) ([]*db.ListRecipesRow, error) { return nil, nil }
func (noQueries) GetRecipe(context.Context, int64) (*db.Recipe, error)     { return nil, pgx.ErrNoRows }
func (noQueries) GetVideo(context.Context, int64) (*db.Video, error)       { return nil, pgx.ErrNoRows }
func (noQueries) GetVideoByExternalID(context.Context, string) (*db.Video, error) {
	return nil, pgx.ErrNoRows
}

func newTestServer(t *testing.T) (*Webserver, *queue.MemoryStore) {
	store := queue.NewMemoryStore()
	env := &pipeline.Env{StorageDir: t.TempDir(), Retries: pipeline.DefaultRetryPolicy()}
	return NewWebserver(noQueries{}, env, store), store
}

func TestWebserver_Routes(t *testing.T) {
	s, store := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(`{"reel_url":"https://example.com/reel/ABC123/"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	require.Len(t, store.Tasks(), 1)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"state":"pending"`)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recipes/7", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebserver_RejectsBadSubmission(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader("reel_url=https%3A%2F%2Fexample.com%2Fwatch"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid reel url")
	require.Empty(t, store.Tasks())
}
