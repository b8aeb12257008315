package recipe_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/reelrecipes/cmd/server/handlers/common"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

type fakeQueries struct {
	recipes map[int64]*db.Recipe
	videos  map[int64]*db.Video
}

func (f *fakeQueries) ListRecipes(context.Context) ([]*db.ListRecipesRow, error) {
	var out []*db.ListRecipesRow
	for id := int64(1); id <= int64(len(f.recipes)); id++ {
		r := f.recipes[id]
		out = append(out, &db.ListRecipesRow{ID: r.ID, Title: r.Title, VideoID: r.VideoID})
	}
	return out, nil
}

func (f *fakeQueries) GetRecipe(_ context.Context, id int64) (*db.Recipe, error) {
	if r, ok := f.recipes[id]; ok {
		return r, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQueries) GetVideo(_ context.Context, id int64) (*db.Video, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQueries) GetVideoByExternalID(context.Context, string) (*db.Video, error) {
	return nil, pgx.ErrNoRows
}

func newQueries() *fakeQueries {
	return &fakeQueries{
		recipes: map[int64]*db.Recipe{
			1: {ID: 1, VideoID: 5, Title: "Soup", Ingredients: []string{"water"}, Instructions: []string{"boil"}},
		},
		videos: map[int64]*db.Video{
			5: {ID: 5, ExternalID: "ABC123", SourceURL: "https://example.com/reel/ABC123/"},
		},
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = common.NewValidator()
	return e
}

func serve(e *echo.Echo, h echo.HandlerFunc, req *http.Request, params ...string) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	err := h(c)
	return rec, err
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
}

func TestHandleCreate(t *testing.T) {
	env := &pipeline.Env{Retries: pipeline.DefaultRetryPolicy()}
	store := queue.NewMemoryStore()
	h := HandleCreate(env, store)
	e := newEcho()

	req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(`{"reel_url":"https://example.com/reel/ABC123/"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, err := serve(e, h, req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body common.EnqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "fetch_reel:ABC123", body.UniqueKey)
	require.False(t, body.Duplicate)
	require.NotZero(t, body.TaskID)

	// Same reel again as a form post, before the first fetch ran.
	form := url.Values{"reel_url": {"https://example.com/reel/ABC123/?utm_source=share"}}
	req = httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec, err = serve(e, h, req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Duplicate)

	require.Len(t, store.Tasks(), 1)
}

func TestHandleCreate_Rejects(t *testing.T) {
	env := &pipeline.Env{Retries: pipeline.DefaultRetryPolicy()}
	store := queue.NewMemoryStore()
	h := HandleCreate(env, store)
	e := newEcho()

	for _, body := range []string{`{"reel_url":"https://example.com/about"}`, `{"reel_url":"  "}`, `{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/recipes", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		_, err := serve(e, h, req)
		requireStatus(t, err, http.StatusBadRequest)
	}
	require.Empty(t, store.Tasks())
}

func TestHandleIndex(t *testing.T) {
	e := newEcho()
	h := HandleIndex(newQueries())

	req := httptest.NewRequest(http.MethodGet, "/recipes", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec, err := serve(e, h, req)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":1,"title":"Soup","video_id":5,"generated_at":null}]`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/recipes", nil)
	req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	rec, err = serve(e, h, req)
	require.NoError(t, err)
	require.Contains(t, rec.Body.String(), `href="/recipes/1"`)

	empty := HandleIndex(&fakeQueries{})
	req = httptest.NewRequest(http.MethodGet, "/recipes", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec, err = serve(e, empty, req)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleShow(t *testing.T) {
	e := newEcho()
	h := HandleShow(newQueries())

	req := httptest.NewRequest(http.MethodGet, "/recipes/1", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec, err := serve(e, h, req, "id", "1")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Soup", got["title"])
	require.Equal(t, "ABC123", got["video"].(map[string]any)["external_id"])

	req = httptest.NewRequest(http.MethodGet, "/recipes/1", nil)
	rec, err = serve(e, h, req, "id", "1")
	require.NoError(t, err)
	require.Contains(t, rec.Body.String(), "<h1>Soup</h1>")
	require.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	require.Contains(t, rec.Body.String(), "<title>Soup</title>")
	require.Contains(t, rec.Body.String(), "<li>water</li>")

	_, err = serve(e, h, httptest.NewRequest(http.MethodGet, "/recipes/9", nil), "id", "9")
	requireStatus(t, err, http.StatusNotFound)

	_, err = serve(e, h, httptest.NewRequest(http.MethodGet, "/recipes/x", nil), "id", "x")
	requireStatus(t, err, http.StatusBadRequest)
}
