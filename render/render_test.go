package render

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layout.html":           {Data: []byte(`<main>{{ template "content" . }}</main>`)},
		"home.html":             {Data: []byte(`{{ define "content" }}{{ template "header" . }} {{ upper . }}{{ end }}`)},
		"partials/_header.html": {Data: []byte(`{{ define "header" }}Header{{ end }}`)},
	}
}

func testOptions() Options {
	return Options{
		Layout:   "layout.html",
		Partials: "partials/*.html",
		Funcs:    FuncMap{"upper": func(s string) string { return s + "!" }},
	}
}

func TestRenderWithLayoutAndPartials(t *testing.T) {
	engine, err := NewEngine(testFS(), testOptions())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, http.StatusCreated, "home", "hi"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "<main>Header hi!</main>", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestRenderMissingTemplate(t *testing.T) {
	engine, err := NewEngine(testFS(), testOptions())
	require.NoError(t, err)

	err = engine.Render(httptest.NewRecorder(), http.StatusOK, "missing.html", nil)
	assert.ErrorIs(t, err, http.ErrMissingFile)
}

func TestRenderExecutionErrorWritesNothing(t *testing.T) {
	fsys := fstest.MapFS{"broken.html": {Data: []byte(`before {{ fail }} after`)}}
	engine, err := NewEngine(fsys, Options{Funcs: FuncMap{
		"fail": func() (string, error) { return "", errors.New("lookup failed") },
	}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, http.StatusOK, "broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestRenderReloadPicksUpChanges(t *testing.T) {
	fsys := testFS()
	options := testOptions()
	options.Reload = true
	engine, err := NewEngine(fsys, options)
	require.NoError(t, err)

	fsys["home.html"] = &fstest.MapFile{Data: []byte(`{{ define "content" }}changed{{ end }}`)}
	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, http.StatusOK, "home", nil))
	assert.Equal(t, "<main>changed</main>", rec.Body.String())
}

func TestNewEngineWithoutPages(t *testing.T) {
	_, err := NewEngine(fstest.MapFS{"layout.html": {Data: []byte(`x`)}}, Options{Layout: "layout.html"})
	assert.Error(t, err)
}

func TestWantsJSON(t *testing.T) {
	cases := map[string]bool{
		"application/json":                 true,
		"application/json, text/plain":     true,
		"text/html,application/json;q=0.9": false,
		"text/html":                        false,
		"":                                 false,
	}
	for accept, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", accept)
		assert.Equal(t, want, WantsJSON(req), accept)
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, JSON(rec, http.StatusUnauthorized, map[string]string{"error": "login required"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "{\"error\":\"login required\"}\n", rec.Body.String())
}
