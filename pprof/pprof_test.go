package pprof

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func serve(r http.Handler, remote, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterServesLoopbackOnly(t *testing.T) {
	r := chi.NewRouter()
	Register(r)

	assert.Equal(t, http.StatusOK, serve(r, "127.0.0.1:5000", "/debug/pprof/").Code)
	assert.Equal(t, http.StatusOK, serve(r, "[::1]:5000", "/debug/pprof/goroutine?debug=1").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "10.0.0.8:5000", "/debug/pprof/").Code)
}

func TestRegisterWithPrefixAndAuthorizer(t *testing.T) {
	r := chi.NewRouter()
	Register(r, WithPrefix("ops/profile/"), WithAuthorizer(func(*http.Request) bool { return true }))

	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.8:5000", "/ops/profile/heap?debug=1").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "127.0.0.1:5000", "/debug/pprof/").Code)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "/debug", normalizePrefix("debug/"))
	assert.Equal(t, "/", normalizePrefix("/"))
	assert.Equal(t, "", normalizePrefix(""))
}
