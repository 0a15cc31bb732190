package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// Do executes a request against a handler.
func Do(t *testing.T, handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Form builds a urlencoded POST request.
func Form(target string, values map[string]string) *http.Request {
	form := url.Values{}
	for key, value := range values {
		form.Set(key, value)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// MustStatus asserts the response status code.
func MustStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

// MustHeader asserts a response header value.
func MustHeader(t *testing.T, rec *httptest.ResponseRecorder, key, value string) {
	t.Helper()
	if got := rec.Header().Get(key); got != value {
		t.Fatalf("expected header %s=%q, got %q", key, value, got)
	}
}

// MustRedirect asserts a 303 to location.
func MustRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	MustStatus(t, rec, http.StatusSeeOther)
	MustHeader(t, rec, "Location", location)
}

// MustContain asserts the response body contains text.
func MustContain(t *testing.T, rec *httptest.ResponseRecorder, text string) {
	t.Helper()
	if !strings.Contains(rec.Body.String(), text) {
		t.Fatalf("expected body to contain %q, got %s", text, rec.Body.String())
	}
}

// DecodeJSON decodes a JSON response into dst.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

// Cookies copies response cookies onto the next request.
func Cookies(rec *httptest.ResponseRecorder, next *http.Request) *http.Request {
	for _, cookie := range rec.Result().Cookies() {
		next.AddCookie(cookie)
	}
	return next
}

// AccessToken signs a throwaway JWT carrying claims.
func AccessToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
