package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest is one call received by a fake service.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// Responder scripts the fake's answer: an HTTP status and a JSON payload.
// A nil payload writes raw as the body instead.
type Responder func(req RecordedRequest) (status int, payload any, raw string)

// FakeService is an httptest server that records JSON requests.
type FakeService struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	respond  Responder
}

// NewFakeService starts a fake closed at test cleanup.
func NewFakeService(t *testing.T, respond Responder) *FakeService {
	t.Helper()
	fake := &FakeService{respond: respond}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)
	return fake
}

// Respond replaces the responder.
func (f *FakeService) Respond(respond Responder) {
	f.mu.Lock()
	f.respond = respond
	f.mu.Unlock()
}

// Requests returns the calls received so far.
func (f *FakeService) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

func (f *FakeService) serve(w http.ResponseWriter, r *http.Request) {
	recorded := RecordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&recorded.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded)
	respond := f.respond
	f.mu.Unlock()

	status, payload, raw := http.StatusOK, any(nil), ""
	if respond != nil {
		status, payload, raw = respond(recorded)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
		return
	}
	_, _ = w.Write([]byte(raw))
}

// Envelope builds an identity service response body.
func Envelope(code string, messages []string, result any) map[string]any {
	return map[string]any{"code": code, "message": messages, "result": result}
}

// Tokens builds an authenticate result.
func Tokens(access, refresh string) map[string]string {
	return map[string]string{"accessToken": access, "refreshToken": refresh}
}

// Reply answers every call with status and payload.
func Reply(status int, payload any) Responder {
	return func(RecordedRequest) (int, any, string) { return status, payload, "" }
}

// ReplyRaw answers every call with status and a raw body.
func ReplyRaw(status int, body string) Responder {
	return func(RecordedRequest) (int, any, string) { return status, nil, body }
}
