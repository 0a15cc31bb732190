package web

import (
	"bufio"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/logging"
	"github.com/devmarvs/digibank/metrics"
	"github.com/devmarvs/digibank/session"
	"github.com/devmarvs/digibank/testutil"
	"github.com/devmarvs/digibank/web/mocks"
)

const csrfToken = "test-csrf-token"

type WebSuite struct {
	suite.Suite
	fake     *testutil.FakeService
	store    *credstore.MemoryStore
	session  *session.Context
	accounts *mocks.MockAccountService
	metrics  *metrics.Metrics
	server   *Server
	handler  http.Handler
}

func TestWebSuite(t *testing.T) {
	suite.Run(t, new(WebSuite))
}

func (s *WebSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.fake = testutil.NewFakeService(s.T(), nil)
	s.store = credstore.NewMemoryStore()
	s.session = session.New(s.store, session.WithLogger(logging.Discard()))
	s.session.Initialize(context.Background())
	s.accounts = mocks.NewMockAccountService(ctrl)
	s.metrics = metrics.New()

	gateway := identity.New(s.fake.URL, s.store,
		identity.WithLogger(logging.Discard()),
		identity.WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	server, err := New(Options{
		Identity: gateway,
		Accounts: s.accounts,
		Session:  s.session,
		Tokens:   s.store,
		Flash:    flash.New([]byte("flash-test-key")),
		Metrics:  s.metrics,
		Logger:   logging.Discard(),
	})
	s.Require().NoError(err)
	s.server = server
	s.handler = server.Handler()
}

func (s *WebSuite) get(target string, from ...*httptest.ResponseRecorder) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, rec := range from {
		testutil.Cookies(rec, req)
	}
	return testutil.Do(s.T(), s.handler, req)
}

func (s *WebSuite) post(target string, values map[string]string) *httptest.ResponseRecorder {
	values["csrf_token"] = csrfToken
	req := testutil.Form(target, values)
	req.AddCookie(&http.Cookie{Name: "digibank_csrf", Value: csrfToken})
	return testutil.Do(s.T(), s.handler, req)
}

func (s *WebSuite) storedPair() (credstore.TokenPair, error) {
	return s.store.Load(context.Background())
}

// signIn stores a JWT for user 42 and marks the session authenticated.
func (s *WebSuite) signIn() {
	access := testutil.AccessToken(s.T(), jwt.MapClaims{"sub": "alice", "userId": 42})
	s.Require().NoError(s.store.Store(context.Background(), credstore.NewTokenPair(access, "R1")))
	s.session.Login("alice")
}

func (s *WebSuite) TestLoginStoresTokensAndOpensDashboard() {
	s.fake.Respond(testutil.Reply(http.StatusOK, testutil.Envelope("200", nil, testutil.Tokens("A1", "R1"))))

	rec := s.post("/login", map[string]string{"username": "alice", "password": "pw123"})
	testutil.MustRedirect(s.T(), rec, "/dashboard")

	pair, err := s.storedPair()
	s.Require().NoError(err)
	s.Equal("A1", pair.Access.Unveil())
	s.Equal("R1", pair.Refresh.Unveil())
	s.True(s.session.Authenticated())
	s.Equal("alice", s.session.State().Identity)

	dashboard := s.get("/dashboard")
	testutil.MustStatus(s.T(), dashboard, http.StatusOK)
	testutil.MustContain(s.T(), dashboard, "Your accounts")
	testutil.MustContain(s.T(), dashboard, AccountsUnavailable)
}

func (s *WebSuite) TestLoginHonoursLocalNext() {
	s.fake.Respond(testutil.Reply(http.StatusOK, testutil.Envelope("200", nil, testutil.Tokens("A1", "R1"))))

	rec := s.post("/login", map[string]string{"username": "alice", "password": "pw123", "next": "//evil.example"})
	testutil.MustRedirect(s.T(), rec, "/dashboard")
}

func (s *WebSuite) TestLoginRejectedLeavesSessionUnchanged() {
	s.fake.Respond(testutil.Reply(http.StatusUnauthorized, testutil.Envelope("401", []string{"Invalid credentials"}, nil)))

	rec := s.post("/login", map[string]string{"username": "alice", "password": "wrong"})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Invalid credentials")
	testutil.MustContain(s.T(), rec, `value="alice"`)

	_, err := s.storedPair()
	s.ErrorIs(err, credstore.ErrNotFound)
	s.False(s.session.Authenticated())
}

func (s *WebSuite) TestLoginRequiresFields() {
	rec := s.post("/login", map[string]string{"username": "alice"})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Password is required")
	s.Empty(s.fake.Requests())
}

func (s *WebSuite) TestRegisterRedirectsToLoginWithoutAuthenticating() {
	registration := map[string]any{"userId": 7, "userName": "alice", "email": "alice@example.com", "status": "ACTIVE"}
	s.fake.Respond(testutil.Reply(http.StatusCreated, testutil.Envelope("201", nil, registration)))

	rec := s.post("/register", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "Secret123",
		"confirmPassword": "Secret123",
	})
	testutil.MustRedirect(s.T(), rec, "/login")
	s.False(s.session.Authenticated())
	_, err := s.storedPair()
	s.ErrorIs(err, credstore.ErrNotFound)

	body := s.fake.Requests()[0].Body
	s.Equal("alice", body["username"])
	s.Equal("alice@example.com", body["email"])

	login := s.get("/login", rec)
	testutil.MustStatus(s.T(), login, http.StatusOK)
	testutil.MustContain(s.T(), login, RegistrationSucceeded)
}

func (s *WebSuite) TestRegisterPasswordMismatch() {
	rec := s.post("/register", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "Secret123",
		"confirmPassword": "Secret124",
	})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Passwords do not match")
	s.NotContains(rec.Body.String(), "Secret123")
	s.Empty(s.fake.Requests())
}

func (s *WebSuite) TestRegisterRejectedShowsServiceMessage() {
	s.fake.Respond(testutil.Reply(http.StatusBadRequest, testutil.Envelope("400", []string{"Username already exists"}, nil)))

	rec := s.post("/register", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        "Secret123",
		"confirmPassword": "Secret123",
	})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Username already exists")
}

func (s *WebSuite) TestFederatedTransportFailure() {
	s.fake.Respond(testutil.ReplyRaw(http.StatusBadGateway, "<html>upstream down</html>"))

	rec := s.post("/login/federated", map[string]string{"credential": "google-id-token"})
	testutil.MustStatus(s.T(), rec, http.StatusBadGateway)
	testutil.MustContain(s.T(), rec, identity.GenericFailureMessage)
	s.False(s.session.Authenticated())

	body := s.fake.Requests()[0].Body
	s.Equal("google-id-token", body["snsAccessToken"])
	s.Equal(float64(identity.AuthGoogle), body["type"])
}

func (s *WebSuite) TestFederatedLoginSuccess() {
	access := testutil.AccessToken(s.T(), jwt.MapClaims{"sub": "alice@gmail.com"})
	s.fake.Respond(testutil.Reply(http.StatusOK, testutil.Envelope("200", nil, testutil.Tokens(access, "R2"))))

	rec := s.post("/login/federated", map[string]string{"credential": "google-id-token"})
	testutil.MustRedirect(s.T(), rec, "/dashboard")
	s.Equal("alice@gmail.com", s.session.State().Identity)
}

func (s *WebSuite) TestFederatedRequiresCredential() {
	rec := s.post("/login/federated", map[string]string{})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, MissingFederatedToken)
	s.Empty(s.fake.Requests())
}

func (s *WebSuite) TestDuplicateSubmissionRejected() {
	release, err := s.server.locks.Get(formLogin).TryAcquire()
	s.Require().NoError(err)
	defer release()

	rec := s.post("/login", map[string]string{"username": "alice", "password": "pw123"})
	testutil.MustStatus(s.T(), rec, http.StatusConflict)
	testutil.MustContain(s.T(), rec, BusyMessage)
	s.Empty(s.fake.Requests())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.SubmissionsRejected.WithLabelValues(formLogin)))
}

func (s *WebSuite) TestGuardRedirectsAnonymousDashboard() {
	rec := s.get("/dashboard")
	testutil.MustRedirect(s.T(), rec, "/login?next=%2Fdashboard")
}

func (s *WebSuite) TestLoginViewRedirectsWhenAuthenticated() {
	s.signIn()
	testutil.MustRedirect(s.T(), s.get("/login"), "/dashboard")
}

func (s *WebSuite) TestDashboardListsAccounts() {
	s.signIn()
	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return([]accounts.Account{
		{AccountNumber: "ACC-42", AccountType: accounts.TypeSavings, Balance: "10.5", Currency: "EUR", Status: accounts.StatusActive},
	}, nil)

	rec := s.get("/dashboard")
	testutil.MustStatus(s.T(), rec, http.StatusOK)
	testutil.MustContain(s.T(), rec, "ACC-42")
	testutil.MustContain(s.T(), rec, "alice")
}

func (s *WebSuite) TestCreateAccount() {
	s.signIn()
	s.accounts.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req accounts.CreateRequest) (accounts.Account, error) {
			s.Equal(int64(42), req.UserID)
			s.Equal("Holiday", req.AccountName)
			s.Equal("100.50", req.Balance)
			return accounts.Account{AccountNumber: "ACC-1"}, nil
		})

	rec := s.post("/dashboard/accounts", map[string]string{
		"accountName": "Holiday",
		"accountType": "savings",
		"balance":     "100.50",
		"currency":    "EUR",
		"status":      "active",
	})
	testutil.MustRedirect(s.T(), rec, "/dashboard")

	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return(nil, nil)
	dashboard := s.get("/dashboard", rec)
	testutil.MustContain(s.T(), dashboard, "Account created successfully for Holiday!")
}

func (s *WebSuite) TestCreateAccountValidation() {
	s.signIn()
	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return(nil, nil)

	rec := s.post("/dashboard/accounts", map[string]string{
		"accountName": "Holiday",
		"accountType": "savings",
		"balance":     "-5",
		"currency":    "EUR",
		"status":      "active",
	})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Balance must be greater than or equal to 0")
}

func (s *WebSuite) TestCreateAccountRejected() {
	s.signIn()
	s.accounts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(accounts.Account{}, apperr.Rejected("Failed to create account for Holiday."))
	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return(nil, nil)

	rec := s.post("/dashboard/accounts", map[string]string{
		"accountName": "Holiday",
		"accountType": "checking",
		"balance":     "0",
		"currency":    "USD",
		"status":      "active",
	})
	testutil.MustStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.MustContain(s.T(), rec, "Failed to create account for Holiday.")
}

func (s *WebSuite) TestExpiredTokenLogsOut() {
	s.signIn()
	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return(nil, apperr.Unauthorized("expired", nil))

	rec := s.get("/dashboard")
	testutil.MustRedirect(s.T(), rec, "/login")
	s.False(s.session.Authenticated())
	_, err := s.storedPair()
	s.ErrorIs(err, credstore.ErrNotFound)
}

func (s *WebSuite) TestLogout() {
	s.signIn()

	rec := s.post("/logout", map[string]string{})
	testutil.MustRedirect(s.T(), rec, "/")
	s.False(s.session.Authenticated())
	_, err := s.storedPair()
	s.ErrorIs(err, credstore.ErrNotFound)

	landing := s.get("/", rec)
	testutil.MustContain(s.T(), landing, LoggedOut)
}

func (s *WebSuite) TestCSRFFailureRendersErrorPage() {
	req := testutil.Form("/login", map[string]string{"username": "alice", "password": "pw123"})
	rec := testutil.Do(s.T(), s.handler, req)
	testutil.MustStatus(s.T(), rec, http.StatusForbidden)
	testutil.MustContain(s.T(), rec, "Your form expired")
	s.Empty(s.fake.Requests())
}

func (s *WebSuite) TestHealthAndMetrics() {
	health := s.get("/healthz")
	testutil.MustStatus(s.T(), health, http.StatusOK)
	testutil.MustContain(s.T(), health, `"status":"ok"`)

	s.get("/")
	metricsRec := s.get("/metrics")
	testutil.MustStatus(s.T(), metricsRec, http.StatusOK)
	testutil.MustContain(s.T(), metricsRec, "digibank_http_requests_total")
}

func (s *WebSuite) TestNotFound() {
	rec := s.get("/nowhere")
	testutil.MustStatus(s.T(), rec, http.StatusNotFound)
	testutil.MustContain(s.T(), rec, "Page not found.")
}

func (s *WebSuite) TestEventsStreamSessionTransitions() {
	server := httptest.NewServer(s.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	s.Contains(readEvent(s.T(), reader), `"authenticated":false`)

	s.signIn()
	s.Contains(readEvent(s.T(), reader), `"authenticated":true`)
}

func readEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err, "read event")
		if line == "\n" {
			return data
		}
		if strings.HasPrefix(line, "data: ") {
			data += strings.TrimPrefix(strings.TrimSuffix(line, "\n"), "data: ")
		}
	}
}

func (s *WebSuite) TestEmbeddedPagesRenderWithPartials() {
	for _, target := range []string{"/", "/login", "/register", "/nowhere"} {
		rec := s.get(target)
		s.Contains(rec.Body.String(), `class="brand"`, target)
		s.NotContains(rec.Body.String(), "no such template", target)
	}
	testutil.MustStatus(s.T(), s.get("/register"), http.StatusOK)

	s.signIn()
	s.accounts.EXPECT().ListByUser(gomock.Any(), int64(42)).Return(nil, nil)
	dashboard := s.get("/dashboard")
	testutil.MustStatus(s.T(), dashboard, http.StatusOK)
	testutil.MustContain(s.T(), dashboard, "You have no accounts yet.")
	testutil.MustContain(s.T(), dashboard, `action="/logout"`)
}

func (s *WebSuite) TestErrorsFollowAcceptHeader() {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set("Accept", "application/json, text/plain")
	rec := testutil.Do(s.T(), s.handler, req)
	testutil.MustStatus(s.T(), rec, http.StatusNotFound)
	s.JSONEq(`{"error":"Page not found."}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json, text/plain")
	rec = testutil.Do(s.T(), s.handler, req)
	testutil.MustStatus(s.T(), rec, http.StatusUnauthorized)
}

func (s *WebSuite) TestTemplatePartialsEmbedded() {
	partials, err := fs.Glob(templateFS, "templates/partials/*.html")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"templates/partials/_flash.html", "templates/partials/_nav.html"}, partials)
}

func (s *WebSuite) TestStaticAssetsFingerprinted() {
	page := s.get("/")
	testutil.MustStatus(s.T(), page, http.StatusOK)
	testutil.MustContain(s.T(), page, "/static/app.css?v=")

	css := s.get("/static/app.css?v=stale")
	testutil.MustStatus(s.T(), css, http.StatusOK)
}
