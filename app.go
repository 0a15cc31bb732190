// Package digibank assembles the session core, the remote service clients and
// the web views into a runnable client.
package digibank

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/config"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/health"
	"github.com/devmarvs/digibank/httpclient"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/logging"
	"github.com/devmarvs/digibank/metrics"
	"github.com/devmarvs/digibank/session"
	"github.com/devmarvs/digibank/validate"
	"github.com/devmarvs/digibank/web"
)

const (
	tracerName   = "github.com/devmarvs/digibank"
	checkTimeout = 2 * time.Second
)

// App is a wired client: one credential store, one session and the views
// over them.
type App struct {
	config  config.Config
	logger  *slog.Logger
	store   credstore.Store
	session *session.Context
	metrics *metrics.Metrics

	identity *identity.Gateway
	accounts *accounts.Client
	server   *web.Server
	handler  http.Handler
}

// Option customizes the app instance.
type Option func(*App)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStore replaces the credential store selected by the config.
func WithStore(store credstore.Store) Option {
	return func(a *App) {
		if store != nil {
			a.store = store
		}
	}
}

// New opens the credential store, derives the initial session state from it
// and wires every component.
func New(ctx context.Context, cfg config.Config, options ...Option) (*App, error) {
	a := &App{config: cfg}
	for _, option := range options {
		option(a)
	}
	if a.logger == nil {
		a.logger = logging.NewLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	if a.store == nil {
		store, err := credstore.Open(ctx, cfg.CredentialStore, cfg.Profile, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	a.metrics = metrics.New()
	a.session = session.New(a.store,
		session.WithLogger(a.logger),
		session.WithIdentityResolver(identity.Subject),
	)
	state := a.session.Initialize(ctx)
	a.metrics.ObserveSession(state.Authenticated)
	a.session.Subscribe(func(next session.State) {
		a.metrics.ObserveSession(next.Authenticated)
	})

	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := otel.Tracer(tracerName)

	a.identity = identity.New(cfg.Identity.URL, a.store,
		identity.WithHTTPClient(httpclient.NewClient(httpclient.ClientOptions{
			Timeout: cfg.Identity.Timeout,
			Tokens:  a.store,
			Tracer:  tracer,
		})),
		identity.WithLogger(a.logger),
		identity.WithObserver(a.metrics),
		identity.WithTracer(tracer),
	)

	breaker := httpclient.NewCircuitBreaker(httpclient.CircuitBreakerOptions{
		OnStateChange: a.metrics.BreakerObserver("accounts"),
	})
	retry := httpclient.DefaultRetryOptions()
	retry.MaxRetries = cfg.Accounts.MaxRetries
	a.accounts = accounts.New(cfg.Accounts.URL,
		accounts.WithHTTPClient(httpclient.NewClient(httpclient.ClientOptions{
			Timeout: cfg.Accounts.Timeout,
			Retry:   retry,
			Breaker: breaker,
			Tokens:  a.store,
			Tracer:  tracer,
		})),
		accounts.WithLogger(a.logger),
	)

	checks := health.New(checkTimeout)
	checks.Add("credential_store", health.StoreCheck(a.store))
	checks.Add("accounts_breaker", health.BreakerCheck(breaker))

	flashKey := make([]byte, 32)
	if _, err := rand.Read(flashKey); err != nil {
		return nil, fmt.Errorf("digibank: flash key: %w", err)
	}

	webOptions := web.Options{
		Identity:       a.identity,
		Accounts:       a.accounts,
		Session:        a.session,
		Tokens:         a.store,
		Flash:          flash.New(flashKey),
		Metrics:        a.metrics,
		Health:         checks,
		Logger:         a.logger,
		Tracer:         tracer,
		GoogleClientID: cfg.Google.ClientID,
		TemplateReload: cfg.TemplateReload,
		SecureCookies:  cfg.SecureCookies,
		Profiling:      cfg.Pprof,
	}
	if cfg.TemplateReload {
		webOptions.Templates = os.DirFS("web/templates")
	}
	server, err := web.New(webOptions)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.server = server
	a.handler = server.Handler()

	a.logger.Info("session initialized",
		slog.String("profile", cfg.Profile),
		slog.Bool("authenticated", state.Authenticated),
	)
	return a, nil
}

// ValidationLogger returns a hook that logs failed form validations at debug
// level. Binaries install it once with validate.OnFailure.
func ValidationLogger(logger *slog.Logger) validate.FailureHook {
	return func(value any, failures *validate.Errors) {
		logger.Debug("validation failed",
			slog.String("type", fmt.Sprintf("%T", value)),
			slog.Int("fields", len(failures.Fields)),
			slog.String("first", failures.First()),
		)
	}
}

// Handler returns the routed web surface.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Session returns the shared session context.
func (a *App) Session() *session.Context {
	return a.session
}

// Identity returns the identity gateway.
func (a *App) Identity() *identity.Gateway {
	return a.identity
}

// Accounts returns the accounts client.
func (a *App) Accounts() *accounts.Client {
	return a.accounts
}

// Store returns the credential store.
func (a *App) Store() credstore.Store {
	return a.store
}

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// URL is the address a browser should open for the web views.
func (a *App) URL() string {
	host, port, err := net.SplitHostPort(a.config.Address)
	if err != nil {
		return "http://" + a.config.Address
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Run starts the server and shuts down when the context is canceled.
func (a *App) Run(ctx context.Context) error {
	server := a.newServer()
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("server starting", slog.String("address", a.config.Address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunWithSignals starts the server and handles SIGINT/SIGTERM for shutdown.
func (a *App) RunWithSignals() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

// Close releases the credential store's connections, if it holds any.
func (a *App) Close() error {
	if closer, ok := a.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (a *App) newServer() *http.Server {
	return &http.Server{
		Addr:              a.config.Address,
		Handler:           a.handler,
		ReadHeaderTimeout: a.config.ReadHeaderTimeout,
	}
}
