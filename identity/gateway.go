// Package identity exchanges credentials with the identity service.
//
// Every call makes exactly one request and reports a tagged Result. A
// successful login is written to the credential store before the call
// returns, so the caller may mark the session authenticated immediately.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shoenig/go-conceal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devmarvs/digibank/credstore"
)

const maxResponseBytes = 1 << 20

// PasswordCredentials identify a user by name and password.
type PasswordCredentials struct {
	Username string
	Password string
}

// RegisterRequest is a new account submission.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Observer records call outcomes.
type Observer interface {
	ObserveIdentity(operation, outcome string, start time.Time)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the client used for identity calls.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver records every call outcome.
func WithObserver(observer Observer) Option {
	return func(g *Gateway) {
		g.observer = observer
	}
}

// WithTracer sets the tracer used for call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// Gateway is the client of the identity service.
type Gateway struct {
	baseURL  string
	store    credstore.Store
	client   *http.Client
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// New creates a Gateway for the service rooted at baseURL.
func New(baseURL string, store credstore.Store, options ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/devmarvs/digibank/identity"),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Register creates an account. It never touches the credential store.
func (g *Gateway) Register(ctx context.Context, req RegisterRequest) Result[Registration] {
	ctx, c := g.begin(ctx, "register")
	body := registerRequest{Username: req.Username, Email: req.Email, Password: req.Password}

	envelope, err := post[Registration](ctx, g, "/user/register", body)
	if err != nil {
		return finish(c, failed[Registration](err))
	}
	if string(envelope.Code) != CodeCreated {
		return finish(c, rejected[Registration](string(envelope.Code), envelope.Message))
	}
	var registration Registration
	if envelope.Result != nil {
		registration = *envelope.Result
	}
	return finish(c, succeeded(registration))
}

// Login authenticates with a username and password.
func (g *Gateway) Login(ctx context.Context, creds PasswordCredentials) Result[credstore.TokenPair] {
	ctx, c := g.begin(ctx, "login")
	body := authenticateRequest{Username: creds.Username, Password: creds.Password, Type: AuthBanking}
	return finish(c, g.authenticate(ctx, body))
}

// LoginWithFederatedToken authenticates with a token issued by the federated
// identity provider. The token is passed through without inspection.
func (g *Gateway) LoginWithFederatedToken(ctx context.Context, token *conceal.Text) Result[credstore.TokenPair] {
	ctx, c := g.begin(ctx, "login_federated")
	if token == nil || token.Unveil() == "" {
		return finish(c, failed[credstore.TokenPair](errors.New("federated token is empty")))
	}
	body := authenticateRequest{SNSAccessToken: token.Unveil(), Type: AuthGoogle}
	return finish(c, g.authenticate(ctx, body))
}

func (g *Gateway) authenticate(ctx context.Context, body authenticateRequest) Result[credstore.TokenPair] {
	envelope, err := post[tokenResult](ctx, g, "/authenticate", body)
	if err != nil {
		return failed[credstore.TokenPair](err)
	}
	if string(envelope.Code) != CodeOK {
		return rejected[credstore.TokenPair](string(envelope.Code), envelope.Message)
	}
	if envelope.Result == nil {
		return failed[credstore.TokenPair](errors.New("authenticate: success response without tokens"))
	}

	pair := credstore.NewTokenPair(envelope.Result.AccessToken, envelope.Result.RefreshToken)
	if !pair.Complete() {
		return failed[credstore.TokenPair](errors.New("authenticate: success response with incomplete tokens"))
	}
	if err := g.store.Store(ctx, pair); err != nil {
		return failed[credstore.TokenPair](fmt.Errorf("persist tokens: %w", err))
	}
	return succeeded(pair)
}

type call struct {
	gateway   *Gateway
	operation string
	span      trace.Span
	start     time.Time
}

func (g *Gateway) begin(ctx context.Context, operation string) (context.Context, *call) {
	ctx, span := g.tracer.Start(ctx, "identity."+operation, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, &call{gateway: g, operation: operation, span: span, start: time.Now()}
}

// finish records the outcome of c and returns result unchanged.
func finish[T any](c *call, result Result[T]) Result[T] {
	g := c.gateway
	outcome := result.Kind.String()

	c.span.SetAttributes(attribute.String("identity.outcome", outcome))
	switch result.Kind {
	case Success:
		c.span.SetStatus(codes.Ok, "")
		g.logger.Info("identity call succeeded", "operation", c.operation)
	case BusinessFailure:
		c.span.SetAttributes(attribute.String("identity.code", result.Code))
		g.logger.Info("identity call rejected", "operation", c.operation, "code", result.Code)
	default:
		c.span.RecordError(result.Cause)
		c.span.SetStatus(codes.Error, "transport failure")
		g.logger.Warn("identity call failed", "operation", c.operation, "error", result.Cause)
	}
	c.span.End()

	if g.observer != nil {
		g.observer.ObserveIdentity(c.operation, outcome, c.start)
	}
	return result
}

// post sends body and decodes the envelope. Any error means no well-formed
// envelope was obtained; the HTTP status is irrelevant once one decodes.
func post[T any](ctx context.Context, g *Gateway, path string, body any) (Envelope[T], error) {
	var envelope Envelope[T]

	payload, err := json.Marshal(body)
	if err != nil {
		return envelope, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return envelope, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return envelope, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Code == "" {
		return envelope, fmt.Errorf("response without result code (status %d)", resp.StatusCode)
	}
	return envelope, nil
}
