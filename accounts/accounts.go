// Package accounts is the client of the accounts service used by the
// dashboard. Requests carry the stored access token through the
// httpclient bearer transport; nothing here reads the credential store.
package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/identity"
)

const maxResponseBytes = 1 << 20

// Account types, currencies and statuses accepted by the service.
const (
	TypeSavings  = "savings"
	TypeChecking = "checking"

	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusClosed   = "closed"
)

// Currencies lists the accepted ISO codes in display order.
var Currencies = []string{"USD", "BDT", "EUR"}

// Account is one account owned by the signed-in user.
type Account struct {
	AccountID     identity.UserID `json:"accountId"`
	UserID        identity.UserID `json:"userId"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	AccountType   string          `json:"accountType"`
	Balance       json.Number     `json:"balance"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"createdAt"`
}

// CreateRequest is the dashboard's new-account form.
type CreateRequest struct {
	UserID      int64  `json:"userId" validate:"min=1"`
	AccountName string `json:"accountName" label:"Account name" validate:"required,max=100"`
	AccountType string `json:"accountType" label:"Account type" validate:"required,oneof=savings|checking"`
	Balance     string `json:"balance" label:"Balance" validate:"required,decimal=2"`
	Currency    string `json:"currency" label:"Currency" validate:"required,oneof=USD|BDT|EUR"`
	Status      string `json:"status" label:"Status" validate:"required,oneof=active|inactive|closed"`
}

type createBody struct {
	UserID      int64       `json:"userId"`
	AccountName string      `json:"accountName"`
	AccountType string      `json:"accountType"`
	Balance     json.Number `json:"balance"`
	Currency    string      `json:"currency"`
	Status      string      `json:"status"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for account calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the accounts service.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// ListByUser returns the accounts owned by userID.
func (c *Client) ListByUser(ctx context.Context, userID int64) ([]Account, error) {
	path := "/accounts/user/" + strconv.FormatInt(userID, 10)
	status, envelope, err := do[[]Account](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		c.logger.Warn("list accounts failed", "user_id", userID, "error", err)
		return nil, apperr.Transport("Could not load your accounts.", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, apperr.Unauthorized("Your session has expired. Please login again.", nil)
	}
	if envelope == nil || string(envelope.Code) != identity.CodeOK {
		return nil, apperr.Rejected(firstMessage(envelope, "Could not load your accounts."))
	}
	if envelope.Result == nil {
		return []Account{}, nil
	}
	return *envelope.Result, nil
}

// Create opens an account. The service answers 201 and, inside the body,
// result code 200 on success or 404 when it refused.
func (c *Client) Create(ctx context.Context, req CreateRequest) (Account, error) {
	body := createBody{
		UserID:      req.UserID,
		AccountName: req.AccountName,
		AccountType: req.AccountType,
		Balance:     json.Number(req.Balance),
		Currency:    req.Currency,
		Status:      req.Status,
	}
	status, envelope, err := do[Account](ctx, c, http.MethodPost, "/accounts/create", body)
	if err != nil {
		c.logger.Warn("create account failed", "error", err)
		return Account{}, apperr.Transport("An error occurred while trying to create the account.", err)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Account{}, apperr.Unauthorized("Your session has expired. Please login again.", nil)
	case status != http.StatusCreated:
		return Account{}, apperr.Rejected(firstMessage(envelope, "Failed to create account for "+req.AccountName+"."))
	case envelope != nil && envelope.Code != "" && string(envelope.Code) != identity.CodeOK:
		return Account{}, apperr.Rejected(firstMessage(envelope, "Failed to create account for "+req.AccountName+"."))
	}

	c.logger.Info("account created", "user_id", req.UserID, "type", req.AccountType)
	if envelope != nil && envelope.Result != nil {
		return *envelope.Result, nil
	}
	return Account{AccountName: req.AccountName, AccountType: req.AccountType, Balance: body.Balance, Currency: req.Currency, Status: req.Status}, nil
}

// do sends one request. A nil envelope with a nil error means the service
// answered with an empty body.
func do[T any](ctx context.Context, c *Client, method, path string, body any) (int, *identity.Envelope[T], error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil, nil
	}
	var envelope identity.Envelope[T]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return resp.StatusCode, nil, nil
		}
		return resp.StatusCode, nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, &envelope, nil
}

func firstMessage[T any](envelope *identity.Envelope[T], fallback string) string {
	if envelope != nil && len(envelope.Message) > 0 && envelope.Message[0] != "" {
		return envelope.Message[0]
	}
	return fallback
}

// ErrNoUser is returned when the access token names no numeric user.
var ErrNoUser = errors.New("access token carries no user id")

// UserID resolves the numeric owner id for the dashboard from token claims.
func UserID(claims identity.Claims) (int64, error) {
	if id, ok := identity.UserID(claims.UserID).Int64(); ok {
		return id, nil
	}
	if id, ok := identity.UserID(claims.Subject).Int64(); ok {
		return id, nil
	}
	return 0, ErrNoUser
}
