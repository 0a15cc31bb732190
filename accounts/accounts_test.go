package accounts

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/logging"
	"github.com/devmarvs/digibank/testutil"
	"github.com/devmarvs/digibank/validate"
)

func newClient(t *testing.T, respond testutil.Responder) (*Client, *testutil.FakeService) {
	t.Helper()
	fake := testutil.NewFakeService(t, respond)
	client := New(fake.URL+"/api/",
		WithLogger(logging.Discard()),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	return client, fake
}

func validRequest() CreateRequest {
	return CreateRequest{
		UserID:      7,
		AccountName: "Holiday",
		AccountType: TypeSavings,
		Balance:     "100.50",
		Currency:    "EUR",
		Status:      StatusActive,
	}
}

func TestListByUser(t *testing.T) {
	accounts := []map[string]any{{
		"accountId": 1, "userId": 7, "accountNumber": "ACC-1", "accountType": "savings",
		"balance": 12.5, "currency": "USD", "status": "active", "createdAt": "2024-05-01T10:00:00",
	}}
	client, fake := newClient(t, testutil.Reply(http.StatusOK, testutil.Envelope("200", nil, accounts)))

	got, err := client.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ACC-1", got[0].AccountNumber)
	assert.Equal(t, identity.UserID("1"), got[0].AccountID)
	assert.Equal(t, "12.5", got[0].Balance.String())

	requests := fake.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, "/api/accounts/user/7", requests[0].Path)
}

func TestListByUserEmptyResult(t *testing.T) {
	client, _ := newClient(t, testutil.Reply(http.StatusOK, testutil.Envelope("200", nil, nil)))

	got, err := client.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByUserUnauthorized(t *testing.T) {
	client, _ := newClient(t, testutil.ReplyRaw(http.StatusUnauthorized, ""))

	_, err := client.ListByUser(context.Background(), 7)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func TestCreateSuccess(t *testing.T) {
	created := map[string]any{"accountId": 9, "accountNumber": "ACC-9", "accountType": "savings", "balance": 100.5}
	client, fake := newClient(t, testutil.Reply(http.StatusCreated, testutil.Envelope("200", []string{"Account created"}, created)))

	account, err := client.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "ACC-9", account.AccountNumber)

	body := fake.Requests()[0].Body
	assert.Equal(t, float64(7), body["userId"])
	assert.Equal(t, 100.5, body["balance"])
	assert.Equal(t, "EUR", body["currency"])
}

func TestCreateRejectedInsideCreated(t *testing.T) {
	client, _ := newClient(t, testutil.Reply(http.StatusCreated, testutil.Envelope("404", nil, nil)))

	_, err := client.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRejection))
	assert.Equal(t, "Failed to create account for Holiday.", apperr.As(err).Message)
}

func TestCreateUnexpectedStatus(t *testing.T) {
	client, _ := newClient(t, testutil.Reply(http.StatusBadRequest, testutil.Envelope("400", []string{"balance must be positive"}, nil)))

	_, err := client.Create(context.Background(), validRequest())
	assert.Equal(t, "balance must be positive", apperr.As(err).Message)
}

func TestCreateTransportFailure(t *testing.T) {
	client, _ := newClient(t, testutil.ReplyRaw(http.StatusBadGateway, "<html>down</html>"))

	_, err := client.Create(context.Background(), validRequest())
	assert.True(t, apperr.Is(err, apperr.CodeTransport))
	assert.Equal(t, "An error occurred while trying to create the account.", apperr.As(err).Message)
}

func TestCreateRequestValidation(t *testing.T) {
	req := validRequest()
	require.NoError(t, validate.Struct(req))

	req.Currency = "GBP"
	assert.Equal(t, "Currency must be one of USD, BDT, EUR", validate.Message(validate.Struct(req)))
}

func TestUserID(t *testing.T) {
	id, err := UserID(identity.Claims{Subject: "alice", UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = UserID(identity.Claims{Subject: "17", UserID: "17"})
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	_, err = UserID(identity.Claims{Subject: "alice", UserID: "alice"})
	assert.ErrorIs(t, err, ErrNoUser)
}
