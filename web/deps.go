package web

import (
	"context"

	"github.com/shoenig/go-conceal"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/identity"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . IdentityGateway,AccountService

// IdentityGateway is the subset of identity.Gateway the views call.
type IdentityGateway interface {
	Register(ctx context.Context, req identity.RegisterRequest) identity.Result[identity.Registration]
	Login(ctx context.Context, creds identity.PasswordCredentials) identity.Result[credstore.TokenPair]
	LoginWithFederatedToken(ctx context.Context, token *conceal.Text) identity.Result[credstore.TokenPair]
}

// AccountService is the dashboard's view of the accounts service.
type AccountService interface {
	ListByUser(ctx context.Context, userID int64) ([]accounts.Account, error)
	Create(ctx context.Context, req accounts.CreateRequest) (accounts.Account, error)
}

// TokenReader reads the stored access token.
type TokenReader interface {
	AccessToken(ctx context.Context) (*conceal.Text, error)
}
