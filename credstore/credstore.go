// Package credstore persists the token pair issued by the identity service.
//
// Every backend writes and clears both tokens together, so a reader observes
// either the previous pair, the new pair, or nothing.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shoenig/go-conceal"
)

// ErrNotFound is returned when no complete token pair is stored.
var ErrNotFound = errors.New("credstore: no credentials stored")

// TokenPair is the access and refresh token issued on a successful login.
type TokenPair struct {
	Access  *conceal.Text
	Refresh *conceal.Text
}

// NewTokenPair wraps raw tokens.
func NewTokenPair(access, refresh string) TokenPair {
	return TokenPair{Access: conceal.New(access), Refresh: conceal.New(refresh)}
}

// Complete reports whether both tokens are present and non-empty.
func (p TokenPair) Complete() bool {
	return !empty(p.Access) && !empty(p.Refresh)
}

func empty(t *conceal.Text) bool {
	return t == nil || t.Unveil() == ""
}

// Store is the durable, profile-scoped home of the token pair.
type Store interface {
	// Store overwrites both tokens.
	Store(ctx context.Context, pair TokenPair) error
	// Load returns the stored pair or ErrNotFound.
	Load(ctx context.Context) (TokenPair, error)
	// AccessToken returns the stored access token or ErrNotFound.
	AccessToken(ctx context.Context) (*conceal.Text, error)
	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// record is the persisted form of a TokenPair.
type record struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func encode(pair TokenPair) ([]byte, error) {
	if !pair.Complete() {
		return nil, errors.New("credstore: token pair is incomplete")
	}
	return json.Marshal(record{
		AccessToken:  pair.Access.Unveil(),
		RefreshToken: pair.Refresh.Unveil(),
	})
}

func decode(data []byte) (TokenPair, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return TokenPair{}, fmt.Errorf("credstore: decode: %w", err)
	}
	return fromRecord(rec)
}

func fromRecord(rec record) (TokenPair, error) {
	pair := NewTokenPair(rec.AccessToken, rec.RefreshToken)
	if !pair.Complete() {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

func accessToken(pair TokenPair, err error) (*conceal.Text, error) {
	if err != nil {
		return nil, err
	}
	return pair.Access, nil
}
