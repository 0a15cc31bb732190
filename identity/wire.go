package identity

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// AuthenticationType selects the credential kind on /authenticate.
type AuthenticationType int

const (
	AuthBanking  AuthenticationType = 1
	AuthGoogle   AuthenticationType = 2
	AuthFacebook AuthenticationType = 3
)

// Result codes the identity service answers with on success.
const (
	CodeOK      = "200"
	CodeCreated = "201"
)

// Envelope is the response shape shared by every identity endpoint.
type Envelope[T any] struct {
	Code    Code     `json:"code"`
	Message Messages `json:"message"`
	Result  *T       `json:"result"`
}

// Code accepts the result code as a JSON string or number.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

// Messages accepts either a list of strings or a single string.
type Messages []string

func (m *Messages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Messages{s}
		return nil
	default:
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = list
		return nil
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authenticateRequest struct {
	Username       string             `json:"username,omitempty"`
	Password       string             `json:"password,omitempty"`
	SNSAccessToken string             `json:"snsAccessToken,omitempty"`
	Type           AuthenticationType `json:"type"`
}

type tokenResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Registration is the account record returned by a successful registration.
type Registration struct {
	UserID   UserID   `json:"userId"`
	UserName string   `json:"userName"`
	Email    string   `json:"email"`
	Status   string   `json:"status"`
	Roles    []string `json:"roles"`
}

// UserID accepts an identifier sent as a JSON number or string.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	var c Code
	if err := c.UnmarshalJSON(data); err != nil {
		return err
	}
	*u = UserID(c)
	return nil
}

func (u UserID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(u), 10, 64)
	return n, err == nil
}
