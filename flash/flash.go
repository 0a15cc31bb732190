package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidCookie indicates an invalid or tampered flash cookie.
var ErrInvalidCookie = errors.New("invalid flash cookie")

// Message types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
	TypeInfo    = "info"
)

// Message represents a flash message.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Store carries flash messages across one redirect in a signed cookie.
type Store struct {
	Name     string
	Keys     [][]byte
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// New creates a flash store signing with key, accepting oldKeys on read.
func New(key []byte, oldKeys ...[]byte) *Store {
	keys := make([][]byte, 0, 1+len(oldKeys))
	keys = append(keys, key)
	keys = append(keys, oldKeys...)
	return &Store{
		Name:     "digibank_flash",
		Keys:     keys,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

// Add appends a flash message to those already pending on the request.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, msg Message) error {
	messages, _ := s.Peek(r)
	messages = append(messages, msg)

	value, err := s.encode(messages)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(value, 0))
	return nil
}

// Peek returns flash messages without clearing them.
func (s *Store) Peek(r *http.Request) ([]Message, error) {
	cookie, err := r.Cookie(s.Name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return s.decode(cookie.Value)
}

// Pop returns flash messages and expires the cookie.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) ([]Message, error) {
	messages, err := s.Peek(r)
	if _, present := r.Cookie(s.Name); present == nil {
		http.SetCookie(w, s.cookie("", -1))
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     s.Path,
		MaxAge:   maxAge,
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: s.SameSite,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

func (s *Store) encode(messages []Message) (string, error) {
	if len(s.Keys) == 0 || len(s.Keys[0]) == 0 {
		return "", errors.New("flash key required")
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	sig := sign(payload, s.Keys[0])
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func (s *Store) decode(value string) ([]Message, error) {
	encodedPayload, encodedSig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, ErrInvalidCookie
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, ErrInvalidCookie
	}
	signature, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return nil, ErrInvalidCookie
	}

	valid := false
	for _, key := range s.Keys {
		if len(key) == 0 {
			continue
		}
		if hmac.Equal(signature, sign(payload, key)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidCookie
	}

	var messages []Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func sign(payload []byte, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write(payload)
	return h.Sum(nil)
}
