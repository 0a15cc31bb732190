package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

type csrfKey struct{}

// CSRFOptions configures CSRF behavior.
type CSRFOptions struct {
	CookieName     string
	HeaderName     string
	FormField      string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	TokenLength    int
	// OnFailure answers a rejected request. The default writes a bare 403.
	OnFailure http.HandlerFunc
}

// CSRF protects against cross-site request forgery using a double-submit cookie.
func CSRF(options CSRFOptions) Middleware {
	cfg := normalizeCSRF(options)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := csrfFromCookie(r, cfg.CookieName)
			if token == "" {
				newToken, err := generateToken(cfg.TokenLength)
				if err != nil {
					http.Error(w, "csrf token generation failed", http.StatusInternalServerError)
					return
				}
				token = newToken
				setCSRFCookie(w, token, cfg)
			}

			if isUnsafeMethod(r.Method) {
				submitted := r.Header.Get(cfg.HeaderName)
				if submitted == "" && isFormRequest(r) {
					submitted = r.PostFormValue(cfg.FormField)
				}
				if submitted == "" || !secureCompare(submitted, token) {
					cfg.OnFailure(w, r)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

// CSRFToken returns the request CSRF token.
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfKey{}).(string)
	return token
}

func normalizeCSRF(options CSRFOptions) CSRFOptions {
	if options.CookieName == "" {
		options.CookieName = "digibank_csrf"
	}
	if options.HeaderName == "" {
		options.HeaderName = "X-CSRF-Token"
	}
	if options.FormField == "" {
		options.FormField = "csrf_token"
	}
	if options.CookiePath == "" {
		options.CookiePath = "/"
	}
	if options.TokenLength <= 0 {
		options.TokenLength = 32
	}
	if options.CookieSameSite == 0 {
		options.CookieSameSite = http.SameSiteLaxMode
	}
	if options.OnFailure == nil {
		options.OnFailure = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "csrf token invalid", http.StatusForbidden)
		}
	}
	return options
}

func csrfFromCookie(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

func setCSRFCookie(w http.ResponseWriter, token string, options CSRFOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     options.CookieName,
		Value:    token,
		Path:     options.CookiePath,
		Secure:   options.CookieSecure,
		HttpOnly: true,
		SameSite: options.CookieSameSite,
	})
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") || strings.HasPrefix(contentType, "multipart/form-data")
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
