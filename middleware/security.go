package middleware

import (
	"net/http"

	"github.com/devmarvs/digibank/security"
)

// SecurityHeadersOptions configures security response headers.
type SecurityHeadersOptions struct {
	ContentTypeNosniff      bool
	FrameOptions            string
	ReferrerPolicy          string
	ContentSecurityPolicy   string
	CrossOriginOpenerPolicy string
}

// DefaultSecurityHeaders returns header settings that still let the Google
// sign-in button load its script and popup.
func DefaultSecurityHeaders() SecurityHeadersOptions {
	return SecurityHeadersOptions{
		ContentTypeNosniff:      true,
		FrameOptions:            "DENY",
		ReferrerPolicy:          "strict-origin-when-cross-origin",
		ContentSecurityPolicy:   security.SelfOnly().AllowGoogleSignIn().String(),
		CrossOriginOpenerPolicy: "same-origin-allow-popups",
	}
}

// SecurityHeaders adds common security headers.
func SecurityHeaders(options SecurityHeadersOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			if options.ContentTypeNosniff {
				headers.Set("X-Content-Type-Options", "nosniff")
			}
			if options.FrameOptions != "" {
				headers.Set("X-Frame-Options", options.FrameOptions)
			}
			if options.ReferrerPolicy != "" {
				headers.Set("Referrer-Policy", options.ReferrerPolicy)
			}
			if options.ContentSecurityPolicy != "" {
				headers.Set("Content-Security-Policy", options.ContentSecurityPolicy)
			}
			if options.CrossOriginOpenerPolicy != "" {
				headers.Set("Cross-Origin-Opener-Policy", options.CrossOriginOpenerPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
