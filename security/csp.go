// Package security builds response security policies.
package security

import "strings"

// Google Identity Services origins the sign-in button loads from.
const (
	googleGSIClient = "https://accounts.google.com/gsi/client"
	googleGSI       = "https://accounts.google.com/gsi/"
	googleGSIStyle  = "https://accounts.google.com/gsi/style"
)

// CSP builds a Content-Security-Policy header value. Directives render in
// the order they were first set.
type CSP struct {
	directives map[string][]string
	order      []string
}

// NewCSP creates an empty policy.
func NewCSP() *CSP {
	return &CSP{directives: make(map[string][]string)}
}

// SelfOnly is a policy restricting every fetch to the page origin.
func SelfOnly() *CSP {
	return NewCSP().
		Set("default-src", "'self'").
		Set("base-uri", "'self'").
		Set("form-action", "'self'").
		Set("object-src", "'none'")
}

// Set replaces a directive with the provided values.
func (c *CSP) Set(directive string, values ...string) *CSP {
	directive = strings.ToLower(strings.TrimSpace(directive))
	if directive == "" {
		return c
	}
	if _, ok := c.directives[directive]; !ok {
		c.order = append(c.order, directive)
	}
	c.directives[directive] = filterValues(values)
	return c
}

// Add appends values to a directive, creating it seeded with 'self' if it is
// not set yet.
func (c *CSP) Add(directive string, values ...string) *CSP {
	directive = strings.ToLower(strings.TrimSpace(directive))
	if directive == "" {
		return c
	}
	if _, ok := c.directives[directive]; !ok {
		c.order = append(c.order, directive)
		c.directives[directive] = []string{"'self'"}
	}
	for _, value := range filterValues(values) {
		if !c.has(directive, value) {
			c.directives[directive] = append(c.directives[directive], value)
		}
	}
	return c
}

// AllowGoogleSignIn opens the directives the Google sign-in button needs:
// its script, its iframe and popup, and its stylesheet.
func (c *CSP) AllowGoogleSignIn() *CSP {
	return c.
		Add("script-src", googleGSIClient).
		Add("frame-src", googleGSI).
		Add("connect-src", googleGSI).
		Add("style-src", "'unsafe-inline'", googleGSIStyle)
}

// String returns the policy string.
func (c *CSP) String() string {
	parts := make([]string, 0, len(c.order))
	for _, directive := range c.order {
		values := c.directives[directive]
		if len(values) == 0 {
			parts = append(parts, directive)
			continue
		}
		parts = append(parts, directive+" "+strings.Join(values, " "))
	}
	return strings.Join(parts, "; ")
}

func (c *CSP) has(directive, value string) bool {
	for _, existing := range c.directives[directive] {
		if existing == value {
			return true
		}
	}
	return false
}

func filterValues(values []string) []string {
	filtered := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	return filtered
}
