// Package session holds the process-wide authentication state.
//
// A Context is derived once from the credential store by Initialize and is
// afterwards changed only by Login and Logout. Subscribers are told about
// every change of the authenticated flag, synchronously and in order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shoenig/go-conceal"

	"github.com/devmarvs/digibank/credstore"
)

// State is a snapshot of the session.
type State struct {
	Authenticated bool
	// Identity is an optional display identity; gating never uses it.
	Identity string
}

// Anonymous is the unauthenticated state.
var Anonymous = State{}

// Listener observes state changes. Listeners run on the goroutine that called
// Login or Logout and must not call either of them.
type Listener func(State)

// IdentityResolver derives the display identity from a stored access token.
type IdentityResolver func(access *conceal.Text) string

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdentityResolver sets how Initialize recovers the identity payload.
func WithIdentityResolver(resolve IdentityResolver) Option {
	return func(c *Context) {
		c.resolve = resolve
	}
}

type subscription struct {
	id uint64
	fn Listener
}

// Context is the subscribable holder of the session state.
type Context struct {
	store   credstore.Store
	logger  *slog.Logger
	resolve IdentityResolver

	init sync.Once

	// transition serializes Login/Logout together with their notifications.
	transition sync.Mutex

	mu          sync.RWMutex
	state       State
	subscribers []subscription
	nextID      uint64
}

// New creates an anonymous Context over store. Call Initialize before use.
func New(store credstore.Store, options ...Option) *Context {
	c := &Context{
		store:  store,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Initialize derives the state from the credential store. Only the first
// call has any effect, and none once Login or Logout has run. A store read
// failure leaves the session anonymous.
func (c *Context) Initialize(ctx context.Context) State {
	c.init.Do(func() {
		access, err := c.store.AccessToken(ctx)
		switch {
		case err == nil:
			state := State{Authenticated: true}
			if c.resolve != nil {
				state.Identity = c.resolve(access)
			}
			c.mu.Lock()
			c.state = state
			c.mu.Unlock()
		case errors.Is(err, credstore.ErrNotFound):
		default:
			c.logger.WarnContext(ctx, "credential store unreadable, starting anonymous", "error", err)
		}
	})
	return c.State()
}

// State returns the current snapshot.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Authenticated reports whether the session is authenticated.
func (c *Context) Authenticated() bool {
	return c.State().Authenticated
}

// Login marks the session authenticated. The caller must have stored the
// token pair first. Calling Login while authenticated notifies nobody.
func (c *Context) Login(identity string) {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.init.Do(func() {})
	c.set(State{Authenticated: true, Identity: identity})
}

// Logout clears the credential store and marks the session anonymous. The
// state becomes anonymous even when clearing fails; the error is returned.
func (c *Context) Logout(ctx context.Context) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.init.Do(func() {})
	err := c.store.Clear(ctx)
	c.set(Anonymous)
	if err != nil {
		c.logger.ErrorContext(ctx, "clear credentials", "error", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Subscribe registers fn for state changes and returns its cancel function.
func (c *Context) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscribers = append(c.subscribers, subscription{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.subscribers {
				if sub.id == id {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// set must be called with c.transition held.
func (c *Context) set(next State) {
	c.mu.Lock()
	changed := c.state.Authenticated != next.Authenticated
	c.state = next
	listeners := make([]Listener, 0, len(c.subscribers))
	for _, sub := range c.subscribers {
		listeners = append(listeners, sub.fn)
	}
	c.mu.Unlock()

	if !changed {
		return
	}
	c.logger.Info("session state changed", "authenticated", next.Authenticated)
	for _, fn := range listeners {
		fn(next)
	}
}
