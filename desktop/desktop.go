// Package desktop is a native window over the session core: a login form
// while anonymous and an account overview while authenticated.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/shoenig/go-conceal"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/inflight"
	"github.com/devmarvs/digibank/session"
)

const (
	appID       = "io.digibank.desktop"
	loginFailed = "Login failed. Please check your credentials."
	callTimeout = 30 * time.Second
)

// LoginGateway authenticates with a username and password.
type LoginGateway interface {
	Login(ctx context.Context, creds identity.PasswordCredentials) identity.Result[credstore.TokenPair]
}

// AccountLister lists the signed-in user's accounts.
type AccountLister interface {
	ListByUser(ctx context.Context, userID int64) ([]accounts.Account, error)
}

// TokenReader reads the stored access token.
type TokenReader interface {
	AccessToken(ctx context.Context) (*conceal.Text, error)
}

// WindowConfig configures the desktop shell.
type WindowConfig struct {
	Title  string
	Width  float32
	Height float32

	Session  *session.Context
	Identity LoginGateway
	Accounts AccountLister
	Tokens   TokenReader
	// WebURL is the local web view, opened from the dashboard.
	WebURL string
	Logger *slog.Logger
}

// Shell is the window and its state-dependent content.
type Shell struct {
	cfg    WindowConfig
	app    fyne.App
	window fyne.Window
	lock   *inflight.Lock

	username *widget.Entry
	password *widget.Entry
	submit   *widget.Button
	status   *widget.Label

	mu       sync.Mutex
	accounts []accounts.Account
	list     *widget.List
	summary  *widget.Label

	unsubscribe func()
}

// NewShell builds the window on a and shows the view matching the current
// session state. Content follows every later session transition.
func NewShell(a fyne.App, cfg WindowConfig) *Shell {
	if cfg.Title == "" {
		cfg.Title = "DigiBank"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Shell{cfg: cfg, app: a, window: a.NewWindow(cfg.Title), lock: inflight.New()}
	if cfg.Width > 0 && cfg.Height > 0 {
		s.window.Resize(fyne.NewSize(cfg.Width, cfg.Height))
	}
	s.window.SetMainMenu(s.menu())
	if desktopApp, ok := a.(desktop.App); ok {
		desktopApp.SetSystemTrayMenu(fyne.NewMenu(cfg.Title, fyne.NewMenuItem("Open", s.window.Show)))
	}

	s.unsubscribe = cfg.Session.Subscribe(s.show)
	s.show(cfg.Session.State())
	return s
}

// Run opens the shell and blocks until the window closes.
func Run(cfg WindowConfig) {
	shell := NewShell(app.NewWithID(appID), cfg)
	defer shell.Close()
	shell.window.ShowAndRun()
}

// Window returns the shell window.
func (s *Shell) Window() fyne.Window {
	return s.window
}

// Close stops following session changes.
func (s *Shell) Close() {
	s.unsubscribe()
}

func (s *Shell) menu() *fyne.MainMenu {
	return fyne.NewMainMenu(fyne.NewMenu("File",
		fyne.NewMenuItem("Logout", s.logout),
	))
}

func (s *Shell) show(state session.State) {
	if state.Authenticated {
		s.window.SetContent(s.dashboardView(state))
		go s.refresh()
		return
	}
	s.window.SetContent(s.loginView())
}

func (s *Shell) loginView() fyne.CanvasObject {
	s.username = widget.NewEntry()
	s.username.SetPlaceHolder("Username")
	s.password = widget.NewPasswordEntry()
	s.password.SetPlaceHolder("Password")
	s.status = widget.NewLabel("")
	s.status.Wrapping = fyne.TextWrapWord
	s.submit = widget.NewButton("Login", s.login)
	s.password.OnSubmitted = func(string) { s.login() }

	return container.NewPadded(container.NewVBox(
		widget.NewLabelWithStyle("Login", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		s.username,
		s.password,
		s.submit,
		s.status,
	))
}

// login submits the form once; the button stays disabled until the call
// returns.
func (s *Shell) login() {
	username := strings.TrimSpace(s.username.Text)
	password := s.password.Text
	if username == "" || password == "" {
		s.status.SetText("Username and password are required.")
		return
	}
	release, err := s.lock.TryAcquire()
	if err != nil {
		return
	}
	s.submit.Disable()
	s.status.SetText("Signing in…")

	go func() {
		defer release()
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		result := s.cfg.Identity.Login(ctx, identity.PasswordCredentials{Username: username, Password: password})
		if !result.OK() {
			s.submit.Enable()
			s.status.SetText(result.Message(loginFailed))
			return
		}
		display := identity.Subject(result.Value.Access)
		if display == "" {
			display = username
		}
		s.cfg.Session.Login(display)
	}()
}

func (s *Shell) dashboardView(state session.State) fyne.CanvasObject {
	s.summary = widget.NewLabel("Loading accounts…")
	s.list = widget.NewList(
		func() int {
			s.mu.Lock()
			defer s.mu.Unlock()
			return len(s.accounts)
		},
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if id < len(s.accounts) {
				item.(*widget.Label).SetText(accountLine(s.accounts[id]))
			}
		},
	)

	buttons := container.NewHBox(
		widget.NewButton("Refresh", func() { go s.refresh() }),
		widget.NewButton("Open in browser", s.openWeb),
		widget.NewButton("Logout", s.logout),
	)
	header := container.NewVBox(
		widget.NewLabelWithStyle("Signed in as "+displayName(state), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		s.summary,
	)
	return container.NewBorder(header, buttons, nil, nil, s.list)
}

func (s *Shell) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	list, err := s.load(ctx)
	s.mu.Lock()
	s.accounts = list
	s.mu.Unlock()

	switch {
	case err != nil:
		s.cfg.Logger.Warn("desktop could not load accounts", "error", err)
		s.summary.SetText("Could not load your accounts.")
	case len(list) == 0:
		s.summary.SetText("You have no accounts yet.")
	case len(list) == 1:
		s.summary.SetText("1 account")
	default:
		s.summary.SetText(fmt.Sprintf("%d accounts", len(list)))
	}
	s.list.Refresh()
}

func (s *Shell) load(ctx context.Context) ([]accounts.Account, error) {
	if s.cfg.Accounts == nil || s.cfg.Tokens == nil {
		return nil, errors.New("accounts service not configured")
	}
	token, err := s.cfg.Tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := identity.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	userID, err := accounts.UserID(claims)
	if err != nil {
		return nil, err
	}
	return s.cfg.Accounts.ListByUser(ctx, userID)
}

func (s *Shell) openWeb() {
	if s.cfg.WebURL == "" {
		return
	}
	target, err := url.Parse(s.cfg.WebURL)
	if err != nil {
		s.cfg.Logger.Warn("invalid web url", "url", s.cfg.WebURL, "error", err)
		return
	}
	if err := s.app.OpenURL(target); err != nil {
		s.cfg.Logger.Warn("open browser", "error", err)
	}
}

func (s *Shell) logout() {
	if err := s.cfg.Session.Logout(context.Background()); err != nil {
		s.cfg.Logger.Warn("logout could not clear stored tokens", "error", err)
	}
}

func accountLine(a accounts.Account) string {
	return fmt.Sprintf("%s  %s  %s %s  (%s)", a.AccountNumber, a.AccountType, a.Balance, a.Currency, a.Status)
}

func displayName(state session.State) string {
	if state.Identity == "" {
		return "your account"
	}
	return state.Identity
}
