package web

import (
	"net/http"
	"strings"

	"github.com/shoenig/go-conceal"

	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/guard"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/validate"
)

// Messages shown by the authentication views.
const (
	RegistrationSucceeded = "Registration successful! Please login to use the system."
	RegistrationFailed    = "Registration failed. Please try again."
	LoginFailed           = "Login failed. Please check your credentials."
	LoggedOut             = "You have been logged out."
	MissingFederatedToken = "Google sign-in did not return a credential. Please try again."
)

type registerForm struct {
	Username        string `json:"username" label:"Username" validate:"required,min=3,max=50"`
	Email           string `json:"email" label:"Email" validate:"required,email"`
	Password        string `json:"password" label:"Password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginForm struct {
	Username string `json:"username" label:"Username" validate:"required"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// redacted drops the secrets before a form is echoed back to the page.
func (f registerForm) redacted() registerForm {
	f.Password, f.ConfirmPassword = "", ""
	return f
}

func (s *Server) landing(w http.ResponseWriter, r *http.Request) error {
	return s.renderPage(w, r, http.StatusOK, "landing", viewData{Title: "Welcome"})
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) error {
	return s.renderPage(w, r, http.StatusOK, "register", viewData{Title: "Register", Form: registerForm{}})
}

// register never authenticates: success leads to the login view.
func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	form := registerForm{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	view := viewData{Title: "Register", Form: form.redacted()}
	if err := validate.Match(form.Password, form.ConfirmPassword); err != nil {
		return &formError{page: "register", view: view, err: err}
	}
	if err := validate.Struct(form); err != nil {
		return &formError{page: "register", view: view, err: err}
	}

	release, err := s.locks.Get(formRegister).TryAcquire()
	if err != nil {
		return s.busy(formRegister, "register", view)
	}
	defer release()

	result := s.identity.Register(r.Context(), identity.RegisterRequest{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if !result.OK() {
		return &formError{page: "register", view: view, err: result.Err(RegistrationFailed)}
	}

	if err := s.flash.Add(w, r, flash.Message{Type: flash.TypeSuccess, Text: RegistrationSucceeded}); err != nil {
		return apperr.Internal("set flash", err)
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	return nil
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) error {
	if s.session.Authenticated() {
		http.Redirect(w, r, guard.SafeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return nil
	}
	return s.renderPage(w, r, http.StatusOK, "login", viewData{
		Title: "Login",
		Form:  loginForm{},
		Next:  r.URL.Query().Get("next"),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	next := r.PostFormValue("next")
	view := viewData{Title: "Login", Form: loginForm{Username: form.Username}, Next: next}
	if err := validate.Struct(form); err != nil {
		return &formError{page: "login", view: view, err: err}
	}

	release, err := s.locks.Get(formLogin).TryAcquire()
	if err != nil {
		return s.busy(formLogin, "login", view)
	}
	defer release()

	result := s.identity.Login(r.Context(), identity.PasswordCredentials{
		Username: form.Username,
		Password: form.Password,
	})
	if !result.OK() {
		return &formError{page: "login", view: view, err: result.Err(LoginFailed)}
	}

	display := identity.Subject(result.Value.Access)
	if display == "" {
		display = form.Username
	}
	s.completeLogin(w, r, display, next)
	return nil
}

func (s *Server) loginFederated(w http.ResponseWriter, r *http.Request) error {
	next := r.PostFormValue("next")
	view := viewData{Title: "Login", Form: loginForm{}, Next: next}
	credential := strings.TrimSpace(r.PostFormValue("credential"))
	if credential == "" {
		return &formError{page: "login", view: view, err: apperr.Validation(MissingFederatedToken, nil)}
	}

	release, err := s.locks.Get(formFederated).TryAcquire()
	if err != nil {
		return s.busy(formFederated, "login", view)
	}
	defer release()

	result := s.identity.LoginWithFederatedToken(r.Context(), conceal.New(credential))
	if !result.OK() {
		return &formError{page: "login", view: view, err: result.Err(LoginFailed)}
	}
	s.completeLogin(w, r, identity.Subject(result.Value.Access), next)
	return nil
}

// completeLogin runs after the gateway stored the tokens: the session flips
// first, then the guard sees the navigation.
func (s *Server) completeLogin(w http.ResponseWriter, r *http.Request, display, next string) {
	s.session.Login(display)
	http.Redirect(w, r, guard.SafeNext(next), http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.session.Logout(r.Context()); err != nil {
		s.logger.Warn("logout could not clear stored tokens", "error", err)
	}
	if err := s.flash.Add(w, r, flash.Message{Type: flash.TypeInfo, Text: LoggedOut}); err != nil {
		return apperr.Internal("set flash", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}
