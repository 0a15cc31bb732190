package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/credstore"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/guard"
	"github.com/devmarvs/digibank/identity"
	"github.com/devmarvs/digibank/validate"
)

// Messages shown by the dashboard.
const (
	AccountsUnavailable = "Could not load your accounts."
	SessionExpired      = "Your session has expired. Please login again."
)

type accountForm struct {
	AccountName string
	AccountType string
	Balance     string
	Currency    string
	Status      string
}

func defaultAccountForm() accountForm {
	return accountForm{AccountType: accounts.TypeSavings, Currency: accounts.Currencies[0], Status: accounts.StatusActive}
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) error {
	view, err := s.dashboardView(r.Context(), defaultAccountForm())
	if err != nil {
		return s.expire(w, r, err)
	}
	return s.renderPage(w, r, http.StatusOK, "dashboard", view)
}

// dashboardView loads the account list. Only an unauthorized answer is
// returned as an error; other failures are shown inside the page.
func (s *Server) dashboardView(ctx context.Context, form accountForm) (viewData, error) {
	view := viewData{Title: "Dashboard", Form: form, Currencies: accounts.Currencies}

	userID, err := s.userID(ctx)
	if err != nil {
		s.logger.Debug("dashboard without user id", "error", err)
		view.AccountsError = AccountsUnavailable
		return view, nil
	}
	list, err := s.accounts.ListByUser(ctx, userID)
	switch {
	case apperr.Is(err, apperr.CodeUnauthorized):
		return view, err
	case err != nil:
		view.AccountsError = validate.Message(err)
	default:
		view.Accounts = list
	}
	return view, nil
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) error {
	form := accountForm{
		AccountName: strings.TrimSpace(r.PostFormValue("accountName")),
		AccountType: r.PostFormValue("accountType"),
		Balance:     strings.TrimSpace(r.PostFormValue("balance")),
		Currency:    r.PostFormValue("currency"),
		Status:      r.PostFormValue("status"),
	}
	userID, err := s.userID(r.Context())
	if err != nil {
		return apperr.BadRequest(AccountsUnavailable, err)
	}
	req := accounts.CreateRequest{
		UserID:      userID,
		AccountName: form.AccountName,
		AccountType: form.AccountType,
		Balance:     form.Balance,
		Currency:    form.Currency,
		Status:      form.Status,
	}
	if err := validate.Struct(req); err != nil {
		return s.dashboardError(w, r, form, err)
	}

	release, err := s.locks.Get(formCreateAccount).TryAcquire()
	if err != nil {
		view, loadErr := s.dashboardView(r.Context(), form)
		if loadErr != nil {
			return s.expire(w, r, loadErr)
		}
		return s.busy(formCreateAccount, "dashboard", view)
	}
	defer release()

	if _, err := s.accounts.Create(r.Context(), req); err != nil {
		if apperr.Is(err, apperr.CodeUnauthorized) {
			return s.expire(w, r, err)
		}
		return s.dashboardError(w, r, form, err)
	}

	if err := s.flash.Add(w, r, flash.Message{Type: flash.TypeSuccess, Text: "Account created successfully for " + form.AccountName + "!"}); err != nil {
		return apperr.Internal("set flash", err)
	}
	http.Redirect(w, r, guard.DashboardPath, http.StatusSeeOther)
	return nil
}

func (s *Server) dashboardError(w http.ResponseWriter, r *http.Request, form accountForm, cause error) error {
	view, err := s.dashboardView(r.Context(), form)
	if err != nil {
		return s.expire(w, r, err)
	}
	return &formError{page: "dashboard", view: view, err: cause}
}

// expire ends a session the accounts service no longer accepts.
func (s *Server) expire(w http.ResponseWriter, r *http.Request, cause error) error {
	if !apperr.Is(cause, apperr.CodeUnauthorized) {
		return cause
	}
	s.logger.Info("accounts service rejected the access token; logging out")
	if err := s.session.Logout(r.Context()); err != nil {
		s.logger.Warn("logout could not clear stored tokens", "error", err)
	}
	if err := s.flash.Add(w, r, flash.Message{Type: flash.TypeError, Text: SessionExpired}); err != nil {
		return apperr.Internal("set flash", err)
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
	return nil
}

// userID resolves the owner of the dashboard from the stored access token.
func (s *Server) userID(ctx context.Context) (int64, error) {
	token, err := s.tokens.AccessToken(ctx)
	if errors.Is(err, credstore.ErrNotFound) {
		return 0, accounts.ErrNoUser
	}
	if err != nil {
		return 0, err
	}
	claims, err := identity.ParseClaims(token)
	if err != nil {
		return 0, err
	}
	return accounts.UserID(claims)
}
