package web

import (
	"errors"
	"net/http"

	"github.com/devmarvs/digibank/apperr"
	"github.com/devmarvs/digibank/inflight"
	"github.com/devmarvs/digibank/render"
	"github.com/devmarvs/digibank/validate"
)

// BusyMessage is shown when a form is submitted again before the first
// submission finished.
const BusyMessage = "A request is already in progress. Please wait."

var errNotFound = apperr.NotFound("Page not found.", nil)

// handlerFunc is a view handler. A returned error is rendered by handle.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// formError re-renders page with the submitted form and a message.
type formError struct {
	page string
	view viewData
	err  error
}

func (e *formError) Error() string { return e.page + ": " + e.err.Error() }
func (e *formError) Unwrap() error { return e.err }

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.renderError(w, r, err)
		}
	}
}

// renderError is the single place an error becomes a response.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again."
	if errors.Is(err, inflight.ErrBusy) {
		err = apperr.Conflict(BusyMessage)
	}
	if appErr := apperr.As(err); appErr != nil {
		status = appErr.Status
		if appErr.Code != apperr.CodeInternal {
			message = validate.Message(err)
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}

	var ferr *formError
	if errors.As(err, &ferr) {
		view := ferr.view
		s.fillView(w, r, &view)
		view.Error = message
		if renderErr := s.engine.Render(w, status, ferr.page, view); renderErr == nil {
			return
		}
	}

	if render.WantsJSON(r) {
		_ = render.JSON(w, status, map[string]string{"error": message})
		return
	}
	view := viewData{Title: http.StatusText(status), Status: status, Error: message}
	s.fillView(w, r, &view)
	if renderErr := s.engine.Render(w, status, "error", view); renderErr != nil {
		s.logger.Error("render error page", "error", renderErr)
		_ = render.Text(w, status, message)
	}
}

func (s *Server) renderPanic(w http.ResponseWriter, r *http.Request, err error) {
	s.renderError(w, r, apperr.Internal("panic", err))
}

func csrfFailure(http.ResponseWriter, *http.Request) error {
	return apperr.Forbidden("Your form expired. Please reload the page and try again.", nil)
}

// busy records a rejected duplicate submission and returns the error to show.
func (s *Server) busy(form, page string, view viewData) error {
	if s.metrics != nil {
		s.metrics.ObserveRejectedSubmission(form)
	}
	return &formError{page: page, view: view, err: apperr.Conflict(BusyMessage)}
}
