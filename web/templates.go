package web

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"net/http"

	"github.com/devmarvs/digibank/accounts"
	"github.com/devmarvs/digibank/assets"
	"github.com/devmarvs/digibank/flash"
	"github.com/devmarvs/digibank/middleware"
	"github.com/devmarvs/digibank/render"
	"github.com/devmarvs/digibank/session"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// viewData is the data every page template receives.
type viewData struct {
	Title          string
	Status         int
	State          session.State
	CSRFToken      string
	Flash          []flash.Message
	Error          string
	GoogleClientID string
	Next           string

	Form          any
	Accounts      []accounts.Account
	AccountsError string
	Currencies    []string
}

// fillView adds the fields shared by every page and consumes pending flash
// messages.
func (s *Server) fillView(w http.ResponseWriter, r *http.Request, view *viewData) {
	view.State = s.session.State()
	view.CSRFToken = middleware.CSRFToken(r)
	view.GoogleClientID = s.googleClientID
	messages, err := s.flash.Pop(w, r)
	if err != nil {
		s.logger.Debug("discarding flash cookie", "error", err)
	}
	view.Flash = append(view.Flash, messages...)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, view viewData) error {
	s.fillView(w, r, &view)
	return s.engine.Render(w, status, name, view)
}

// Funcs returns template helpers. asset fingerprints static file URLs.
func Funcs(static *assets.Resolver) render.FuncMap {
	return render.FuncMap{
		"csrfField": CSRFField,
		"asset":     static.Func(),
	}
}

// CSRFField renders the hidden CSRF form field.
func CSRFField(token string) template.HTML {
	if token == "" {
		return ""
	}
	return template.HTML(fmt.Sprintf(
		"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">",
		html.EscapeString(token),
	))
}
