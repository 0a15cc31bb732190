// Package render writes HTML pages parsed from an fs.FS, plus small JSON and
// text helpers for the handlers that answer API clients.
package render

import (
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
)

// FuncMap defines template functions.
type FuncMap = template.FuncMap

// Options configures the template engine.
type Options struct {
	// Layout is the file every page is parsed together with.
	Layout string
	// Partials is a glob of shared definitions, such as "partials/*.html".
	Partials string
	Funcs    FuncMap
	// Reload parses the templates again on every render.
	Reload bool
}

// Engine renders HTML templates.
type Engine struct {
	fsys      fs.FS
	options   Options
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewEngine builds an engine over fsys and parses its top-level *.html files.
func NewEngine(fsys fs.FS, options Options) (*Engine, error) {
	engine := &Engine{fsys: fsys, options: options}
	return engine, engine.Load()
}

// Load parses every page template.
func (e *Engine) Load() error {
	pages, err := fs.Glob(e.fsys, "*.html")
	if err != nil {
		return err
	}

	var shared []string
	if e.options.Layout != "" {
		shared = append(shared, e.options.Layout)
	}
	if e.options.Partials != "" {
		partials, err := fs.Glob(e.fsys, e.options.Partials)
		if err != nil {
			return err
		}
		shared = append(shared, partials...)
	}

	templates := make(map[string]*template.Template)
	for _, page := range pages {
		if page == e.options.Layout {
			continue
		}
		tmpl := template.New(path.Base(page))
		if e.options.Funcs != nil {
			tmpl = tmpl.Funcs(e.options.Funcs)
		}
		files := append(append([]string{}, shared...), page)
		tmpl, err := tmpl.ParseFS(e.fsys, files...)
		if err != nil {
			return err
		}
		if e.options.Layout != "" {
			tmpl = tmpl.Lookup(path.Base(e.options.Layout))
		}
		templates[page] = tmpl
	}
	if len(templates) == 0 {
		return errors.New("no page templates found")
	}

	e.mu.Lock()
	e.templates = templates
	e.mu.Unlock()
	return nil
}

// Render writes a template response.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) error {
	if e.options.Reload {
		if err := e.Load(); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}

	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return http.ErrMissingFile
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(buf.String()))
	return err
}

// WantsJSON reports whether the client asked for JSON rather than a page.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// Text writes a text response.
func Text(w http.ResponseWriter, status int, message string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(message))
	return err
}
