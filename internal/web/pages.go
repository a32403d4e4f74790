// Package web renders the public HTML pages of the ring.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data every template receives.
type Page struct {
	RingName string
	Title    string
	Message  string
	Sites    []string
	Path     string
}

type Pages struct {
	ringName string
	pages    map[string]*template.Template
}

func New(ringName string) (*Pages, error) {
	names := []string{"index", "list", "notice"}
	p := &Pages{ringName: ringName, pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

// Render executes the named page into a buffer first so a template error
// never produces a half written response.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data Page) {
	t, ok := p.pages[name]
	if !ok {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	if data.RingName == "" {
		data.RingName = p.ringName
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		zap.L().Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
