package application

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

// Page renders an html/template with the cdntags helpers available.
type Page struct {
	tmpl   *template.Template
	tags   *cdntags.Tags
	logger *zap.Logger
}

type pageData struct {
	Title       string
	Environment string
	CDNActive   bool
}

// NewPage parses the template at path.
func NewPage(path string, tags *cdntags.Tags, logger *zap.Logger) (*Page, error) {
	tmpl, err := template.New(filepath.Base(path)).Funcs(tags.FuncMap()).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Page{tmpl: tmpl, tags: tags, logger: logger}, nil
}

// Render executes the template into a buffer so a failing helper never
// produces a partial page.
func (p *Page) Render() ([]byte, error) {
	cfg := p.tags.Configuration()
	data := pageData{
		Title:       "CDN tags",
		Environment: cfg.Environment.String(),
		CDNActive:   cfg.CDNActive(),
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := p.Render()
	if err != nil {
		p.logger.Error("page render failed", zap.String("path", r.URL.Path), zap.Error(err))
		status := http.StatusInternalServerError
		msg := "page rendering failed"
		if errors.Is(err, cdntags.ErrMissingAssetMapping) {
			msg = "page rendering failed: missing CDN asset mapping"
		}
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
