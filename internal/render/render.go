// Package render turns the message collection into HTML pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"guestbook/internal/model"
)

// ReadTemplate is the page rendered for GET /read.
const ReadTemplate = "read.html"

// Renderer loads templates from Dir. Templates are parsed on every call so
// edits show up without a restart.
type Renderer struct {
	Dir string
}

func New(dir string) *Renderer {
	return &Renderer{Dir: dir}
}

// Page is the data every message page template receives.
type Page struct {
	Messages []model.Message
}

// Messages renders the read page for doc.
func (r *Renderer) Messages(doc *model.Document) ([]byte, error) {
	return r.Render(ReadTemplate, Page{Messages: doc.Messages()})
}

// Render executes the named template into memory. Nothing is returned
// unless execution finished without error.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	tmpl, err := template.ParseFiles(filepath.Join(r.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
