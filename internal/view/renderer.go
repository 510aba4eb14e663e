package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names.
const (
	PageHome        = "home"
	PageCollections = "collections"
	PageProducts    = "products"
	PageCart        = "cart"
	PageCheckout    = "checkout"
	PageAcademy     = "academy"
	PageContact     = "contact"
)

var pageNames = []string{PageHome, PageCollections, PageProducts, PageCart, PageCheckout, PageAcademy, PageContact}

// Renderer executes the page templates. It is safe for concurrent use.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the shared layout and components once and clones them for each page.
func NewRenderer() (*Renderer, error) {
	base, err := template.New("base").
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/layout.html", "templates/components.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		page, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = page
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page with data. Nothing is written if execution fails.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
