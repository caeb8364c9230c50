// Package view renders the portal's HTML shells.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/kavaavi/career-portal/internal/core/domain"
)

//go:embed templates/*.html
var templates embed.FS

// Page is the data every view receives.
type Page struct {
	Name      string
	Title     string
	Path      string
	Gated     bool
	Session   domain.Session
	Dashboard string
	Params    map[string]string
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates once at startup.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"roleLabel": func(r domain.Role) string {
			switch r {
			case domain.RoleApplicant:
				return "Applicant"
			case domain.RoleHR:
				return "HR"
			case domain.RoleSuperAdmin:
				return "Super admin"
			default:
				return ""
			}
		},
	}
	tpl, err := template.New("root").Funcs(funcs).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
