package delivery

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	loginTemplate     *template.Template
	dashboardTemplate *template.Template
	resetTemplate     *template.Template
	errorTemplate     *template.Template
)

// ParseAllTemplates pre-parses all HTML templates at startup.
func ParseAllTemplates() error {
	parse := func(name string) (*template.Template, error) {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		return t, nil
	}

	var err error
	if loginTemplate, err = parse("login.html"); err != nil {
		return err
	}
	if dashboardTemplate, err = parse("dashboard.html"); err != nil {
		return err
	}
	if resetTemplate, err = parse("reset.html"); err != nil {
		return err
	}
	if errorTemplate, err = parse("error.html"); err != nil {
		return err
	}
	return nil
}
