package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseData struct {
	Title   string
	Heading string
}

type leadAssignedData struct {
	baseData
	LeadName     string
	BusinessName string
	Priority     string
}

type followUpData struct {
	baseData
	LeadName     string
	BusinessName string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
