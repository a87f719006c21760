// Package web renders the handful of server-side pages the launch flows
// need: setup form, consent page, dashboard shell and terminal notices.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/lti-bridge-api/internal/dto"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer executes the embedded page templates. Strings that originate from
// the LMS pass through a strict sanitizer before they reach a template.
type Renderer struct {
	templates *template.Template
	policy    *bluemonday.Policy
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	return &Renderer{
		templates: templates,
		policy:    bluemonday.StrictPolicy(),
	}, nil
}

// Sanitize strips any markup from an LMS-supplied string.
func (r *Renderer) Sanitize(input string) string {
	return r.policy.Sanitize(input)
}

// Render executes the named template and writes it as the HTTP response.
func (r *Renderer) Render(c *fiber.Ctx, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)

	return c.Status(status).Send(buf.Bytes())
}

// MessagePage feeds the generic terminal notice template.
type MessagePage struct {
	Title   string
	Heading string
	Body    string
}

// SetupPage feeds the setup form template.
type SetupPage struct {
	Token string
	Form  dto.SetupFormData
	// Attached marks assistant ids already linked on reconfiguration.
	Attached map[uint]bool
}

// ConsentPage feeds the consent template.
type ConsentPage struct {
	Token        string
	ActivityName string
}

// DashboardPage feeds the dashboard shell template.
type DashboardPage struct {
	Token        string
	ActivityName string
	IsOwner      bool
}
