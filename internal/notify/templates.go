package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/dom/auth-backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[domain.NotificationKind]string{
	domain.NotificationVerificationCode: "Verify your email",
	domain.NotificationWelcome:          "Welcome!",
	domain.NotificationResetLink:        "Reset your password",
	domain.NotificationResetSuccess:     "Password reset successful",
}

// Render returns the subject and HTML body for msg.
func Render(msg Message) (string, string, error) {
	subject, ok := subjects[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(msg.Kind)+".html", msg.Data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	return subject, buf.String(), nil
}
