package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable notification template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "password-reset",
			Name:    "Password Reset",
			Subject: "Password Reset Request",
			Body:    "You are receiving this email because you (or someone else) has requested the reset of a password. Please visit: {{reset_url}}\n\nThis link expires in 10 minutes. If you did not request this, please ignore this email.",
		},
		{
			ID:      "welcome",
			Name:    "Welcome",
			Subject: "Welcome to {{hospital_name}}",
			Body:    "Dear {{name}}, your account has been created. You can now log in with your email address.",
		},
		{
			ID:      "appointment-booked",
			Name:    "Appointment Booked",
			Subject: "Appointment Confirmation",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time}} has been booked.",
		},
		{
			ID:      "appointment-canceled",
			Name:    "Appointment Canceled",
			Subject: "Appointment Canceled",
			Body:    "Dear {{patient_name}}, your appointment with Dr. {{doctor_name}} on {{date}} at {{time}} has been canceled.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
