package mailer

import (
	"fmt"
	"strings"
	"text/template"
)

// Template names used by the verification flows.
const (
	TemplateEmailVerificationLink = "college_email_verification"
	TemplateDocumentDecision      = "document_decision"
	TemplateEmailDecision         = "email_decision"
	TemplateAdminEscalation       = "admin_escalation"
)

var bodies = map[string]string{
	TemplateEmailVerificationLink: "Hi,\n\nConfirm your college email by opening the link below within 24 hours:\n{{.link}}\n\nIf you did not request this, ignore this message.\n",
	TemplateDocumentDecision:      "Hi,\n\nYour {{.document_type}} was {{.outcome}}.{{if .reason}} Reason: {{.reason}}{{end}}\n",
	TemplateEmailDecision:         "Hi,\n\nYour college email verification was {{.outcome}}.{{if .reason}} Reason: {{.reason}}{{end}}\n",
	TemplateAdminEscalation:       "A college email verification needs manual review.\n\nSubject: {{.subject_id}}\nEmail: {{.email}}\nDomain: {{.domain}}\n",
}

var subjects = map[string]string{
	TemplateEmailVerificationLink: "Confirm your college email",
	TemplateDocumentDecision:      "Update on your verification document",
	TemplateEmailDecision:         "Update on your college email verification",
	TemplateAdminEscalation:       "College email verification awaiting review",
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		out[name] = template.Must(template.New(name).Parse(body))
	}
	return out
}()

// Render produces the subject line and body for a named template.
func Render(templateName string, data map[string]string) (subject, body string, err error) {
	tmpl, ok := parsed[templateName]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", templateName)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render mail template %q: %w", templateName, err)
	}
	return subjects[templateName], sb.String(), nil
}
