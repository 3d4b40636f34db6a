package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"veristay/internal/mailer"
	id "veristay/pkg/domain"
)

// EmailLookup resolves a subject's delivery address. Returning an empty
// address with a nil error means the subject has no mailable address yet.
type EmailLookup func(ctx context.Context, subjectID id.SubjectID) (string, error)

// MailNotifier delivers notifications over the configured mailer. Events with
// no mail template, and subjects with no known address, are skipped silently;
// this port is best-effort by contract.
type MailNotifier struct {
	mail        mailer.Mailer
	lookup      EmailLookup
	adminEmails []string
	log         zerolog.Logger
}

func NewMailNotifier(mail mailer.Mailer, lookup EmailLookup, adminEmails []string, log zerolog.Logger) *MailNotifier {
	return &MailNotifier{
		mail:        mail,
		lookup:      lookup,
		adminEmails: adminEmails,
		log:         log.With().Str("component", "mail-notifier").Logger(),
	}
}

func (n *MailNotifier) NotifySubject(ctx context.Context, subjectID id.SubjectID, event Event, data map[string]string) error {
	templateName, outcome := subjectTemplate(event)
	if templateName == "" {
		return nil
	}

	to := data["email"]
	if to == "" {
		addr, err := n.lookup(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("resolve notification address: %w", err)
		}
		to = addr
	}
	if to == "" {
		n.log.Debug().
			Str("subject_id", subjectID.String()).
			Str("event", string(event)).
			Msg("subject has no mailable address, skipping")
		return nil
	}

	payload := map[string]string{"outcome": outcome}
	for k, v := range data {
		payload[k] = v
	}
	return n.mail.Send(ctx, to, templateName, payload)
}

func (n *MailNotifier) NotifyAdmins(ctx context.Context, event Event, data map[string]string) error {
	if len(n.adminEmails) == 0 {
		n.log.Warn().Str("event", string(event)).Msg("no admin addresses configured, dropping escalation")
		return nil
	}

	var firstErr error
	for _, to := range n.adminEmails {
		if err := n.mail.Send(ctx, to, mailer.TemplateAdminEscalation, data); err != nil {
			n.log.Warn().Err(err).Str("to", to).Msg("admin escalation mail failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// subjectTemplate maps an event to its mail template and the outcome word the
// template interpolates. Events without a template return "".
func subjectTemplate(event Event) (templateName, outcome string) {
	switch event {
	case EventDocumentUnderReview:
		return mailer.TemplateDocumentDecision, "placed under review"
	case EventDocumentVerified:
		return mailer.TemplateDocumentDecision, "verified"
	case EventDocumentRejected:
		return mailer.TemplateDocumentDecision, "rejected"
	case EventEmailApproved:
		return mailer.TemplateEmailDecision, "approved"
	case EventEmailRejected:
		return mailer.TemplateEmailDecision, "rejected"
	default:
		return "", ""
	}
}
