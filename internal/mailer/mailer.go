// Package mailer is the mail dispatch port. The engine fires verification
// links and decision notices through it and never waits on delivery.
package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer sends one templated message. Implementations must be safe for
// concurrent use; the email flow calls Send from short-lived goroutines.
type Mailer interface {
	Send(ctx context.Context, to, templateName string, data map[string]string) error
}

// LogMailer logs instead of sending. Development default.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, templateName string, data map[string]string) error {
	m.log.Info().
		Str("to", to).
		Str("template", templateName).
		Interface("data", data).
		Msg("mail dispatch")
	return nil
}
