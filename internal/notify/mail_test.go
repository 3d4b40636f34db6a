package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veristay/internal/mailer"
	mailermocks "veristay/internal/mailer/mocks"
	id "veristay/pkg/domain"
)

func fixedLookup(addr string) EmailLookup {
	return func(context.Context, id.SubjectID) (string, error) {
		return addr, nil
	}
}

func TestMailNotifier_DocumentDecisionUsesLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	n := NewMailNotifier(mail, fixedLookup("student@iitb.ac.in"), nil, zerolog.Nop())

	mail.EXPECT().
		Send(gomock.Any(), "student@iitb.ac.in", mailer.TemplateDocumentDecision, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, data map[string]string) error {
			assert.Equal(t, "verified", data["outcome"])
			assert.Equal(t, "college_id", data["document_type"])
			return nil
		})

	err := n.NotifySubject(context.Background(), id.NewSubjectID(), EventDocumentVerified,
		map[string]string{"document_type": "college_id"})
	require.NoError(t, err)
}

func TestMailNotifier_EmailEventsUseClaimedAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	lookupCalled := false
	lookup := func(context.Context, id.SubjectID) (string, error) {
		lookupCalled = true
		return "", nil
	}
	n := NewMailNotifier(mail, lookup, nil, zerolog.Nop())

	mail.EXPECT().
		Send(gomock.Any(), "me@acmecorp.com", mailer.TemplateEmailDecision, gomock.Any()).
		Return(nil)

	err := n.NotifySubject(context.Background(), id.NewSubjectID(), EventEmailRejected,
		map[string]string{"email": "me@acmecorp.com", "reason": "not academic"})
	require.NoError(t, err)
	assert.False(t, lookupCalled)
}

func TestMailNotifier_SkipsWithoutAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	n := NewMailNotifier(mail, fixedLookup(""), nil, zerolog.Nop())

	err := n.NotifySubject(context.Background(), id.NewSubjectID(), EventDocumentRejected, nil)
	require.NoError(t, err)
}

func TestMailNotifier_SkipsEventsWithoutTemplate(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	n := NewMailNotifier(mail, fixedLookup("student@iitb.ac.in"), nil, zerolog.Nop())

	err := n.NotifySubject(context.Background(), id.NewSubjectID(), EventAadhaarVerified, nil)
	require.NoError(t, err)
}

func TestMailNotifier_AdminFanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	admins := []string{"ops@veristay.in", "trust@veristay.in"}
	n := NewMailNotifier(mail, fixedLookup(""), admins, zerolog.Nop())

	mail.EXPECT().
		Send(gomock.Any(), "ops@veristay.in", mailer.TemplateAdminEscalation, gomock.Any()).
		Return(errors.New("relay down"))
	mail.EXPECT().
		Send(gomock.Any(), "trust@veristay.in", mailer.TemplateAdminEscalation, gomock.Any()).
		Return(nil)

	err := n.NotifyAdmins(context.Background(), EventEmailEscalated,
		map[string]string{"email": "me@acmecorp.com", "domain": "acmecorp.com"})
	// One failed delivery surfaces, after every admin was attempted.
	require.Error(t, err)
}

func TestMailNotifier_NoAdminsConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	mail := mailermocks.NewMockMailer(ctrl)
	n := NewMailNotifier(mail, fixedLookup(""), nil, zerolog.Nop())

	err := n.NotifyAdmins(context.Background(), EventEmailEscalated, nil)
	require.NoError(t, err)
}
