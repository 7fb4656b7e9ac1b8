package invitation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xamu/xamu/pkg/email"
	"github.com/xamu/xamu/pkg/email/templates"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/tenant"
)

// Notice is one message to an invitee.
type Notice struct {
	Invitation *Invitation
	Tenant     *tenant.Tenant
	AcceptURL  string
	Reminder   bool
}

// Notifier delivers invitation emails. The service logs its errors and
// never changes invitation state because of them.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice) error

func (f NotifierFunc) Notify(ctx context.Context, n Notice) error { return f(ctx, n) }

// EmailNotifier renders the invitation templates and hands them to an
// email.EmailSender.
type EmailNotifier struct {
	sender email.EmailSender
	log    *slog.Logger
}

// A nil log discards.
func NewEmailNotifier(sender email.EmailSender, log *slog.Logger) *EmailNotifier {
	if log == nil {
		log = logger.Discard()
	}
	return &EmailNotifier{sender: sender, log: log}
}

// Notify renders both the HTML and text bodies. Reminders use the same
// templates with a different subject.
func (n *EmailNotifier) Notify(ctx context.Context, notice Notice) error {
	data := templates.Invitation{
		EstablishmentName: notice.Tenant.Name,
		Role:              "administrator",
		AcceptURL:         notice.AcceptURL,
		ExpiresAt:         notice.Invitation.ExpiresAt,
		Reminder:          notice.Reminder,
	}
	html, err := templates.Render(ctx, templates.InvitationHTML(data))
	if err != nil {
		return fmt.Errorf("render invitation html: %w", err)
	}
	text, err := templates.Render(ctx, templates.InvitationText(data))
	if err != nil {
		return fmt.Errorf("render invitation text: %w", err)
	}

	tag := "invitation"
	if notice.Reminder {
		tag = "invitation-reminder"
	}
	err = n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   notice.Invitation.Email,
		Subject:  data.Subject(),
		BodyHTML: html,
		BodyText: text,
		Tag:      tag,
		Metadata: map[string]string{
			"tenant_code":   notice.Tenant.Code,
			"invitation_id": notice.Invitation.ID.String(),
		},
	})
	if err != nil {
		n.log.ErrorContext(ctx, "failed to send invitation email",
			logger.Error(err),
			logger.TenantID(notice.Tenant.ID),
			slog.String("invitation_id", notice.Invitation.ID.String()),
		)
		return err
	}
	return nil
}
