// Package email sends transactional mail.
//
// EmailSender is implemented by PostmarkSender for production and by
// DevSender, which writes each message to disk. NewSender picks one based on
// Config. Message bodies are rendered with templ components from the
// templates subpackage.
//
// # Usage
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//		return err
//	}
//
//	data := templates.Invitation{EstablishmentName: t.Name, AcceptURL: link, ExpiresAt: exp}
//	html, err := templates.Render(ctx, templates.InvitationHTML(data))
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   addr,
//		Subject:  data.Subject(),
//		BodyHTML: html,
//		Tag:      "invitation",
//		Metadata: map[string]string{"tenant_code": t.Code},
//	})
//
// # Development
//
// Without POSTMARK_SERVER_TOKEN every message is written under
// Config.DevDir as .html and .txt bodies plus a .json file with the
// envelope, all named after the send time and the message tag. Nothing
// leaves the machine.
//
// # Errors
//
// SendEmailParams.Validate rejects messages without a valid recipient,
// subject or body with ErrInvalidParams. Provider failures are joined with
// ErrFailedToSendEmail; an incomplete Config yields ErrInvalidConfig.
package email
