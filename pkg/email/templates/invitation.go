package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"
)

// Invitation is the data shown in invitation and reminder emails.
// Reminders carry no AcceptURL: only the first email holds the token.
type Invitation struct {
	EstablishmentName string
	Role              string
	AcceptURL         string
	ExpiresAt         time.Time
	Reminder          bool
}

func (d Invitation) Subject() string {
	if d.Reminder {
		return fmt.Sprintf("Reminder: your invitation to %s expires soon", d.EstablishmentName)
	}
	return fmt.Sprintf("You have been invited to %s", d.EstablishmentName)
}

func (d Invitation) expires() string {
	return d.ExpiresAt.UTC().Format("2 Jan 2006 15:04 MST")
}

// InvitationHTML is the HTML body of an invitation email.
func InvitationHTML(d Invitation) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		action := `<p>Use the link from your original invitation email.</p>`
		lead := "Your invitation is still waiting. Join"
		if !d.Reminder {
			lead = "You have been invited to join"
			action = fmt.Sprintf(`<p><a href="%s">Accept invitation</a></p>`,
				templ.EscapeString(string(templ.URL(d.AcceptURL))))
		}
		_, err := fmt.Fprintf(w,
			`<!doctype html><html><body style="font-family:sans-serif">`+
				`<p>%s <strong>%s</strong> as <strong>%s</strong>.</p>`+
				`%s`+
				`<p style="color:#666">This link expires on %s and can be used once.</p>`+
				`</body></html>`,
			templ.EscapeString(lead),
			templ.EscapeString(d.EstablishmentName),
			templ.EscapeString(d.Role),
			action,
			templ.EscapeString(d.expires()),
		)
		return err
	})
}

// InvitationText is the plain-text body of an invitation email.
func InvitationText(d Invitation) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if d.Reminder {
			_, err := fmt.Fprintf(w, "Your invitation to join %s as %s is still waiting.\n\n"+
				"Use the link from your original invitation email. It expires on %s.\n",
				d.EstablishmentName, d.Role, d.expires())
			return err
		}
		_, err := fmt.Fprintf(w, "You have been invited to join %s as %s.\n\nAccept: %s\n\nThis link expires on %s and can be used once.\n",
			d.EstablishmentName, d.Role, d.AcceptURL, d.expires())
		return err
	})
}
