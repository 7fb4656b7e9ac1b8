package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type inviteOutput struct {
	ID        uuid.UUID `json:"id"`
	Tenant    string    `json:"tenant"`
	Email     string    `json:"email"`
	ExpiresAt string    `json:"expires_at"`
	URL       string    `json:"url"`
}

func newInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <tenant-code> <email>",
		Short: "Invite the administrator of an establishment",
		Long: "Issues a single-use invitation and emails it. Pending invitations to the same\n" +
			"address in the same establishment are revoked. The link is printed once.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.directory.GetByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issued, err := a.invitations.Issue(cmd.Context(), t.ID, args[1], uuid.Nil)
			if err != nil {
				return err
			}
			return writeJSON(inviteOutput{
				ID:        issued.Invitation.ID,
				Tenant:    t.Code,
				Email:     issued.Invitation.Email,
				ExpiresAt: issued.Invitation.ExpiresAt.Format(time.RFC3339),
				URL:       issued.URL,
			})
		},
	}
}
