package main

import (
	"bufio"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xamu/xamu/svc/access"
	"github.com/xamu/xamu/svc/account"
)

var errNoPassword = errors.New("password is required: use --password or --password-stdin")

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage platform administrators",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		name          string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create a platform administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errNoPassword
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errNoPassword
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.accounts.CreatePlatformAdmin(cmd.Context(),
				access.SystemCrossTenant("cli", "admin create"),
				account.NewUser{Email: args[0], Name: name, Password: password},
			)
			if err != nil {
				return err
			}
			return writeJSON(u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "Platform administrator", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}
