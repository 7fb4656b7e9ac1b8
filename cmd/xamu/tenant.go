package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xamu/xamu/pkg/tenant"
	"github.com/xamu/xamu/svc/directory"
)

// newTenantCmd groups the establishment commands. They write JSON to stdout.
func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage establishments",
	}
	cmd.AddCommand(
		newTenantCreateCmd(),
		newTenantListCmd(),
		newTenantStatusCmd("activate", "Reopen an establishment", (*directory.Service).Activate),
		newTenantStatusCmd("deactivate", "Close an establishment and revoke its pending invitations", (*directory.Service).Deactivate),
	)
	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	var in directory.NewTenant

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an establishment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.directory.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeJSON(t)
		},
	}
	cmd.Flags().StringVar(&in.Code, "code", "", "Establishment code, used in URLs (default derived from --name)")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&in.Domain, "domain", "", "Custom domain (optional)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTenantListCmd() *cobra.Command {
	var activeOnly, inactiveOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List establishments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			q := directory.ListQuery{Limit: limit}
			switch {
			case activeOnly:
				q.Active = new(bool)
				*q.Active = true
			case inactiveOnly:
				q.Active = new(bool)
			}
			tenants, err := a.directory.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			return writeJSON(tenants)
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active establishments")
	cmd.Flags().BoolVar(&inactiveOnly, "inactive", false, "Only inactive establishments")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("active", "inactive")
	return cmd
}

// newTenantStatusCmd looks the establishment up by code and applies change.
func newTenantStatusCmd(
	use, short string,
	change func(*directory.Service, context.Context, uuid.UUID) (*tenant.Tenant, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
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
			t, err = change(a.directory, cmd.Context(), t.ID)
			if err != nil {
				return err
			}
			return writeJSON(t)
		},
	}
}
