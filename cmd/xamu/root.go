package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/xamu/xamu/pkg/config"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "xamu",
		Short:         "Multi-tenant establishment platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadEnvFiles(envFiles...)
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load before reading configuration (default .env)")

	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newTenantCmd(),
		newInviteCmd(),
		newAdminCmd(),
	)
	return cmd
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
