package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xamu/xamu/pkg/config"
	"github.com/xamu/xamu/pkg/environment"
	"github.com/xamu/xamu/pkg/pg"
)

type migrateConfig struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	Postgres pg.Config
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(pg.MigrateUp), string(pg.MigrateDown), string(pg.MigrateStatus)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg migrateConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			direction := pg.MigrateUp
			if len(args) == 1 {
				direction = pg.MigrateCommand(args[0])
			}

			log := newLogger(environment.Parse(cfg.AppEnv))
			pool, err := pg.Connect(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(cmd.Context(), pool, cfg.Postgres, direction, log); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			return nil
		},
	}
}
