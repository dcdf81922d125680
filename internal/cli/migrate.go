package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			pg, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pg.Pool.Close()

			if err := pg.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
