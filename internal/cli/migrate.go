package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coursehub-backend/internal/database"
	"coursehub-backend/internal/logging"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		databaseURL string
		dir         string
	)

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending SQL migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}

			level := "info"
			if rootOpts.Verbose {
				level = "debug"
			}
			log, err := logging.New(level)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := database.NewPostgresPool(databaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.RunMigrations(pool, dir, log); err != nil {
				return err
			}
			log.Info("migrations up to date", zap.String("dir", dir))
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string (default $DATABASE_URL)")
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding numbered .sql files")

	return cmd
}
