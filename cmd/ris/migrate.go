package main

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ris/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var (
		dir         string
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Manage the Postgres graph and embedding schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			if databaseURL == "" {
				databaseURL = c.cfg.Graph.DatabaseURL
			}
			if databaseURL == "" {
				return fmt.Errorf("--database or DATABASE_URL is required")
			}

			m, err := migrate.New("file://"+dir, databaseURL)
			if err != nil {
				return fmt.Errorf("open migrations: %w", err)
			}
			defer m.Close()

			switch action {
			case "up":
				err = m.Up()
			case "down":
				err = m.Down()
			case "version":
				version, dirty, verr := m.Version()
				if errors.Is(verr, migrate.ErrNilVersion) {
					fmt.Fprintln(c.out, "no migrations applied")
					return nil
				}
				if verr != nil {
					return verr
				}
				fmt.Fprintf(c.out, "version %d (dirty: %t)\n", version, dirty)
				return nil
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("[CLI] Schema is up to date")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", action, err)
			}
			logger.Info("[CLI] Migrations applied", "action", action)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "path", "migrations", "migrations directory")
	cmd.Flags().StringVar(&databaseURL, "database", "", "postgres URL, defaults to DATABASE_URL")
	return cmd
}
