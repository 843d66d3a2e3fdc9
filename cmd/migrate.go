package main

import (
	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users and transactions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			models, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := data.Migrate(models.Transactions.DB); err != nil {
				return err
			}
			log.Infof("schema up to date (%s)", cfg.DB.Driver)
			return nil
		},
	}
}
