package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/priyankishorems/rampgate/internal/data"
	"github.com/priyankishorems/rampgate/utils"
	"github.com/spf13/cobra"
)

var cfg = &utils.Config{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rampgate",
		Short:         "Fiat-to-crypto purchase gateway in front of MoonPay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetHeader("${time_rfc3339} ${level}")
			log.SetLevel(parseLevel(cfg.LogLevel))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Env, "env", "development", "Environment name")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&cfg.DB.Driver, "db-driver", utils.DBDriver, "Database driver (sqlite, postgres)")
	pf.StringVar(&cfg.DB.Name, "db-name", utils.DBName, "Database name, or file path for sqlite")
	pf.StringVar(&cfg.DB.Host, "db-host", utils.DBHost, "Database host")
	pf.StringVar(&cfg.DB.Port, "db-port", utils.DBPort, "Database port")
	pf.StringVar(&cfg.DB.Username, "db-username", utils.DBUsername, "Database user")
	pf.StringVar(&cfg.DB.Password, "db-password", utils.DBPassword, "Database password")
	pf.StringVar(&cfg.JWT.Secret, "jwt-secret", utils.JWTSecret, "JWT secret; empty disables API auth")
	pf.StringVar(&cfg.JWT.Issuer, "jwt-issuer", utils.JWTIssuer, "JWT issuer")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newTokenCmd())

	return root
}

func openDB() (*data.Models, func(), error) {
	db, err := data.DB{
		Driver:   cfg.DB.Driver,
		Database: cfg.DB.Name,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Username: cfg.DB.Username,
		Password: cfg.DB.Password,
	}.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("error in opening db: %w", err)
	}

	models := data.NewModel(db)
	return &models, func() { db.Close() }, nil
}

func parseLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
