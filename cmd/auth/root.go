package main

import (
	"github.com/aussiebroadwan/authd/internal/auth/app"
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - credential and session service",
		Long: `authd registers accounts, logs users in with email and password and
keeps them signed in with rotating access and refresh tokens. Email
verification and password reset are delivered by mail.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	app.BindFlags(cmd.PersistentFlags())

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHousekeepingCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd from its parsed flags.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	return app.LoadConfig(configFile, cmd.Flags())
}
