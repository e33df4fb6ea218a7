package main

import (
	"github.com/aussiebroadwan/authd/internal/auth/app"
	"github.com/spf13/cobra"
)

// NewHousekeepingCmd creates the housekeeping subcommand.
func NewHousekeepingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "housekeeping",
		Short: "Delete expired sessions and verification codes once",
		Long: `Run a single cleanup pass and exit. Useful from cron when the server's
own background sweep is not enough.`,
		RunE: runHousekeeping,
	}
}

func runHousekeeping(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	res := application.RunHousekeeping(cmd.Context())
	cmd.Printf("Deleted %d expired sessions and %d expired verification codes\n", res.Sessions, res.Codes)
	return nil
}
