package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antigravity/raceControl/internal/db"
)

var resetConfirm string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every team, driver and stint",
	Long:  `Drops all tables and recreates an empty schema. Requires --confirm DELETE.`,
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetConfirm, "confirm", "", "Type DELETE to confirm")
}

func runReset(cmd *cobra.Command, args []string) error {
	if resetConfirm != db.ResetConfirmation {
		return fmt.Errorf("refusing to reset without --confirm %s", db.ResetConfirmation)
	}

	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Reset(cmd.Context(), conn); err != nil {
		return err
	}
	logger.Warn("database reset")
	fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
	return nil
}
