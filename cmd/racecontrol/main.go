// Command racecontrol runs the endurance race stint tracker: the HTTP API,
// the spectator bot, and admin commands against the same database.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/config"
	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/logging"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "racecontrol",
	Short: "Race Control - driver stints for endurance sim racing teams",
	Long: `racecontrol tracks which driver is in the car for every team of an
endurance event. Teams swap drivers through the HTTP API; spectators follow
the grid over HTTP or Telegram.

Entry lists are imported from CSV, XLSX, Google Sheets or published HTML tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "racecontrol.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*sql.DB, error) {
	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database open", zap.String("path", cfg.Database.Path))
	return conn, nil
}
