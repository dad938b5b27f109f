package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/antigravity/raceControl/internal/importer"
	"github.com/antigravity/raceControl/internal/roster"
)

var (
	importShape  string
	importGID    string
	importRange  string
	importCols   columnFlags
	sheetBaseURL string
)

type columnFlags struct {
	team    string
	class   string
	teamNo  string
	driver  string
	drivers []string
}

func (c columnFlags) apply(m *importer.Mapping) {
	if c.team != "" {
		m.Team = c.team
	}
	if c.class != "" {
		m.Class = c.class
	}
	if c.teamNo != "" {
		m.TeamNo = c.teamNo
	}
	if c.driver != "" {
		m.Driver = c.driver
	}
	if len(c.drivers) > 0 {
		m.Drivers = c.drivers
	}
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an entry list into the roster",
	Long: `Adds teams, drivers and memberships from an entry list. Importing the same
list twice changes nothing; existing PINs and active flags are kept.

Shapes:
  wide: one row per team, one column per driver
  long: one row per team and driver pair`,
}

var importCSVCmd = &cobra.Command{
	Use:   "csv [file]",
	Short: "Import a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importFile(cmd, args[0], importer.ReadCSV)
	},
}

var importXLSXCmd = &cobra.Command{
	Use:   "xlsx [file]",
	Short: "Import the first sheet of an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importFile(cmd, args[0], importer.ReadXLSX)
	},
}

var importSheetCmd = &cobra.Command{
	Use:   "sheet [spreadsheet-id]",
	Short: "Import a Google Sheet",
	Long: `Without --range the sheet must be shared for viewing and is read through its
CSV export (--gid picks the tab). With --range it is read through the Sheets
API using the configured service account.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportSheet,
}

var importHTMLCmd = &cobra.Command{
	Use:   "html [url]",
	Short: "Import the first table of a web page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importRemote(cmd, func(ctx context.Context) (importer.Table, error) {
			return importer.FetchHTMLTable(ctx, &http.Client{}, args[0])
		})
	},
}

func init() {
	importCmd.PersistentFlags().StringVar(&importShape, "shape", "wide", "Entry list shape: wide or long")
	importCmd.PersistentFlags().StringVar(&importCols.team, "team-col", "", "Team column (default: guessed)")
	importCmd.PersistentFlags().StringVar(&importCols.class, "class-col", "", "Class column (default: guessed)")
	importCmd.PersistentFlags().StringVar(&importCols.teamNo, "team-no-col", "", "Car number column (default: guessed)")
	importCmd.PersistentFlags().StringVar(&importCols.driver, "driver-col", "", "Driver column, long shape (default: guessed)")
	importCmd.PersistentFlags().StringSliceVar(&importCols.drivers, "driver-cols", nil, "Driver columns, wide shape (default: guessed)")

	importSheetCmd.Flags().StringVar(&importGID, "gid", "0", "Tab id for the CSV export")
	importSheetCmd.Flags().StringVar(&importRange, "range", "", "A1 range read through the Sheets API, e.g. Entries!A:Z")
	importSheetCmd.Flags().StringVar(&sheetBaseURL, "sheets-url", importer.DefaultSheetsBaseURL, "Base URL of the spreadsheet export")
	importSheetCmd.Flags().MarkHidden("sheets-url")

	importCmd.AddCommand(importCSVCmd)
	importCmd.AddCommand(importXLSXCmd)
	importCmd.AddCommand(importSheetCmd)
	importCmd.AddCommand(importHTMLCmd)
}

func importFile(cmd *cobra.Command, path string, read func(io.Reader) (importer.Table, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t, err := read(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return runImport(cmd, t)
}

func runImportSheet(cmd *cobra.Command, args []string) error {
	id := args[0]
	if importRange == "" {
		return importRemote(cmd, func(ctx context.Context) (importer.Table, error) {
			f := importer.SheetFetcher{Client: &http.Client{}, BaseURL: sheetBaseURL}
			return f.Fetch(ctx, id, importGID)
		})
	}

	if cfg.Import.ServiceAccountJSON == "" {
		return fmt.Errorf("--range needs a service account (GOOGLE_SERVICE_ACCOUNT_JSON)")
	}
	return importRemote(cmd, func(ctx context.Context) (importer.Table, error) {
		api, err := importer.NewSheetsAPI(ctx, cfg.Import.ServiceAccountJSON)
		if err != nil {
			return importer.Table{}, err
		}
		return api.Read(ctx, id, importRange)
	})
}

func importRemote(cmd *cobra.Command, fetch func(context.Context) (importer.Table, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Import.FetchTimeout)
	defer cancel()

	t, err := fetch(ctx)
	if err != nil {
		return err
	}
	return runImport(cmd, t)
}

func runImport(cmd *cobra.Command, t importer.Table) error {
	shape, err := importer.ParseShape(importShape)
	if err != nil {
		return err
	}
	m, err := importer.AutoMapping(t, shape)
	if err != nil {
		return err
	}
	importCols.apply(&m)

	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	sum, err := importer.New(roster.New(conn), logger).Import(cmd.Context(), t, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rows %d, skipped %d, teams %d, drivers %d, memberships %d\n",
		sum.Rows, sum.Skipped, sum.Teams, sum.Drivers, sum.Memberships)
	return nil
}
