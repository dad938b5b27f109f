package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/ledger"
	"github.com/antigravity/raceControl/internal/models"
	"github.com/antigravity/raceControl/internal/roster"
)

var historyLimit int

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show who is driving for every team",
	Args:  cobra.NoArgs,
	RunE:  runGrid,
}

var historyCmd = &cobra.Command{
	Use:   "history [team name]",
	Short: "Show the latest stints of one team",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", ledger.DefaultHistoryLimit, "Number of stints to show")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func runGrid(cmd *cobra.Command, args []string) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	grid, err := ledger.New(conn).SpectateGrid(cmd.Context())
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No teams registered yet.")
		return nil
	}

	t := newTable("NO", "CLASS", "TEAM", "DRIVER")
	for _, r := range grid {
		t.Row(teamNo(r.TeamNo), r.CarClass, r.TeamName, r.DriverName)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")

	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	id, err := roster.New(conn).TeamIDByName(cmd.Context(), name)
	if err != nil {
		return err
	}
	hist, err := ledger.New(conn).History(cmd.Context(), id, historyLimit)
	if err != nil {
		return err
	}
	if len(hist) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No stints for %s.\n", name)
		return nil
	}

	t := newTable("DRIVER", "START", "END")
	for _, h := range hist {
		t.Row(h.Driver, h.Start.Format(db.TimeLayout), h.EndLabel(db.TimeLayout))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func teamNo(no *int) string {
	if no == nil {
		return models.NoDriver
	}
	return strconv.Itoa(*no)
}
