// Package export writes stint history for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/models"
)

var header = []string{"driver", "start_ts", "end_ts"}

func record(h models.HistoryEntry) []string {
	return []string{h.Driver, h.Start.Format(db.TimeLayout), h.EndLabel(db.TimeLayout)}
}

func HistoryCSV(w io.Writer, entries []models.HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, h := range entries {
		if err := cw.Write(record(h)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// HistoryXLSX writes a workbook with one sheet named after the team.
func HistoryXLSX(w io.Writer, teamName string, entries []models.HistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(teamName)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	for i, h := range append([][]string{header}, records(entries)...) {
		row := make([]interface{}, len(h))
		for j, v := range h {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "C", 28)

	return f.Write(w)
}

func records(entries []models.HistoryEntry) [][]string {
	out := make([][]string, 0, len(entries))
	for _, h := range entries {
		out = append(out, record(h))
	}
	return out
}

// SheetName makes a team name usable as a worksheet name: at most 31
// characters and none of : \ / ? * [ ].
func SheetName(name string) string {
	out := make([]rune, 0, 31)
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			r = '_'
		}
		out = append(out, r)
		if len(out) == 31 {
			break
		}
	}
	if len(out) == 0 {
		return "Stints"
	}
	return string(out)
}

// FileName is the download name for a team's history.
func FileName(teamName, ext string) string {
	safe := make([]rune, 0, len(teamName))
	for _, r := range teamName {
		switch {
		case r == '"' || r == '/' || r == '\\' || r < 0x20:
			safe = append(safe, '_')
		default:
			safe = append(safe, r)
		}
	}
	return string(safe) + "_stints." + ext
}
