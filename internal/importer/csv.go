package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/antigravity/raceControl/internal/models"
)

// ReadCSV reads a CSV whose first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse CSV: %v: %w", err, models.ErrValidation)
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) (Table, error) {
	var t Table
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = make([]string, len(rec))
			for i, h := range rec {
				t.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			}
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if t.Header == nil {
		return Table{}, fmt.Errorf("no header row: %w", models.ErrValidation)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
