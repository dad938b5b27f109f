package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/antigravity/raceControl/internal/models"
)

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open workbook: %v: %w", err, models.ErrValidation)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("workbook has no sheets: %w", models.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return tableFromRecords(rows)
}
