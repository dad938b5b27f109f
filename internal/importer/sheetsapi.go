package importer

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// SheetsAPI reads private spreadsheets through the Sheets API with a
// service account.
type SheetsAPI struct {
	srv *sheetsv4.Service
}

func NewSheetsAPI(ctx context.Context, serviceAccountJSONPath string) (*SheetsAPI, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	return NewSheetsAPIWithOptions(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsReadonlyScope),
	)
}

func NewSheetsAPIWithOptions(ctx context.Context, opts ...option.ClientOption) (*SheetsAPI, error) {
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &SheetsAPI{srv: srv}, nil
}

// Read loads an A1 range such as "Entries!A:Z"; its first row is the header.
func (c *SheetsAPI) Read(ctx context.Context, spreadsheetID, a1Range string) (Table, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read %s: %w", a1Range, err)
	}

	records := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rec := make([]string, len(row))
		for i := range row {
			rec[i] = cellString(row, i)
		}
		records = append(records, rec)
	}

	t, err := tableFromRecords(records)
	if err != nil {
		return Table{}, err
	}
	fixAll(&t)
	return t, nil
}

func cellString(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}
