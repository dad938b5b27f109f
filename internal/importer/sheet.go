package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultSheetsBaseURL is where public spreadsheets are exported from.
const DefaultSheetsBaseURL = "https://docs.google.com"

// SheetFetcher downloads one tab of a spreadsheet shared for viewing, using
// its CSV export. No credentials are involved.
type SheetFetcher struct {
	Client  *http.Client
	BaseURL string
}

func (f SheetFetcher) exportURL(sheetID, gid string) string {
	base := f.BaseURL
	if base == "" {
		base = DefaultSheetsBaseURL
	}
	if gid == "" {
		gid = "0"
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv&gid=%s",
		strings.TrimRight(base, "/"), url.PathEscape(sheetID), url.QueryEscape(gid))
}

// Fetch honours ctx for its deadline; callers set the fetch timeout.
func (f SheetFetcher) Fetch(ctx context.Context, sheetID, gid string) (Table, error) {
	sheetID = strings.TrimSpace(sheetID)
	if sheetID == "" {
		return Table{}, fmt.Errorf("spreadsheet id is empty")
	}

	body, err := get(ctx, f.Client, f.exportURL(sheetID, gid))
	if err != nil {
		return Table{}, err
	}

	// undecodable bytes become U+FFFD instead of failing the import
	t, err := ReadCSV(strings.NewReader(strings.ToValidUTF8(string(body), "\uFFFD")))
	if err != nil {
		return Table{}, err
	}
	fixAll(&t)
	return t, nil
}

func get(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func fixAll(t *Table) {
	for i, h := range t.Header {
		t.Header[i] = FixMojibake(h)
	}
	for _, row := range t.Rows {
		for i, c := range row {
			row[i] = FixMojibake(c)
		}
	}
}
