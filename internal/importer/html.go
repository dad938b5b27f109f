package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/antigravity/raceControl/internal/models"
)

// ReadHTMLTable reads the first <table> in a page, such as a spreadsheet
// published to the web or an entry list on an event site.
func ReadHTMLTable(r io.Reader) (Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return Table{}, fmt.Errorf("page has no table: %w", models.ErrValidation)
	}

	var records [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var rec []string
		tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			rec = append(rec, strings.TrimSpace(c.Text()))
		})
		if len(rec) > 0 {
			records = append(records, rec)
		}
	})

	t, err := tableFromRecords(records)
	if err != nil {
		return Table{}, err
	}
	fixAll(&t)
	return t, nil
}

func FetchHTMLTable(ctx context.Context, client *http.Client, url string) (Table, error) {
	body, err := get(ctx, client, url)
	if err != nil {
		return Table{}, err
	}
	return ReadHTMLTable(bytes.NewReader(body))
}
