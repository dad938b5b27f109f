package importer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"

	"github.com/antigravity/raceControl/internal/models"
)

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffTeam,Class\n\n,\nApex,GT3\nShort\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Class"}, table.Header)
	assert.Equal(t, [][]string{{"Apex", "GT3"}, {"Short"}}, table.Rows)

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Team", "Class", "Car no", "Driver 1"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Apex", "GT3 Am", 12, "Kim"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ReadXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Class", "Car no", "Driver 1"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "12", table.Rows[0][2])

	_, err = ReadXLSX(strings.NewReader("not a workbook"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSheetFetcher(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte("Team,Class,Driver\nÃ…rhus Racing,GT3,BjÃ¸rn\n"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := SheetFetcher{Client: srv.Client(), BaseURL: srv.URL}
	table, err := f.Fetch(ctx, "abc123", "")
	require.NoError(t, err)
	assert.Equal(t, "/spreadsheets/d/abc123/export", gotPath)
	assert.Equal(t, "format=csv&gid=0", gotQuery)
	assert.Equal(t, [][]string{{"Århus Racing", "GT3", "Bjørn"}}, table.Rows)
}

func TestSheetFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := SheetFetcher{Client: srv.Client(), BaseURL: srv.URL}
	_, err := f.Fetch(context.Background(), "abc", "1")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "  ", "1")
	assert.Error(t, err)
}

const entryPage = `<html><body>
<h1>Entry list</h1>
<table>
  <tr><th>Team</th><th>Class</th><th>Driver 1</th><th>Driver 2</th></tr>
  <tr><td> Apex </td><td>GT3 Pro</td><td>Kim</td><td>Sam</td></tr>
  <tr><td>Hyper</td><td>GTP</td><td>Lee</td><td></td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

func TestReadHTMLTable(t *testing.T) {
	table, err := ReadHTMLTable(strings.NewReader(entryPage))
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Class", "Driver 1", "Driver 2"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Apex", table.Rows[0][0])

	_, err = ReadHTMLTable(strings.NewReader("<p>nothing</p>"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFetchHTMLTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(entryPage))
	}))
	defer srv.Close()

	table, err := FetchHTMLTable(context.Background(), srv.Client(), srv.URL+"/entries")
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestSheetsAPIRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v4/spreadsheets/sheet-1/values/")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Entries!A1:D3","majorDimension":"ROWS","values":[
			["Team","Class","Car no","Driver 1"],
			["Apex","GT3 Am",12,"Kim"],
			["Hyper","LMDh"]
		]}`))
	}))
	defer srv.Close()

	api, err := NewSheetsAPIWithOptions(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	table, err := api.Read(context.Background(), "sheet-1", "Entries!A:Z")
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Class", "Car no", "Driver 1"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Apex", "GT3 Am", "12", "Kim"}, table.Rows[0])
	assert.Equal(t, []string{"Hyper", "LMDh"}, table.Rows[1])
}
