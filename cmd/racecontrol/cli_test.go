package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/config"
	"github.com/antigravity/raceControl/internal/db"
)

func setup(t *testing.T) {
	t.Helper()
	cfg = config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "race.db")
	logger = zap.NewNop()
	importShape = "wide"
	importCols = columnFlags{}
	historyLimit = 20
	resetConfirm = ""
}

func testCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestImportCSVThenGridAndHistory(t *testing.T) {
	setup(t)
	path := filepath.Join(t.TempDir(), "entries.csv")
	require.NoError(t, os.WriteFile(path, []byte("Team,Class,Car no,Driver 1,Driver 2\nApex,GT3,12,Kim,Sam\nHyper,GTP,,Lee,\n"), 0644))

	cmd, out := testCmd()
	require.NoError(t, importCSVCmd.RunE(cmd, []string{path}))
	assert.Equal(t, "rows 2, skipped 0, teams 2, drivers 3, memberships 3\n", out.String())

	cmd, out = testCmd()
	require.NoError(t, runGrid(cmd, nil))
	grid := out.String()
	assert.Contains(t, grid, "Hyper")
	assert.Contains(t, grid, "Apex")
	assert.Less(t, strings.Index(grid, "Hyper"), strings.Index(grid, "Apex"))

	cmd, out = testCmd()
	require.NoError(t, runHistory(cmd, []string{"Apex"}))
	assert.Equal(t, "No stints for Apex.\n", out.String())

	cmd, _ = testCmd()
	assert.Error(t, runHistory(cmd, []string{"Nobody"}))
}

func TestImportMissingFile(t *testing.T) {
	setup(t)
	cmd, _ := testCmd()
	assert.Error(t, importCSVCmd.RunE(cmd, []string{filepath.Join(t.TempDir(), "absent.csv")}))
}

func TestImportSheetLong(t *testing.T) {
	setup(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Team,Class,Driver\nApex,GT3,Kim\nApex,GT3,Sam\n"))
	}))
	defer srv.Close()

	sheetBaseURL = srv.URL
	defer func() { sheetBaseURL = "" }()
	importShape = "long"

	cmd, out := testCmd()
	require.NoError(t, runImportSheet(cmd, []string{"abc"}))
	assert.Contains(t, out.String(), "teams 1, drivers 2, memberships 2")
}

func TestImportSheetRangeNeedsServiceAccount(t *testing.T) {
	setup(t)
	importRange = "Entries!A:Z"
	defer func() { importRange = "" }()

	cmd, _ := testCmd()
	assert.Error(t, runImportSheet(cmd, []string{"abc"}))
}

func TestReset(t *testing.T) {
	setup(t)
	conn, err := db.Open(cfg.Database.Path)
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO team (name, car_class) VALUES ('Apex', 'GT3')")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	cmd, _ := testCmd()
	assert.Error(t, runReset(cmd, nil))

	resetConfirm = db.ResetConfirmation
	cmd, out := testCmd()
	require.NoError(t, runReset(cmd, nil))
	assert.Equal(t, "Database reset.\n", out.String())

	cmd, out = testCmd()
	require.NoError(t, runGrid(cmd, nil))
	assert.Equal(t, "No teams registered yet.\n", out.String())
}
