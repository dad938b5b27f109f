package importer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/models"
	"github.com/antigravity/raceControl/internal/roster"
)

func newImporter(t *testing.T) (*Importer, *roster.Store) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	store := roster.New(conn)
	return New(store, nil), store
}

const wideCSV = `Team name,Car class,Car no.,Driver name 1,Driver name 2,Driver name 3
Apex Racing,GT3 Am,12,Kim,Sam,
Nordic Hyper,LMDh,7.0,SÃ¸ren,,
,GT3,3,Ghost,,
Privateers,Cup,n/a,Lee,Ana,Kim
`

func TestWideImport(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	table, err := ReadCSV(strings.NewReader(wideCSV))
	require.NoError(t, err)
	m, err := AutoMapping(table, ShapeWide)
	require.NoError(t, err)
	assert.Equal(t, "Team name", m.Team)
	assert.Equal(t, "Car class", m.Class)
	assert.Equal(t, "Car no.", m.TeamNo)
	assert.Equal(t, []string{"Driver name 1", "Driver name 2", "Driver name 3"}, m.Drivers)

	sum, err := im.Import(ctx, table, m)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 4, Skipped: 1, Teams: 3, Drivers: 5, Memberships: 6}, sum)

	teams, err := store.ListTeams(ctx, "")
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, "Nordic Hyper", teams[0].Name)
	assert.Equal(t, "GTP", teams[0].CarClass)
	assert.Equal(t, 7, *teams[0].TeamNo)
	assert.Equal(t, "Apex Racing", teams[1].Name)
	assert.Equal(t, "GT3 AM", teams[1].CarClass)
	assert.Equal(t, "Privateers", teams[2].Name)
	assert.Equal(t, "GT3", teams[2].CarClass)
	assert.Nil(t, teams[2].TeamNo)

	drivers, err := store.TeamDrivers(ctx, teams[0].ID)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "Søren", drivers[0].Name)
}

func TestWideImportTwiceIsIdempotent(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	table, err := ReadCSV(strings.NewReader(wideCSV))
	require.NoError(t, err)
	m, err := AutoMapping(table, ShapeWide)
	require.NoError(t, err)

	_, err = im.Import(ctx, table, m)
	require.NoError(t, err)
	_, err = im.Import(ctx, table, m)
	require.NoError(t, err)

	teams, err := store.ListTeams(ctx, "")
	require.NoError(t, err)
	assert.Len(t, teams, 3)
}

func TestLongImport(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	table, err := ReadCSV(strings.NewReader(`Team,Driver,Class,Start nr
Apex,Kim,GT3 Pro,4
Apex,Sam,GT3 Pro,4
Apex,,GT3 Pro,4
Solo,Lee,GTP,
`))
	require.NoError(t, err)
	m, err := AutoMapping(table, ShapeLong)
	require.NoError(t, err)
	assert.Equal(t, "Driver", m.Driver)
	assert.Equal(t, "Start nr", m.TeamNo)

	sum, err := im.Import(ctx, table, m)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Teams)
	assert.Equal(t, 3, sum.Memberships)

	id, err := store.TeamIDByName(ctx, "Apex")
	require.NoError(t, err)
	drivers, err := store.TeamDrivers(ctx, id)
	require.NoError(t, err)
	assert.Len(t, drivers, 2)

	team, err := store.TeamByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "GT3 PRO", team.CarClass)
}

func TestImportMissingColumns(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()
	table := Table{Header: []string{"Team", "Class"}, Rows: [][]string{{"A", "GT3"}}}

	_, err := im.Wide(ctx, table, Mapping{Team: "Team", Class: "Klasse"})
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = im.Long(ctx, table, Mapping{Team: "Team", Class: "Class", Driver: "Driver"})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = AutoMapping(Table{Header: []string{"Only"}}, ShapeWide)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = im.Import(ctx, table, Mapping{Shape: "diagonal", Team: "Team", Class: "Class"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestImportKeepsDeactivatedDrivers(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	table := Table{Header: []string{"Team", "Class", "Driver"}, Rows: [][]string{{"Apex", "GT3", "Kim"}}}
	m := Mapping{Shape: ShapeLong, Team: "Team", Class: "Class", Driver: "Driver"}

	_, err := im.Import(ctx, table, m)
	require.NoError(t, err)
	team, err := store.TeamIDByName(ctx, "Apex")
	require.NoError(t, err)
	driver, err := store.GetOrCreateDriver(ctx, "Kim")
	require.NoError(t, err)
	require.NoError(t, store.SetMembershipActive(ctx, team, driver, false))

	_, err = im.Import(ctx, table, m)
	require.NoError(t, err)
	mem, err := store.Membership(ctx, team, driver)
	require.NoError(t, err)
	assert.False(t, mem.IsActive)
}

func TestParseTeamNo(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"12", intp(12)},
		{" 7 ", intp(7)},
		{"7.0", intp(7)},
		{"", nil},
		{"n/a", nil},
		{"12.5", nil},
		{"NaN", nil},
		{"#44", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTeamNo(tt.in), "input %q", tt.in)
	}
}

func TestGuessColumn(t *testing.T) {
	cols := []string{"Holdnavn", "Bilklasse", "Kører 1", "Kører 2"}
	assert.Equal(t, "Holdnavn", GuessColumn(cols, CandidateTeam))
	assert.Equal(t, "Bilklasse", GuessColumn(cols, CandidateClass))
	assert.Equal(t, "Kører 1", GuessColumn(cols, CandidateDriver))
	assert.Equal(t, "", GuessColumn(cols, CandidateTeamNo))
}

func TestAutoMappingFallsBackToPositions(t *testing.T) {
	m, err := AutoMapping(Table{Header: []string{"Entrant", "Category", "First", "Second"}}, ShapeWide)
	require.NoError(t, err)
	assert.Equal(t, "Entrant", m.Team)
	assert.Equal(t, "Category", m.Class)
	assert.Equal(t, []string{"First", "Second"}, m.Drivers)

	long, err := AutoMapping(Table{Header: []string{"Entrant", "Category", "First", "Second"}}, ShapeLong)
	require.NoError(t, err)
	assert.Equal(t, "First", long.Driver)
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("")
	require.NoError(t, err)
	assert.Equal(t, ShapeWide, s)
	s, err = ParseShape(" LONG ")
	require.NoError(t, err)
	assert.Equal(t, ShapeLong, s)
	_, err = ParseShape("tall")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func intp(v int) *int { return &v }
