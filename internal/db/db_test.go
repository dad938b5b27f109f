package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "race.db")
}

func TestOpenCreatesSchema(t *testing.T) {
	conn, err := Open(openTemp(t))
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"team", "driver", "team_driver", "stint"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	var pin string
	_, err = conn.Exec("INSERT INTO team (name, car_class) VALUES ('A', 'GT3')")
	require.NoError(t, err)
	require.NoError(t, conn.QueryRow("SELECT team_pin FROM team WHERE name='A'").Scan(&pin))
	assert.Equal(t, "1234", pin)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := openTemp(t)
	conn, err := Open(path)
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO team (name, car_class) VALUES ('A', 'GT3')")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = Open(path)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM team").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenStintIndexRejectsSecondOpenStint(t *testing.T) {
	conn, err := Open(openTemp(t))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("INSERT INTO team (id, name, car_class) VALUES (1, 'A', 'GT3')")
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO driver (id, name) VALUES (1, 'D1'), (2, 'D2')")
	require.NoError(t, err)

	_, err = conn.Exec("INSERT INTO stint (team_id, driver_id, start_ts) VALUES (1, 1, '2025-01-01 10:00:00.000000')")
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO stint (team_id, driver_id, start_ts) VALUES (1, 2, '2025-01-01 11:00:00.000000')")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	conn, err := Open(openTemp(t))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("INSERT INTO team (name, car_class) VALUES ('A', 'GT3')")
	require.NoError(t, err)

	require.NoError(t, Reset(context.Background(), conn))

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM team").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestParseTime(t *testing.T) {
	ts := time.Date(2025, 6, 14, 16, 0, 1, 250000000, time.UTC)

	got, err := ParseTime(FormatTime(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	legacy, err := ParseTime("2025-06-14 16:00:01")
	require.NoError(t, err)
	assert.Equal(t, 1, legacy.Second())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
