package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TimeLayout is how stint timestamps are stored. It sorts lexically.
const TimeLayout = "2006-01-02 15:04:05.000000"

// legacy rows written with datetime('now') have no fractional part
var readLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Open opens (creating if needed) the SQLite database at path and makes
// sure the schema is current.
//
// Every transaction begins IMMEDIATE, so a writer holds the database write
// lock from BEGIN to COMMIT and concurrent stint swaps serialize.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := "file:" + path
	if strings.Contains(path, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createTables(ctx context.Context, conn *sql.DB) error {
	createTeamTable := `CREATE TABLE IF NOT EXISTS team (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE,
		car_class TEXT,
		team_pin TEXT DEFAULT '1234',
		team_no INTEGER
	);`

	createDriverTable := `CREATE TABLE IF NOT EXISTS driver (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE,
		iracing_id TEXT
	);`

	createTeamDriverTable := `CREATE TABLE IF NOT EXISTS team_driver (
		team_id INTEGER,
		driver_id INTEGER,
		is_active INTEGER DEFAULT 1,
		PRIMARY KEY (team_id, driver_id),
		FOREIGN KEY(team_id) REFERENCES team(id),
		FOREIGN KEY(driver_id) REFERENCES driver(id)
	);`

	createStintTable := `CREATE TABLE IF NOT EXISTS stint (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id INTEGER,
		driver_id INTEGER,
		start_ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		end_ts TIMESTAMP,
		FOREIGN KEY(team_id) REFERENCES team(id),
		FOREIGN KEY(driver_id) REFERENCES driver(id)
	);`

	for _, stmt := range []string{createTeamTable, createDriverTable, createTeamDriverTable, createStintTable} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	// Migrations: columns added after the first events were run
	_, _ = conn.ExecContext(ctx, "ALTER TABLE team ADD COLUMN team_no INTEGER")
	_, _ = conn.ExecContext(ctx, "ALTER TABLE driver ADD COLUMN iracing_id TEXT")

	// Older databases were created without UNIQUE on names. Where they already
	// hold duplicates the index cannot be built and lookups keep using the first row.
	_, _ = conn.ExecContext(ctx, "CREATE UNIQUE INDEX IF NOT EXISTS idx_team_name ON team(name)")
	_, _ = conn.ExecContext(ctx, "CREATE UNIQUE INDEX IF NOT EXISTS idx_driver_name ON driver(name)")

	if err := closeDuplicateOpenStints(ctx, conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_stint_open ON stint(team_id) WHERE end_ts IS NULL"); err != nil {
		return fmt.Errorf("failed to create open stint index: %w", err)
	}
	_, _ = conn.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_stint_team_start ON stint(team_id, start_ts)")
	return nil
}

// closeDuplicateOpenStints repairs databases written before the open stint
// index existed: all but the newest open stint of a team are closed at the
// start of the newest one.
func closeDuplicateOpenStints(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		UPDATE stint
		SET end_ts = (
			SELECT MAX(n.start_ts) FROM stint n
			WHERE n.team_id = stint.team_id AND n.end_ts IS NULL
		)
		WHERE end_ts IS NULL
		  AND id NOT IN (
			SELECT MAX(id) FROM stint WHERE end_ts IS NULL GROUP BY team_id
		  )`)
	if err != nil {
		return fmt.Errorf("failed to close duplicate open stints: %w", err)
	}
	return nil
}

// ResetConfirmation must be typed verbatim before a Reset is allowed.
const ResetConfirmation = "DELETE"

// Reset drops every table and recreates an empty schema.
func Reset(ctx context.Context, conn *sql.DB) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, table := range []string{"stint", "team_driver", "driver", "team"} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return createTables(ctx, conn)
}
