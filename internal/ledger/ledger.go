// Package ledger records who drove for which team and when.
//
// A stint is open while its end timestamp is NULL. A team has at most one
// open stint: StartStint closes the current one and opens the next inside a
// single immediate transaction, and the schema carries a partial unique index
// on open stints per team.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antigravity/raceControl/internal/carclass"
	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/models"
)

// DefaultHistoryLimit applies when History is called with a non-positive limit.
const DefaultHistoryLimit = 20

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Ledger)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(conn *sql.DB, opts ...Option) *Ledger {
	l := &Ledger{db: conn, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StartStint puts driverID in the car for teamID. The stint it replaces, if
// any, ends at the same instant the new one starts.
//
// The driver must be an active member of the team.
func (l *Ledger) StartStint(ctx context.Context, teamID, driverID int64) (models.Stint, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Stint{}, fmt.Errorf("failed to begin stint transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		"SELECT td.is_active FROM team_driver td JOIN team t ON t.id = td.team_id WHERE td.team_id = ? AND td.driver_id = ?",
		teamID, driverID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Stint{}, fmt.Errorf("driver %d in team %d: %w", driverID, teamID, models.ErrNotFound)
	}
	if err != nil {
		return models.Stint{}, fmt.Errorf("failed to look up membership: %w", err)
	}
	if active != 1 {
		return models.Stint{}, fmt.Errorf("driver %d is inactive in team %d: %w", driverID, teamID, models.ErrValidation)
	}

	now := l.now().UTC()
	ts := db.FormatTime(now)

	if _, err := tx.ExecContext(ctx,
		"UPDATE stint SET end_ts = ? WHERE team_id = ? AND end_ts IS NULL", ts, teamID); err != nil {
		return models.Stint{}, fmt.Errorf("failed to close current stint: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO stint (team_id, driver_id, start_ts, end_ts) VALUES (?, ?, ?, NULL)",
		teamID, driverID, ts)
	if err != nil {
		return models.Stint{}, fmt.Errorf("failed to open stint: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Stint{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Stint{}, fmt.Errorf("failed to commit stint: %w", err)
	}

	// round trip through the stored layout so callers see what readers see
	start, _ := db.ParseTime(ts)
	return models.Stint{ID: id, TeamID: teamID, DriverID: driverID, Start: start}, nil
}

// CurrentStint returns nil when nobody is driving for the team.
func (l *Ledger) CurrentStint(ctx context.Context, teamID int64) (*models.CurrentStint, error) {
	var cur models.CurrentStint
	var start string
	err := l.db.QueryRowContext(ctx, `
		SELECT s.id, s.team_id, s.driver_id, d.name, s.start_ts
		FROM stint s
		JOIN driver d ON d.id = s.driver_id
		WHERE s.team_id = ? AND s.end_ts IS NULL
		LIMIT 1`, teamID).Scan(&cur.StintID, &cur.TeamID, &cur.DriverID, &cur.DriverName, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current stint: %w", err)
	}
	if cur.Start, err = db.ParseTime(start); err != nil {
		return nil, err
	}
	return &cur, nil
}

// History returns the latest stints of a team, newest first.
func (l *Ledger) History(ctx context.Context, teamID int64, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT d.name, s.start_ts, s.end_ts
		FROM stint s
		JOIN driver d ON d.id = s.driver_id
		WHERE s.team_id = ?
		ORDER BY s.start_ts DESC, s.id DESC
		LIMIT ?`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read stint history: %w", err)
	}
	defer rows.Close()

	history := []models.HistoryEntry{}
	for rows.Next() {
		var h models.HistoryEntry
		var start string
		var end sql.NullString
		if err := rows.Scan(&h.Driver, &start, &end); err != nil {
			return nil, err
		}
		if h.Start, err = db.ParseTime(start); err != nil {
			return nil, err
		}
		if end.Valid {
			e, err := db.ParseTime(end.String)
			if err != nil {
				return nil, err
			}
			h.End = &e
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// SpectateGrid lists every team with whoever is driving for it, in class
// order and then by car number and name.
func (l *Ledger) SpectateGrid(ctx context.Context) ([]models.GridRow, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT t.team_no, COALESCE(t.car_class, ''), t.name, d.name
		FROM team t
		LEFT JOIN stint s ON s.team_id = t.id AND s.end_ts IS NULL
		LEFT JOIN driver d ON d.id = s.driver_id
		ORDER BY `+carclass.OrderCase("t.car_class")+`,
			t.team_no IS NULL,
			t.team_no,
			t.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to read spectate grid: %w", err)
	}
	defer rows.Close()

	grid := []models.GridRow{}
	for rows.Next() {
		var r models.GridRow
		var no sql.NullInt64
		var driver sql.NullString
		if err := rows.Scan(&no, &r.CarClass, &r.TeamName, &driver); err != nil {
			return nil, err
		}
		if no.Valid {
			n := int(no.Int64)
			r.TeamNo = &n
		}
		r.DriverName = models.NoDriver
		if driver.Valid && driver.String != "" {
			r.DriverName = driver.String
		}
		grid = append(grid, r)
	}
	return grid, rows.Err()
}
