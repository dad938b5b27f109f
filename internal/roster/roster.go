// Package roster owns teams, drivers and which drivers may drive for which team.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antigravity/raceControl/internal/carclass"
	"github.com/antigravity/raceControl/internal/models"
)

// DefaultPIN is given to every team created by an import.
const DefaultPIN = "1234"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrCreateTeam looks the team up by exact name. An existing team has its
// class and number overwritten when non-empty values are given.
func (s *Store) GetOrCreateTeam(ctx context.Context, name, carClass string, teamNo *int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM team WHERE name = ?", name).Scan(&id)
	switch {
	case err == nil:
		if teamNo != nil {
			if _, err := s.db.ExecContext(ctx, "UPDATE team SET team_no = ? WHERE id = ?", *teamNo, id); err != nil {
				return 0, fmt.Errorf("failed to update team number: %w", err)
			}
		}
		if carClass != "" {
			if _, err := s.db.ExecContext(ctx, "UPDATE team SET car_class = ? WHERE id = ?", carClass, id); err != nil {
				return 0, fmt.Errorf("failed to update team class: %w", err)
			}
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("failed to look up team: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO team (name, car_class, team_no, team_pin) VALUES (?, ?, ?, ?)",
		name, carClass, nullInt(teamNo), DefaultPIN)
	if err != nil {
		return 0, fmt.Errorf("failed to create team: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetOrCreateDriver(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM driver WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up driver: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "INSERT INTO driver (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create driver: %w", err)
	}
	return res.LastInsertId()
}

// EnsureMembership adds the driver to the team as active. An existing
// membership keeps its current active flag.
func (s *Store) EnsureMembership(ctx context.Context, teamID, driverID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO team_driver (team_id, driver_id, is_active) VALUES (?, ?, 1)",
		teamID, driverID)
	if err != nil {
		return fmt.Errorf("failed to add driver to team: %w", err)
	}
	return nil
}

// SetMembershipActive does nothing, and reports nothing, for a pair that was
// never added with EnsureMembership.
func (s *Store) SetMembershipActive(ctx context.Context, teamID, driverID int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE team_driver SET is_active = ? WHERE team_id = ? AND driver_id = ?",
		boolInt(active), teamID, driverID)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// ListTeams returns all teams, or only those of class when it is non-empty,
// numbered teams first by number and then by name.
func (s *Store) ListTeams(ctx context.Context, class string) ([]models.Team, error) {
	query := "SELECT id, name, COALESCE(car_class, ''), team_no, COALESCE(team_pin, ?) FROM team"
	args := []any{DefaultPIN}
	if class != "" {
		query += " WHERE car_class = ?"
		args = append(args, class)
	}
	query += " ORDER BY team_no IS NULL, team_no, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// ListClasses returns the distinct classes in grid order.
func (s *Store) ListClasses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT car_class FROM team WHERE car_class IS NOT NULL GROUP BY car_class ORDER BY MIN(id)")
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	classes := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(classes, func(i, j int) bool {
		return carclass.Less(classes[i], classes[j])
	})
	return classes, nil
}

func (s *Store) TeamByID(ctx context.Context, id int64) (models.Team, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, COALESCE(car_class, ''), team_no, COALESCE(team_pin, ?) FROM team WHERE id = ?",
		DefaultPIN, id)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Team{}, fmt.Errorf("team %d: %w", id, models.ErrNotFound)
	}
	return t, err
}

func (s *Store) TeamIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM team WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("team %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up team: %w", err)
	}
	return id, nil
}

func (s *Store) TeamPIN(ctx context.Context, teamID int64) (string, error) {
	t, err := s.TeamByID(ctx, teamID)
	if err != nil {
		return "", err
	}
	return t.PIN, nil
}

// CheckPIN fails with models.ErrUnauthorized when pin does not match.
func (s *Store) CheckPIN(ctx context.Context, teamID int64, pin string) error {
	want, err := s.TeamPIN(ctx, teamID)
	if err != nil {
		return err
	}
	if pin != want {
		return fmt.Errorf("wrong team pin: %w", models.ErrUnauthorized)
	}
	return nil
}

// SetTeamPIN stores pin, falling back to DefaultPIN when it is blank.
func (s *Store) SetTeamPIN(ctx context.Context, teamID int64, pin string) error {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		pin = DefaultPIN
	}
	return s.updateTeam(ctx, teamID, "team_pin", pin)
}

// SetTeamNumber clears the number when teamNo is nil.
func (s *Store) SetTeamNumber(ctx context.Context, teamID int64, teamNo *int) error {
	return s.updateTeam(ctx, teamID, "team_no", nullInt(teamNo))
}

func (s *Store) SetTeamClass(ctx context.Context, teamID int64, class string) error {
	return s.updateTeam(ctx, teamID, "car_class", carclass.Normalize(class))
}

func (s *Store) updateTeam(ctx context.Context, teamID int64, column string, value any) error {
	res, err := s.db.ExecContext(ctx, "UPDATE team SET "+column+" = ? WHERE id = ?", value, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("team %d: %w", teamID, models.ErrNotFound)
	}
	return nil
}

// TeamDrivers returns the roster of one team ordered by driver name.
func (s *Store) TeamDrivers(ctx context.Context, teamID int64) ([]models.TeamDriver, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, td.is_active
		FROM team_driver td
		JOIN driver d ON d.id = td.driver_id
		WHERE td.team_id = ?
		ORDER BY d.name`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team drivers: %w", err)
	}
	defer rows.Close()

	drivers := []models.TeamDriver{}
	for rows.Next() {
		var d models.TeamDriver
		var active int
		if err := rows.Scan(&d.DriverID, &d.Name, &active); err != nil {
			return nil, err
		}
		d.IsActive = active == 1
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// Membership returns the team/driver pair, or models.ErrNotFound.
func (s *Store) Membership(ctx context.Context, teamID, driverID int64) (models.Membership, error) {
	m := models.Membership{TeamID: teamID, DriverID: driverID}
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT is_active FROM team_driver WHERE team_id = ? AND driver_id = ?",
		teamID, driverID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("driver %d in team %d: %w", driverID, teamID, models.ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("failed to look up membership: %w", err)
	}
	m.IsActive = active == 1
	return m, nil
}

func (s *Store) TeamsWithPins(ctx context.Context) ([]models.TeamPin, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(car_class, ''), COALESCE(team_pin, ?) FROM team ORDER BY name",
		DefaultPIN)
	if err != nil {
		return nil, fmt.Errorf("failed to list team pins: %w", err)
	}
	defer rows.Close()

	pins := []models.TeamPin{}
	for rows.Next() {
		var p models.TeamPin
		if err := rows.Scan(&p.ID, &p.Name, &p.CarClass, &p.PIN); err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

// Empty reports whether no team has been registered yet.
func (s *Store) Empty(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM team").Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(row scanner) (models.Team, error) {
	var t models.Team
	var no sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &t.CarClass, &no, &t.PIN); err != nil {
		return t, err
	}
	if no.Valid {
		n := int(no.Int64)
		t.TeamNo = &n
	}
	return t, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
