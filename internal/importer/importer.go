// Package importer loads team entry lists into the roster.
//
// Sources (CSV and XLSX uploads, Google Sheets, published HTML tables) are
// read into a Table first; Import then walks the rows with a Mapping.
package importer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/carclass"
	"github.com/antigravity/raceControl/internal/models"
)

// ErrMissingColumn is returned when a mapped team, class or driver column is
// not in the table header.
var ErrMissingColumn = fmt.Errorf("missing column: %w", models.ErrValidation)

// Roster is the part of the roster store an import may touch.
type Roster interface {
	GetOrCreateTeam(ctx context.Context, name, carClass string, teamNo *int) (int64, error)
	GetOrCreateDriver(ctx context.Context, name string) (int64, error)
	EnsureMembership(ctx context.Context, teamID, driverID int64) error
}

type Importer struct {
	roster Roster
	log    *zap.Logger
}

func New(r Roster, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{roster: r, log: log}
}

type Summary struct {
	Rows        int `json:"rows"`
	Skipped     int `json:"skipped"`
	Teams       int `json:"teams"`
	Drivers     int `json:"drivers"`
	Memberships int `json:"memberships"`
}

// Import dispatches on m.Shape.
func (im *Importer) Import(ctx context.Context, t Table, m Mapping) (Summary, error) {
	var (
		sum Summary
		err error
	)
	switch m.Shape {
	case ShapeLong:
		sum, err = im.Long(ctx, t, m)
	case ShapeWide, "":
		sum, err = im.Wide(ctx, t, m)
	default:
		return Summary{}, fmt.Errorf("unknown import shape %q: %w", m.Shape, models.ErrValidation)
	}
	if err != nil {
		return sum, err
	}
	im.log.Info("import finished",
		zap.String("shape", string(m.Shape)),
		zap.Int("rows", sum.Rows),
		zap.Int("skipped", sum.Skipped),
		zap.Int("teams", sum.Teams),
		zap.Int("drivers", sum.Drivers),
		zap.Int("memberships", sum.Memberships))
	return sum, nil
}

// Wide imports one row per team, with any number of driver columns.
func (im *Importer) Wide(ctx context.Context, t Table, m Mapping) (Summary, error) {
	if !t.has(m.Team) || !t.has(m.Class) {
		return Summary{}, fmt.Errorf("team %q / class %q: %w", m.Team, m.Class, ErrMissingColumn)
	}

	teamIdx, classIdx := t.index(m.Team), t.index(m.Class)
	noIdx := -1
	if t.has(m.TeamNo) {
		noIdx = t.index(m.TeamNo)
	}
	var driverIdx []int
	for _, dc := range m.Drivers {
		if t.has(dc) {
			driverIdx = append(driverIdx, t.index(dc))
		}
	}

	tally := newTally()
	for i, row := range t.Rows {
		tally.sum.Rows++
		teamName := strings.TrimSpace(FixMojibake(cell(row, teamIdx)))
		if teamName == "" {
			tally.sum.Skipped++
			im.log.Debug("skipping row without team", zap.Int("row", i+1))
			continue
		}

		teamID, err := im.team(ctx, tally, teamName, cell(row, classIdx), cell(row, noIdx))
		if err != nil {
			return tally.sum, err
		}

		for _, di := range driverIdx {
			name := strings.TrimSpace(FixMojibake(cell(row, di)))
			if name == "" {
				continue
			}
			if err := im.member(ctx, tally, teamID, name); err != nil {
				return tally.sum, err
			}
		}
	}
	return tally.sum, nil
}

// Long imports one row per team and driver pair.
func (im *Importer) Long(ctx context.Context, t Table, m Mapping) (Summary, error) {
	if !t.has(m.Team) || !t.has(m.Class) || !t.has(m.Driver) {
		return Summary{}, fmt.Errorf("team %q / driver %q / class %q: %w", m.Team, m.Driver, m.Class, ErrMissingColumn)
	}

	teamIdx, classIdx, driverIdx := t.index(m.Team), t.index(m.Class), t.index(m.Driver)
	noIdx := -1
	if t.has(m.TeamNo) {
		noIdx = t.index(m.TeamNo)
	}

	tally := newTally()
	for i, row := range t.Rows {
		tally.sum.Rows++
		teamName := strings.TrimSpace(FixMojibake(cell(row, teamIdx)))
		driverName := strings.TrimSpace(FixMojibake(cell(row, driverIdx)))
		if teamName == "" || driverName == "" {
			tally.sum.Skipped++
			im.log.Debug("skipping incomplete row", zap.Int("row", i+1))
			continue
		}

		teamID, err := im.team(ctx, tally, teamName, cell(row, classIdx), cell(row, noIdx))
		if err != nil {
			return tally.sum, err
		}
		if err := im.member(ctx, tally, teamID, driverName); err != nil {
			return tally.sum, err
		}
	}
	return tally.sum, nil
}

type tally struct {
	sum     Summary
	teams   map[int64]bool
	drivers map[int64]bool
	pairs   map[[2]int64]bool
}

func newTally() *tally {
	return &tally{
		teams:   map[int64]bool{},
		drivers: map[int64]bool{},
		pairs:   map[[2]int64]bool{},
	}
}

func (im *Importer) team(ctx context.Context, tl *tally, name, rawClass, rawNo string) (int64, error) {
	class := carclass.Normalize(FixMojibake(rawClass))
	id, err := im.roster.GetOrCreateTeam(ctx, name, class, ParseTeamNo(FixMojibake(rawNo)))
	if err != nil {
		return 0, fmt.Errorf("team %q: %w", name, err)
	}
	if !tl.teams[id] {
		tl.teams[id] = true
		tl.sum.Teams++
	}
	return id, nil
}

func (im *Importer) member(ctx context.Context, tl *tally, teamID int64, name string) error {
	driverID, err := im.roster.GetOrCreateDriver(ctx, name)
	if err != nil {
		return fmt.Errorf("driver %q: %w", name, err)
	}
	if !tl.drivers[driverID] {
		tl.drivers[driverID] = true
		tl.sum.Drivers++
	}
	if err := im.roster.EnsureMembership(ctx, teamID, driverID); err != nil {
		return err
	}
	if key := [2]int64{teamID, driverID}; !tl.pairs[key] {
		tl.pairs[key] = true
		tl.sum.Memberships++
	}
	return nil
}

// ParseTeamNo reads a car number cell. Anything that is not a whole number
// means "no number" rather than an error.
func ParseTeamNo(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	n := int(f)
	return &n
}
