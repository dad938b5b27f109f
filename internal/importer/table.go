package importer

import (
	"fmt"
	"strings"

	"github.com/antigravity/raceControl/internal/models"
)

// Table is the common shape every import source is read into. Rows may be
// shorter than Header; missing cells read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

func (t Table) has(col string) bool {
	return col != "" && t.index(col) >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Column name heuristics, lowercase substrings.
var (
	CandidateTeam   = []string{"team", "team name", "team_name", "hold", "holdnavn"}
	CandidateClass  = []string{"class", "car_class", "klasse", "bilklasse", "car category"}
	CandidateDriver = []string{"driver", "driver name", "driver_name", "kører", "koerer"}
	CandidateTeamNo = []string{"car no", "car no.", "number", "start no", "start nr", "team no", "team nr"}

	driverHints = []string{"driver", "kører", "koerer"}
)

// GuessColumn returns the first column whose lowercase name contains one of
// the candidates, trying candidates in order. It returns "" when none match.
func GuessColumn(cols []string, candidates []string) string {
	lower := make([]string, len(cols))
	for i, c := range cols {
		lower[i] = strings.ToLower(c)
	}
	for _, cand := range candidates {
		k := strings.ToLower(cand)
		for i, c := range lower {
			if strings.Contains(c, k) {
				return cols[i]
			}
		}
	}
	return ""
}

type Shape string

const (
	// ShapeWide is one row per team with several driver columns.
	ShapeWide Shape = "wide"
	// ShapeLong is one row per team and driver pair.
	ShapeLong Shape = "long"
)

func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case ShapeWide, "":
		return ShapeWide, nil
	case ShapeLong:
		return ShapeLong, nil
	}
	return "", fmt.Errorf("unknown import shape %q: %w", s, models.ErrValidation)
}

// Mapping says which columns of a Table hold what. Driver is used by the
// long shape, Drivers by the wide shape. TeamNo is optional.
type Mapping struct {
	Shape   Shape
	Team    string
	Class   string
	TeamNo  string
	Driver  string
	Drivers []string
}

// AutoMapping guesses a mapping from the header the same way the admin form
// pre-selects columns: team falls back to the first column, class to the
// second, drivers to every column after those.
func AutoMapping(t Table, shape Shape) (Mapping, error) {
	cols := t.Header
	if len(cols) < 2 {
		return Mapping{}, fmt.Errorf("need at least team and class columns, got %d: %w", len(cols), ErrMissingColumn)
	}

	m := Mapping{
		Shape:  shape,
		Team:   GuessColumn(cols, CandidateTeam),
		Class:  GuessColumn(cols, CandidateClass),
		TeamNo: GuessColumn(cols, CandidateTeamNo),
	}
	if m.Team == "" {
		m.Team = cols[0]
	}
	if m.Class == "" {
		m.Class = cols[1]
	}

	for _, c := range cols {
		lc := strings.ToLower(c)
		for _, hint := range driverHints {
			if strings.Contains(lc, hint) {
				m.Drivers = append(m.Drivers, c)
				break
			}
		}
	}
	if len(m.Drivers) == 0 {
		m.Drivers = append(m.Drivers, cols[2:]...)
	}

	if shape == ShapeLong {
		m.Driver = GuessColumn(cols, CandidateDriver)
		if m.Driver == "" && len(m.Drivers) > 0 {
			m.Driver = m.Drivers[0]
		}
	}
	return m, nil
}
