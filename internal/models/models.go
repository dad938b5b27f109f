package models

import "time"

type Team struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CarClass string `json:"car_class"`
	TeamNo   *int   `json:"team_no"`
	PIN      string `json:"-"`
}

type Driver struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	IRacingID *string `json:"iracing_id,omitempty"`
}

type Membership struct {
	TeamID   int64 `json:"team_id"`
	DriverID int64 `json:"driver_id"`
	IsActive bool  `json:"is_active"`
}

// TeamDriver is a roster entry as seen from one team.
type TeamDriver struct {
	DriverID int64  `json:"driver_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Stint struct {
	ID       int64      `json:"id"`
	TeamID   int64      `json:"team_id"`
	DriverID int64      `json:"driver_id"`
	Start    time.Time  `json:"start_ts"`
	End      *time.Time `json:"end_ts"`
}

type CurrentStint struct {
	StintID    int64     `json:"stint_id"`
	TeamID     int64     `json:"team_id"`
	DriverID   int64     `json:"driver_id"`
	DriverName string    `json:"name"`
	Start      time.Time `json:"start_ts"`
}

// ActiveLabel is what history shows in place of the end of an open stint.
const ActiveLabel = "(active)"

type HistoryEntry struct {
	Driver string     `json:"driver"`
	Start  time.Time  `json:"start_ts"`
	End    *time.Time `json:"end_ts"`
}

// EndLabel renders the end timestamp, or ActiveLabel for an open stint.
func (h HistoryEntry) EndLabel(layout string) string {
	if h.End == nil {
		return ActiveLabel
	}
	return h.End.Format(layout)
}

// NoDriver is the grid placeholder for a team without an open stint.
const NoDriver = "-"

type GridRow struct {
	TeamNo     *int   `json:"team_no"`
	CarClass   string `json:"car_class"`
	TeamName   string `json:"team_name"`
	DriverName string `json:"driver_name"`
}

type TeamPin struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CarClass string `json:"car_class"`
	PIN      string `json:"team_pin"`
}
