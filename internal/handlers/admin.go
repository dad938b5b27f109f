package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/db"
	"github.com/antigravity/raceControl/internal/importer"
	"github.com/antigravity/raceControl/internal/models"
)

const maxUploadSize = 10 << 20

func (h *Handlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := pathID(r, "id")

	var req struct {
		PIN         *string `json:"pin"`
		TeamNo      *int    `json:"team_no"`
		ClearTeamNo bool    `json:"clear_team_no"`
		CarClass    *string `json:"car_class"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.roster.TeamByID(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.PIN != nil {
		if err := h.roster.SetTeamPIN(ctx, id, *req.PIN); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.ClearTeamNo || req.TeamNo != nil {
		no := req.TeamNo
		if req.ClearTeamNo {
			no = nil
		}
		if err := h.roster.SetTeamNumber(ctx, id, no); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.CarClass != nil {
		if err := h.roster.SetTeamClass(ctx, id, *req.CarClass); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	team, err := h.roster.TeamByID(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handlers) SetDriverActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID, _ := pathID(r, "id")
	driverID, _ := pathID(r, "driverID")

	var req struct {
		Active *bool `json:"active"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		h.writeError(w, r, fmt.Errorf("active is required: %w", models.ErrValidation))
		return
	}
	if _, err := h.roster.Membership(ctx, teamID, driverID); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.roster.SetMembershipActive(ctx, teamID, driverID, *req.Active); err != nil {
		h.writeError(w, r, err)
		return
	}

	m, err := h.roster.Membership(ctx, teamID, driverID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) Pins(w http.ResponseWriter, r *http.Request) {
	pins, err := h.roster.TeamsWithPins(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pins)
}

// ImportFile takes a multipart upload in field "file". Columns are guessed
// from the header unless the form names them.
func (h *Handlers) ImportFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, r, fmt.Errorf("bad upload: %v: %w", err, models.ErrValidation))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("file is required: %w", models.ErrValidation))
		return
	}
	defer file.Close()

	var t importer.Table
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		t, err = importer.ReadXLSX(file)
	default:
		t, err = importer.ReadCSV(file)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.runImport(w, r, t, r.FormValue("shape"), formOverrides(r))
}

type sheetImportRequest struct {
	SheetID string `json:"sheet_id"`
	GID     string `json:"gid"`
	Range   string `json:"range"`
	URL     string `json:"url"`
	Shape   string `json:"shape"`
	overrides
}

// ImportSheet pulls a remote table: a published HTML page when url is set,
// the Sheets API when range is set, otherwise the public CSV export.
func (h *Handlers) ImportSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetImportRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Import.FetchTimeout)
	defer cancel()

	t, err := h.fetchTable(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.runImport(w, r, t, req.Shape, req.overrides)
}

func (h *Handlers) fetchTable(ctx context.Context, req sheetImportRequest) (importer.Table, error) {
	switch {
	case strings.TrimSpace(req.URL) != "":
		return importer.FetchHTMLTable(ctx, h.sheets.Client, strings.TrimSpace(req.URL))
	case strings.TrimSpace(req.SheetID) == "":
		return importer.Table{}, fmt.Errorf("sheet_id or url is required: %w", models.ErrValidation)
	case req.Range != "":
		if h.config.Import.ServiceAccountJSON == "" {
			return importer.Table{}, fmt.Errorf("no service account configured for range reads: %w", models.ErrValidation)
		}
		api, err := importer.NewSheetsAPI(ctx, h.config.Import.ServiceAccountJSON)
		if err != nil {
			return importer.Table{}, err
		}
		return api.Read(ctx, req.SheetID, req.Range)
	default:
		return h.sheets.Fetch(ctx, req.SheetID, req.GID)
	}
}

// overrides name mapping columns explicitly; blank fields are guessed.
type overrides struct {
	TeamCol    string   `json:"team_col"`
	ClassCol   string   `json:"class_col"`
	TeamNoCol  string   `json:"team_no_col"`
	DriverCol  string   `json:"driver_col"`
	DriverCols []string `json:"driver_cols"`
}

func formOverrides(r *http.Request) overrides {
	o := overrides{
		TeamCol:   r.FormValue("team_col"),
		ClassCol:  r.FormValue("class_col"),
		TeamNoCol: r.FormValue("team_no_col"),
		DriverCol: r.FormValue("driver_col"),
	}
	for _, v := range r.MultipartForm.Value["driver_cols"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				o.DriverCols = append(o.DriverCols, c)
			}
		}
	}
	return o
}

func (o overrides) apply(m *importer.Mapping) {
	if o.TeamCol != "" {
		m.Team = o.TeamCol
	}
	if o.ClassCol != "" {
		m.Class = o.ClassCol
	}
	if o.TeamNoCol != "" {
		m.TeamNo = o.TeamNoCol
	}
	if o.DriverCol != "" {
		m.Driver = o.DriverCol
	}
	if len(o.DriverCols) > 0 {
		m.Drivers = o.DriverCols
	}
}

func (h *Handlers) runImport(w http.ResponseWriter, r *http.Request, t importer.Table, rawShape string, o overrides) {
	shape, err := importer.ParseShape(rawShape)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := importer.AutoMapping(t, shape)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	o.apply(&m)

	sum, err := h.importer.Import(r.Context(), t, m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Confirm != db.ResetConfirmation {
		h.writeError(w, r, fmt.Errorf("type %s to confirm: %w", db.ResetConfirmation, models.ErrValidation))
		return
	}
	if err := db.Reset(r.Context(), h.db); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Warn("database reset", zap.String("request_id", r.Header.Get(HeaderRequestID)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
