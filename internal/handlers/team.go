package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/export"
	"github.com/antigravity/raceControl/internal/ledger"
	"github.com/antigravity/raceControl/internal/models"
)

type teamView struct {
	Team    models.Team           `json:"team"`
	Current *models.CurrentStint  `json:"current"`
	Drivers []models.TeamDriver   `json:"drivers"`
	History []models.HistoryEntry `json:"history"`
}

// Team is the team page: who is driving, who may drive, and recent stints.
func (h *Handlers) Team(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := pathID(r, "id")

	var v teamView
	var err error
	if v.Team, err = h.roster.TeamByID(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if v.Current, err = h.ledger.CurrentStint(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if v.Drivers, err = h.roster.TeamDrivers(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if v.History, err = h.ledger.History(ctx, id, ledger.DefaultHistoryLimit); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) StartStint(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")

	var req struct {
		DriverID int64 `json:"driver_id"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.DriverID <= 0 {
		h.writeError(w, r, fmt.Errorf("driver_id is required: %w", models.ErrValidation))
		return
	}

	stint, err := h.ledger.StartStint(r.Context(), id, req.DriverID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("stint started",
		zap.Int64("team_id", id),
		zap.Int64("driver_id", req.DriverID),
		zap.Int64("stint_id", stint.ID))
	writeJSON(w, http.StatusCreated, stint)
}

func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	hist, err := h.ledger.History(r.Context(), id, queryLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *Handlers) HistoryCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "csv", "text/csv; charset=utf-8",
		func(out io.Writer, _ models.Team, entries []models.HistoryEntry) error {
			return export.HistoryCSV(out, entries)
		})
}

func (h *Handlers) HistoryXLSX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(out io.Writer, team models.Team, entries []models.HistoryEntry) error {
			return export.HistoryXLSX(out, team.Name, entries)
		})
}

// download renders into a buffer first so a failed export still gets a
// JSON error instead of a truncated attachment.
func (h *Handlers) download(w http.ResponseWriter, r *http.Request, ext, contentType string,
	render func(io.Writer, models.Team, []models.HistoryEntry) error) {
	ctx := r.Context()
	id, _ := pathID(r, "id")

	team, err := h.roster.TeamByID(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	hist, err := h.ledger.History(ctx, id, queryLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, team, hist); err != nil {
		h.writeError(w, r, fmt.Errorf("failed to export history: %w", err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(team.Name, ext)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
