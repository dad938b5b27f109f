package handlers

import (
	"net/http"
	"strings"
)

func (h *Handlers) Spectate(w http.ResponseWriter, r *http.Request) {
	grid, err := h.ledger.SpectateGrid(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (h *Handlers) Classes(w http.ResponseWriter, r *http.Request) {
	classes, err := h.roster.ListClasses(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *Handlers) Teams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.roster.ListTeams(r.Context(), strings.TrimSpace(r.URL.Query().Get("class")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}
