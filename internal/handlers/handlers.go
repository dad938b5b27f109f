// Package handlers serves the Race Control JSON API.
package handlers

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/antigravity/raceControl/internal/config"
	"github.com/antigravity/raceControl/internal/importer"
	"github.com/antigravity/raceControl/internal/ledger"
	"github.com/antigravity/raceControl/internal/models"
	"github.com/antigravity/raceControl/internal/roster"
)

const (
	HeaderTeamPin       = "X-Team-Pin"
	HeaderAdminPassword = "X-Admin-Password"
	HeaderRequestID     = "X-Request-ID"
)

type Handlers struct {
	db       *sql.DB
	config   *config.Config
	log      *zap.Logger
	roster   *roster.Store
	ledger   *ledger.Ledger
	importer *importer.Importer
	sheets   importer.SheetFetcher
}

type Option func(*Handlers)

// WithSheetFetcher replaces the public spreadsheet exporter.
func WithSheetFetcher(f importer.SheetFetcher) Option {
	return func(h *Handlers) { h.sheets = f }
}

func New(conn *sql.DB, cfg *config.Config, log *zap.Logger, opts ...Option) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	r := roster.New(conn)
	h := &Handlers{
		db:       conn,
		config:   cfg,
		log:      log,
		roster:   r,
		ledger:   ledger.New(conn),
		importer: importer.New(r, log),
		sheets:   importer.SheetFetcher{Client: &http.Client{Timeout: cfg.Import.FetchTimeout}},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router wires every route behind the request id, access log, recovery and
// no-cache middleware.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, h.accessLog, h.recoverer, noCache)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/spectate", h.Spectate).Methods(http.MethodGet)
	api.HandleFunc("/classes", h.Classes).Methods(http.MethodGet)
	api.HandleFunc("/teams", h.Teams).Methods(http.MethodGet)

	team := api.PathPrefix("/teams/{id:[0-9]+}").Subrouter()
	team.Use(h.requireTeam)
	team.HandleFunc("", h.Team).Methods(http.MethodGet)
	team.HandleFunc("/stints", h.StartStint).Methods(http.MethodPost)
	team.HandleFunc("/history", h.History).Methods(http.MethodGet)
	team.HandleFunc("/history.csv", h.HistoryCSV).Methods(http.MethodGet)
	team.HandleFunc("/history.xlsx", h.HistoryXLSX).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/teams/{id:[0-9]+}", h.UpdateTeam).Methods(http.MethodPut)
	admin.HandleFunc("/teams/{id:[0-9]+}/drivers/{driverID:[0-9]+}", h.SetDriverActive).Methods(http.MethodPut)
	admin.HandleFunc("/pins", h.Pins).Methods(http.MethodGet)
	admin.HandleFunc("/import", h.ImportFile).Methods(http.MethodPost)
	admin.HandleFunc("/import/sheet", h.ImportSheet).Methods(http.MethodPost)
	admin.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)

	return r
}

func (h *Handlers) isAdmin(r *http.Request) bool {
	want := h.config.Admin.Password
	if want == "" {
		return false
	}
	got := r.Header.Get(HeaderAdminPassword)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case h.config.Admin.Password == "":
			writeJSON(w, http.StatusForbidden, errorBody{"admin access is disabled"})
		case !h.isAdmin(r):
			writeJSON(w, http.StatusUnauthorized, errorBody{"wrong admin password"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// requireTeam lets the admin through, and anyone else holding the team PIN.
func (h *Handlers) requireTeam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if h.isAdmin(r) {
			if _, err := h.roster.TeamByID(r.Context(), id); err != nil {
				h.writeError(w, r, err)
				return
			}
		} else if err := h.roster.CheckPIN(r.Context(), id, r.Header.Get(HeaderTeamPin)); err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the model sentinels to status codes. Anything else is a
// storage or remote failure and is logged.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", w.Header().Get(HeaderRequestID)),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, models.ErrValidation
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(models.ErrValidation, err)
	}
	return nil
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
