package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	bodydomain "github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	liftdomain "github.com/higher-endeavors/endeavors/internal/app/domain/lifts"
	settingsdomain "github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/httputil"
)

func (h *handler) accountRoutes(r *mux.Router) {
	r.HandleFunc("/reference-lifts", h.referenceLifts).Methods(http.MethodGet)
	r.HandleFunc("/balanced-lifts", h.listBalancedLifts).Methods(http.MethodGet)
	r.HandleFunc("/balanced-lifts", h.recordBalancedLift).Methods(http.MethodPost)
	r.HandleFunc("/balanced-lifts/report", h.balanceReport).Methods(http.MethodGet)

	r.HandleFunc("/user-settings", h.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/user-settings", h.saveSettings).Methods(http.MethodPut)

	r.HandleFunc("/body-composition", h.listBodyComposition).Methods(http.MethodGet)
	r.HandleFunc("/body-composition", h.recordBodyComposition).Methods(http.MethodPost)
	r.HandleFunc("/body-composition/{id:[0-9]+}", h.deleteBodyComposition).Methods(http.MethodDelete)
}

func (h *handler) referenceLifts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Lifts.ReferenceLifts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) listBalancedLifts(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(session(r), int64(queryInt(r, "user_id", 0)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.Lifts.BalancedLifts(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) recordBalancedLift(w http.ResponseWriter, r *http.Request) {
	var payload liftdomain.NewBalancedLift
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.Lifts.Record(r.Context(), session(r).UserID, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, row)
}

func (h *handler) balanceReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Lifts.Report(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.Settings.View(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsdomain.UserSettings
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.Settings.Save(r.Context(), session(r).UserID, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (h *handler) listBodyComposition(w http.ResponseWriter, r *http.Request) {
	rows, err := h.BodyComp.List(r.Context(), session(r).UserID, queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) recordBodyComposition(w http.ResponseWriter, r *http.Request) {
	var payload bodydomain.NewEntry
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.BodyComp.Record(r.Context(), session(r).UserID, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, row)
}

func (h *handler) deleteBodyComposition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.BodyComp.Delete(r.Context(), session(r).UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
