package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	domain "github.com/higher-endeavors/endeavors/internal/app/domain/training"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
)

func (h *handler) trainingRoutes(r *mux.Router) {
	rt := r.PathPrefix("/resistance-training").Subrouter()
	rt.HandleFunc("/programs", h.listPrograms).Methods(http.MethodGet)
	rt.HandleFunc("/programs", h.createProgram).Methods(http.MethodPost)
	rt.HandleFunc("/programs/{id:[0-9]+}", h.getProgram).Methods(http.MethodGet)
	rt.HandleFunc("/programs/{id:[0-9]+}", h.deleteProgram).Methods(http.MethodDelete)
	rt.HandleFunc("/programs/{id:[0-9]+}/session-results", h.recordSessionResults).Methods(http.MethodPost)

	rt.HandleFunc("/{kind:template-categories|tier-continuum|periodization-types|phases}", h.listEnumeration).Methods(http.MethodGet)
	rt.Handle("/template-categories", h.Guard.RequireRole("admin")(http.HandlerFunc(h.createTemplateCategory))).Methods(http.MethodPost)
	rt.Handle("/template-categories/{id:[0-9]+}", h.Guard.RequireRole("admin")(http.HandlerFunc(h.deleteTemplateCategory))).Methods(http.MethodDelete)

	r.HandleFunc("/exercise-library", h.searchCatalog).Methods(http.MethodGet)
	r.HandleFunc("/user-exercise-library", h.listUserExercises).Methods(http.MethodGet)
	r.HandleFunc("/user-exercise-library", h.createUserExercise).Methods(http.MethodPost)
	r.HandleFunc("/user-exercise-library/{id:[0-9]+}", h.deleteUserExercise).Methods(http.MethodDelete)
}

func (h *handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Training.ListPrograms(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, programs)
}

func (h *handler) createProgram(w http.ResponseWriter, r *http.Request) {
	var payload domain.NewProgram
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	program, err := h.Training.CreateProgram(r.Context(), session(r).UserID, payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, program)
}

func (h *handler) getProgram(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	program, err := h.Training.GetProgram(r.Context(), session(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, program)
}

func (h *handler) deleteProgram(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Training.DeleteProgram(r.Context(), session(r).UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) recordSessionResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var payload struct {
		Exercises []domain.SessionResult `json:"exercises"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Training.RecordSessionResults(r.Context(), session(r).UserID, id, payload.Exercises); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) listEnumeration(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Training.ListEnumeration(r.Context(), mux.Vars(r)["kind"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) createTemplateCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.Training.CreateTemplateCategory(r.Context(), payload.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, row)
}

func (h *handler) deleteTemplateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Training.DeleteTemplateCategory(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) searchCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Training.SearchCatalog(r.Context(), domain.CatalogFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		Limit:    queryInt(r, "limit", 0),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *handler) listUserExercises(w http.ResponseWriter, r *http.Request) {
	userID, err := targetUser(session(r), int64(queryInt(r, "user_id", 0)))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.Training.ListUserExercises(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) createUserExercise(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   string `json:"exercise_name"`
		UserID int64  `json:"user_id"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID, err := targetUser(session(r), payload.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	row, err := h.Training.CreateUserExercise(r.Context(), userID, payload.Name)
	if apperrors.IsConflict(err) {
		httputil.Error(w, http.StatusBadRequest, "Exercise already exists")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

func (h *handler) deleteUserExercise(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Training.DeleteUserExercise(r.Context(), session(r).UserID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) adminUserPrograms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := authorize(r, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	programs, err := h.Training.ListPrograms(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, programs)
}
