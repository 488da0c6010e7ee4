package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
)

// Where the browser lands after a provider connection attempt.
const connectionsPage = "/user/settings"

func (h *handler) deviceRoutes(r *mux.Router) {
	r.HandleFunc("/device-connections", h.deviceConnections).Methods(http.MethodGet)
	r.HandleFunc("/activities", h.activities).Methods(http.MethodGet)

	r.HandleFunc("/garmin-connect/auth", h.garminAuth).Methods(http.MethodGet)
	r.HandleFunc("/garmin-connect/callback", h.garminCallback).Methods(http.MethodGet)
	r.HandleFunc("/garmin-connect/disconnect", h.garminDisconnect).Methods(http.MethodPost)

	r.HandleFunc("/strava/auth", h.stravaAuth).Methods(http.MethodGet)
	r.HandleFunc("/strava/callback", h.stravaCallback).Methods(http.MethodGet)
	r.HandleFunc("/strava/sync", h.stravaSync).Methods(http.MethodPost)
	r.HandleFunc("/strava/disconnect", h.stravaDisconnect).Methods(http.MethodPost)
}

func (h *handler) deviceConnections(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Devices.Statuses(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statuses)
}

func (h *handler) activities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := device.ActivityFilter{Provider: q.Get("provider"), Limit: queryInt(r, "limit", 0)}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.writeError(w, r, apperrors.NewValidationError("since", "must be an RFC 3339 timestamp"))
			return
		}
		f.Since = &since
	}
	rows, err := h.Devices.Activities(r.Context(), session(r).UserID, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *handler) garminAuth(w http.ResponseWriter, r *http.Request) {
	target, err := h.Devices.GarminAuthURL(session(r).Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handler) garminCallback(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		http.Redirect(w, r, connectionsPage+"?garmin=denied", http.StatusFound)
		return
	}
	if _, err := h.Devices.GarminCallback(r.Context(), s.UserID, s.Email, q.Get("code"), q.Get("state")); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, connectionsPage+"?garmin=connected", http.StatusFound)
}

func (h *handler) garminDisconnect(w http.ResponseWriter, r *http.Request) {
	changed, err := h.Devices.GarminDisconnect(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true, "disconnected": changed})
}

func (h *handler) garminWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("body", "unreadable"))
		return
	}
	n, err := h.Devices.GarminPush(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"received": n})
}

func (h *handler) stravaAuth(w http.ResponseWriter, r *http.Request) {
	target, err := h.Devices.StravaAuthURL(session(r).Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handler) stravaCallback(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		http.Redirect(w, r, connectionsPage+"?strava=denied", http.StatusFound)
		return
	}
	if _, err := h.Devices.StravaCallback(r.Context(), s.UserID, s.Email, q.Get("code"), q.Get("state")); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, connectionsPage+"?strava=connected", http.StatusFound)
}

func (h *handler) stravaSync(w http.ResponseWriter, r *http.Request) {
	n, err := h.Devices.SyncUser(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"activities": n})
}

func (h *handler) stravaDisconnect(w http.ResponseWriter, r *http.Request) {
	changed, err := h.Devices.StravaDisconnect(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true, "disconnected": changed})
}
