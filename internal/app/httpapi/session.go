package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/higher-endeavors/endeavors/internal/auth"
	"github.com/higher-endeavors/endeavors/internal/httputil"
)

func (h *handler) sessionRoutes(r *mux.Router) {
	r.HandleFunc("/session", h.currentSession).Methods(http.MethodGet)
	r.HandleFunc("/signout", h.signOut).Methods(http.MethodPost)
}

func (h *handler) currentSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, session(r))
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context(), r); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Auth.Sessions().ClearCookie(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) cognitoSignIn(w http.ResponseWriter, r *http.Request) {
	target, err := h.Auth.CognitoSignInURL(auth.SafeRedirect(r.URL.Query().Get("redirect")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handler) cognitoCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") != "" {
		http.Redirect(w, r, h.Config.Routes().AccessRedirect+"?error=denied", http.StatusFound)
		return
	}
	issued, err := h.Auth.CompleteCognito(r.Context(), q.Get("code"), q.Get("state"), r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.completeSignIn(w, r, issued)
}

func (h *handler) requestMagicLink(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Redirect string `json:"redirect"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Auth.RequestMagicLink(r.Context(), payload.Email, auth.SafeRedirect(payload.Redirect)); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

func (h *handler) verifyMagicLink(w http.ResponseWriter, r *http.Request) {
	issued, err := h.Auth.VerifyMagicLink(r.Context(), r.URL.Query().Get("token"), r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.completeSignIn(w, r, issued)
}

func (h *handler) completeSignIn(w http.ResponseWriter, r *http.Request, issued auth.Issued) {
	h.Auth.Sessions().SetCookie(w, issued.Token, issued.ExpiresAt)
	http.Redirect(w, r, auth.SafeRedirect(issued.Redirect), http.StatusFound)
}
