package httpapi

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/internal/integrations/stripe"
)

func (h *handler) billingRoutes(r *mux.Router) {
	r.HandleFunc("/stripe/checkout-sessions", h.createCheckout).Methods(http.MethodPost)
	r.HandleFunc("/stripe/checkout-sessions/{id}", h.checkoutStatus).Methods(http.MethodGet)
	r.HandleFunc("/stripe/return", h.checkoutReturn).Methods(http.MethodGet)
}

func (h *handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PriceID string `json:"price_id"`
		Mode    string `json:"mode"`
	}
	if err := httputil.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.Users.GetUser(r.Context(), session(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cs, err := h.Billing.CreateCheckout(r.Context(), u, payload.PriceID, payload.Mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"id":              cs.ID,
		"client_secret":   cs.ClientSecret,
		"publishable_key": h.Billing.PublishableKey(),
	})
}

// checkoutStatus reports a session's status, applying it when complete.
func (h *handler) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Billing.CompleteCheckout(r.Context(), session(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":         cs.Status,
		"customer_email": cs.CustomerEmail,
	})
}

// checkoutReturn is where embedded checkout sends the browser: an open
// session goes back home, a complete one is applied, anything else renders
// nothing.
func (h *handler) checkoutReturn(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Billing.CompleteCheckout(r.Context(), session(r).UserID, r.URL.Query().Get("session_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch cs.Status {
	case stripe.StatusOpen:
		http.Redirect(w, r, "/", http.StatusFound)
	case stripe.StatusComplete:
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status":         cs.Status,
			"customer_email": cs.CustomerEmail,
		})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, apperrors.NewValidationError("body", "unreadable"))
		return
	}
	applied, err := h.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true, "applied": applied})
}
