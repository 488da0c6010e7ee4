package stripe

import (
	"encoding/json"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// DefaultTolerance is how old a signed webhook may be.
const DefaultTolerance = webhook.DefaultTolerance

// EventCheckoutCompleted is the only event type the gateway applies.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is a verified webhook event. Session is set for checkout session
// events.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// ParseEvent verifies the Stripe-Signature header against the endpoint
// secret and decodes the event. Events from other API versions are accepted
// since only stable checkout fields are read.
func ParseEvent(payload []byte, header, secret string) (Event, error) {
	if secret == "" {
		return Event{}, apperrors.New(provider + " webhook secret not configured")
	}
	raw, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, signatureError(err)
	}
	if raw.ID == "" || raw.Type == "" {
		return Event{}, apperrors.NewValidationError("body", "missing event id or type")
	}

	ev := Event{ID: raw.ID, Type: string(raw.Type)}
	if strings.HasPrefix(ev.Type, "checkout.session.") && raw.Data != nil {
		var cs stripeapi.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &cs); err != nil {
			return Event{}, apperrors.NewValidationError("body", "invalid checkout session object")
		}
		s := FromAPI(&cs)
		ev.Session = &s
	}
	return ev, nil
}

func signatureError(err error) error {
	switch {
	case apperrors.Is(err, webhook.ErrNotSigned), apperrors.Is(err, webhook.ErrInvalidHeader):
		return apperrors.NewValidationError("Stripe-Signature", "missing timestamp or signature")
	case apperrors.Is(err, webhook.ErrTooOld):
		return apperrors.NewValidationError("Stripe-Signature", "timestamp outside tolerance")
	case apperrors.Is(err, webhook.ErrNoValidSignature):
		return apperrors.NewValidationError("Stripe-Signature", "no matching signature")
	default:
		return apperrors.NewValidationError("body", "invalid JSON")
	}
}

// SignedHeader returns a Stripe-Signature header for payload signed at at.
func SignedHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}
