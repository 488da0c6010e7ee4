// Package billing runs hosted checkout and applies completed payments to
// user accounts.
package billing

import (
	"context"
	"strconv"
	"strings"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/stripe"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Checkouts is the payment provider surface the service needs.
type Checkouts interface {
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutParams) (stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (stripe.CheckoutSession, error)
}

// Config holds the payment settings the service needs.
type Config struct {
	PublishableKey string
	WebhookSecret  string
	// ReturnURL is where embedded checkout sends the browser; the provider
	// substitutes {CHECKOUT_SESSION_ID}.
	ReturnURL string
}

// Service creates checkout sessions and applies their completion.
type Service struct {
	api    Checkouts
	users  storage.UserStore
	events storage.BillingEventStore
	cfg    Config
	log    *logger.Logger
}

// New constructs a billing service. api may be nil when payments are not
// configured.
func New(api Checkouts, users storage.UserStore, events storage.BillingEventStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("billing")
	}
	return &Service{api: api, users: users, events: events, cfg: cfg, log: log}
}

// PublishableKey is handed to the browser to mount embedded checkout.
func (s *Service) PublishableKey() string { return s.cfg.PublishableKey }

// CreateCheckout opens an embedded checkout session for the user.
func (s *Service) CreateCheckout(ctx context.Context, u user.User, priceID, mode string) (stripe.CheckoutSession, error) {
	if s.api == nil {
		return stripe.CheckoutSession{}, apperrors.NewNotFoundError("payments", "")
	}
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return stripe.CheckoutSession{}, apperrors.RequiredError("price_id")
	}
	if mode == "" {
		mode = stripe.ModeSubscription
	}
	if mode != stripe.ModeSubscription && mode != stripe.ModePayment {
		return stripe.CheckoutSession{}, apperrors.NewValidationError("mode", "must be subscription or payment")
	}

	cs, err := s.api.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		PriceID:           priceID,
		Mode:              mode,
		ClientReferenceID: strconv.FormatInt(u.ID, 10),
		CustomerEmail:     u.Email,
		ReturnURL:         s.cfg.ReturnURL,
	})
	if err != nil {
		return stripe.CheckoutSession{}, err
	}
	s.log.WithContext(ctx).WithField("checkout_session", cs.ID).WithField("mode", mode).Info("checkout session created")
	return cs, nil
}

// CompleteCheckout reads a session the user returned from and, when it is
// complete, applies it to the account.
func (s *Service) CompleteCheckout(ctx context.Context, userID int64, sessionID string) (stripe.CheckoutSession, error) {
	if s.api == nil {
		return stripe.CheckoutSession{}, apperrors.NewNotFoundError("payments", "")
	}
	if sessionID == "" {
		return stripe.CheckoutSession{}, apperrors.RequiredError("session_id")
	}
	cs, err := s.api.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return stripe.CheckoutSession{}, err
	}
	if cs.ClientReferenceID != "" && cs.ClientReferenceID != strconv.FormatInt(userID, 10) {
		return stripe.CheckoutSession{}, apperrors.NewOwnershipError("checkout session", sessionID, userID)
	}
	if cs.Status == stripe.StatusComplete {
		if err := s.apply(ctx, userID, cs); err != nil {
			return stripe.CheckoutSession{}, err
		}
	}
	return cs, nil
}

// HandleWebhook verifies and applies a webhook delivery. Each event id is
// applied at most once; it reports whether this delivery changed anything.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	ev, err := stripe.ParseEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return false, err
	}
	log := s.log.WithContext(ctx).WithField("event_id", ev.ID).WithField("event_type", ev.Type)

	done, err := s.events.EventProcessed(ctx, ev.ID)
	if err != nil {
		return false, err
	}
	if done {
		log.Debug("webhook event already processed")
		return false, nil
	}

	applied := false
	if ev.Type == stripe.EventCheckoutCompleted && ev.Session != nil {
		cs := *ev.Session
		userID, err := strconv.ParseInt(cs.ClientReferenceID, 10, 64)
		if err != nil || userID <= 0 {
			log.Warn("checkout session without a user reference")
		} else if cs.Status == stripe.StatusComplete || cs.Status == "" {
			if err := s.apply(ctx, userID, cs); err != nil {
				return false, err
			}
			applied = true
		}
	}

	if err := s.events.RecordEvent(ctx, ev.ID, ev.Type); err != nil {
		return applied, err
	}
	return applied, nil
}

// apply stores the customer id; subscriptions also give an unset role the
// user role. One-time payments leave the role alone.
func (s *Service) apply(ctx context.Context, userID int64, cs stripe.CheckoutSession) error {
	if cs.CustomerID == "" {
		return apperrors.NewUpstreamError("stripe", "complete checkout", apperrors.New("session has no customer"))
	}
	promote := cs.Mode == stripe.ModeSubscription
	u, err := s.users.ApplyCheckout(ctx, userID, cs.CustomerID, promote)
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("user_id", userID).WithField("mode", cs.Mode).WithField("role", u.Role).Info("checkout applied")
	return nil
}
