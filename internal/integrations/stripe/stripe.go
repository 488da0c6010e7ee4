// Package stripe adapts stripe-go to the gateway's checkout and webhook
// needs.
package stripe

import (
	"context"
	"net/http"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const provider = "stripe"

// Checkout modes.
const (
	ModeSubscription = string(stripeapi.CheckoutSessionModeSubscription)
	ModePayment      = string(stripeapi.CheckoutSessionModePayment)
)

// Checkout statuses.
const (
	StatusOpen     = string(stripeapi.CheckoutSessionStatusOpen)
	StatusComplete = string(stripeapi.CheckoutSessionStatusComplete)
	StatusExpired  = string(stripeapi.CheckoutSessionStatusExpired)
)

// CheckoutSession is the subset of a checkout session the gateway uses.
type CheckoutSession struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Mode              string `json:"mode"`
	PaymentStatus     string `json:"payment_status"`
	CustomerID        string `json:"customer"`
	CustomerEmail     string `json:"customer_email"`
	ClientReferenceID string `json:"client_reference_id"`
	ClientSecret      string `json:"client_secret,omitempty"`
	URL               string `json:"url,omitempty"`
}

// CheckoutParams describes a new embedded checkout session.
type CheckoutParams struct {
	PriceID           string
	Mode              string
	Quantity          int
	ClientReferenceID string
	CustomerEmail     string
	ReturnURL         string
}

// Client creates and retrieves checkout sessions. Requests go through the
// shared resilient HTTP client, so stripe-go's own retries are disabled.
type Client struct {
	api *client.API
}

func New(http *httpclient.Client, apiBase, secretKey string, log *logger.Logger) *Client {
	cfg := &stripeapi.BackendConfig{
		HTTPClient:        http.HTTPClient(),
		MaxNetworkRetries: stripeapi.Int64(0),
		EnableTelemetry:   stripeapi.Bool(false),
	}
	if log != nil {
		cfg.LeveledLogger = log.WithField("provider", provider)
	}
	if apiBase = strings.TrimRight(apiBase, "/"); apiBase != "" {
		cfg.URL = stripeapi.String(apiBase)
	}
	return &Client{api: client.New(secretKey, stripeapi.NewBackendsWithConfig(cfg))}
}

// CreateCheckoutSession creates an embedded checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	qty := p.Quantity
	if qty <= 0 {
		qty = 1
	}
	params := &stripeapi.CheckoutSessionParams{
		UIMode:    stripeapi.String(string(stripeapi.CheckoutSessionUIModeEmbedded)),
		Mode:      stripeapi.String(p.Mode),
		ReturnURL: stripeapi.String(p.ReturnURL),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			Price:    stripeapi.String(p.PriceID),
			Quantity: stripeapi.Int64(int64(qty)),
		}},
	}
	if p.ClientReferenceID != "" {
		params.ClientReferenceID = stripeapi.String(p.ClientReferenceID)
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripeapi.String(p.CustomerEmail)
	}
	params.Context = ctx

	cs, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, apiError("create checkout session", "", err)
	}
	return FromAPI(cs), nil
}

// GetCheckoutSession retrieves a checkout session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return CheckoutSession{}, apiError("retrieve checkout session", id, err)
	}
	return FromAPI(cs), nil
}

func apiError(op, id string, err error) error {
	var se *stripeapi.Error
	if apperrors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
		return apperrors.NewNotFoundError("checkout session", id)
	}
	return apperrors.NewUpstreamError(provider, op, err)
}

// FromAPI flattens a stripe-go checkout session. The customer may arrive as
// a bare id or an expanded object; details email wins over the prefill.
func FromAPI(cs *stripeapi.CheckoutSession) CheckoutSession {
	if cs == nil {
		return CheckoutSession{}
	}
	out := CheckoutSession{
		ID:                cs.ID,
		Status:            string(cs.Status),
		Mode:              string(cs.Mode),
		PaymentStatus:     string(cs.PaymentStatus),
		CustomerEmail:     cs.CustomerEmail,
		ClientReferenceID: cs.ClientReferenceID,
		ClientSecret:      cs.ClientSecret,
		URL:               cs.URL,
	}
	if cs.Customer != nil {
		out.CustomerID = cs.Customer.ID
	}
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		out.CustomerEmail = cs.CustomerDetails.Email
	}
	return out
}
