package stripe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v76"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	log := logger.Discard()
	return New(httpclient.New(httpclient.Config{Provider: provider, Logger: log}), srv.URL, "sk_test", log)
}

func TestCreateCheckoutSession_FormEncoded(t *testing.T) {
	var form url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		fmt.Fprint(w, `{"id":"cs_1","object":"checkout.session","status":"open","mode":"subscription","client_secret":"secret_1"}`)
	})

	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		PriceID: "price_123", Mode: ModeSubscription, ClientReferenceID: "42", ReturnURL: "https://x/return?session_id={CHECKOUT_SESSION_ID}",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, StatusOpen, sess.Status)
	assert.Equal(t, "secret_1", sess.ClientSecret)
	assert.Equal(t, "price_123", form.Get("line_items[0][price]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "embedded", form.Get("ui_mode"))
	assert.Equal(t, "subscription", form.Get("mode"))
	assert.Equal(t, "42", form.Get("client_reference_id"))
	assert.Empty(t, form.Get("customer_email"))
}

func TestGetCheckoutSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_2":
			fmt.Fprint(w, `{"id":"cs_2","object":"checkout.session","status":"complete","mode":"payment",
				"customer":"cus_9","customer_details":{"email":"a@b.co"},"client_reference_id":"7"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`)
		}
	})

	sess, err := c.GetCheckoutSession(context.Background(), "cs_2")
	require.NoError(t, err)
	assert.Equal(t, "cus_9", sess.CustomerID)
	assert.Equal(t, "a@b.co", sess.CustomerEmail)
	assert.Equal(t, StatusComplete, sess.Status)
	assert.Equal(t, ModePayment, sess.Mode)

	_, err = c.GetCheckoutSession(context.Background(), "cs_missing")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestFromAPI_ExpandedCustomer(t *testing.T) {
	s := FromAPI(&stripeapi.CheckoutSession{
		ID:              "cs_3",
		Status:          stripeapi.CheckoutSessionStatusComplete,
		Customer:        &stripeapi.Customer{ID: "cus_3"},
		CustomerEmail:   "prefill@b.co",
		CustomerDetails: &stripeapi.CheckoutSessionCustomerDetails{Email: "paid@b.co"},
	})
	assert.Equal(t, "cus_3", s.CustomerID)
	assert.Equal(t, "paid@b.co", s.CustomerEmail)
	assert.Equal(t, CheckoutSession{}, FromAPI(nil))
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","api_version":"2020-08-27",
		"data":{"object":{"id":"cs_1","object":"checkout.session","status":"complete","customer":"cus_1","client_reference_id":"5"}}}`)
	now := time.Now()
	good := SignedHeader(payload, "whsec", now)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", good, true},
		{"valid with extra signature", good + ",v1=deadbeef", true},
		{"wrong secret", SignedHeader(payload, "other", now), false},
		{"too old", SignedHeader(payload, "whsec", now.Add(-6*time.Minute)), false},
		{"missing timestamp", "v1=abc", false},
		{"garbage", "nonsense", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent(payload, tt.header, "whsec")
			if tt.ok && err != nil {
				t.Errorf("ParseEvent() = %v, want nil", err)
			}
			if !tt.ok && !apperrors.IsValidationError(err) {
				t.Errorf("ParseEvent() = %v, want validation error", err)
			}
		})
	}

	ev, err := ParseEvent(payload, good, "whsec")
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "cs_1", ev.Session.ID)
	assert.Equal(t, "cus_1", ev.Session.CustomerID)
	assert.Equal(t, "5", ev.Session.ClientReferenceID)
}

func TestParseEvent_NoSecret(t *testing.T) {
	_, err := ParseEvent([]byte(`{}`), "t=1,v1=00", "")
	require.Error(t, err)
	assert.False(t, apperrors.IsValidationError(err))
}

func TestParseEvent_OtherTypeHasNoSession(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	ev, err := ParseEvent(payload, SignedHeader(payload, "whsec", time.Now()), "whsec")
	require.NoError(t, err)
	assert.Equal(t, "customer.created", ev.Type)
	assert.Nil(t, ev.Session)
}
