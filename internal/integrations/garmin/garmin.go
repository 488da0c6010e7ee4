// Package garmin wraps the Garmin Connect OAuth2 PKCE flow and the wellness
// API calls the gateway makes.
package garmin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
)

// Endpoints.
const (
	AuthURL  = "https://connect.garmin.com/oauth2Confirm"
	TokenURL = "https://diauth.garmin.com/di-oauth2-service/oauth/token"
	APIBase  = "https://apis.garmin.com"
)

// Client performs the authorization code exchange and API calls.
type Client struct {
	oauth   *oauth2.Config
	http    *httpclient.Client
	apiBase string
}

// New builds a client. apiBase may be empty for the production API.
func New(cfg config.GarminConfig, http *httpclient.Client, apiBase string) *Client {
	if apiBase == "" {
		apiBase = APIBase
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   AuthURL,
				TokenURL:  TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:    http,
		apiBase: strings.TrimRight(apiBase, "/"),
	}
}

// WithEndpoint overrides the OAuth endpoint.
func (c *Client) WithEndpoint(e oauth2.Endpoint) *Client {
	c.oauth.Endpoint = e
	return c
}

// AuthCodeURL returns the consent URL for state with an S256 challenge of verifier.
func (c *Client) AuthCodeURL(state, verifier string) string {
	return c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	return c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// Refresh returns a fresh token for an expired one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	return c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}).Token()
}

// UserID returns the Garmin user id the access token belongs to.
func (c *Client) UserID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/wellness-api/rest/user/id", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var raw []byte
	if err := c.http.DoJSON(req, "fetch user id", &raw); err != nil {
		return "", err
	}
	return gjson.GetBytes(raw, "userId").String(), nil
}

// Deregister revokes the user's consent with Garmin.
func (c *Client) Deregister(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiBase+"/wellness-api/rest/user/registration", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.http.DoJSON(req, "deregister", nil)
}

// PushedActivity is one activity summary from a push notification, keyed by
// the Garmin user it belongs to.
type PushedActivity struct {
	GarminUserID string
	Activity     device.Activity
}

// ParseActivityPush extracts activity summaries from a push notification body:
// {"activities":[{"userId":..., "summaryId":..., ...}]}.
func ParseActivityPush(body []byte) []PushedActivity {
	var out []PushedActivity
	gjson.GetBytes(body, "activities").ForEach(func(_, a gjson.Result) bool {
		external := a.Get("summaryId").String()
		if external == "" {
			external = a.Get("activityId").String()
		}
		if external == "" {
			return true
		}
		act := device.Activity{
			Provider:        device.ProviderGarmin,
			ExternalID:      external,
			Type:            strings.ToLower(a.Get("activityType").String()),
			Name:            a.Get("activityName").String(),
			StartTime:       time.Unix(a.Get("startTimeInSeconds").Int(), 0).UTC(),
			DurationSeconds: int(a.Get("durationInSeconds").Int()),
			Raw:             []byte(a.Raw),
		}
		if v := a.Get("distanceInMeters"); v.Exists() {
			d := v.Float()
			act.DistanceMeters = &d
		}
		if v := a.Get("activeKilocalories"); v.Exists() {
			n := int(v.Int())
			act.Calories = &n
		}
		if v := a.Get("averageHeartRateInBeatsPerMinute"); v.Exists() {
			n := int(v.Int())
			act.AvgHeartRate = &n
		}
		out = append(out, PushedActivity{GarminUserID: a.Get("userId").String(), Activity: act})
		return true
	})
	return out
}
