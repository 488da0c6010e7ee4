// Package strava wraps the Strava OAuth flow and athlete activity reads.
package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
	APIBase  = "https://www.strava.com"
)

// Scopes requested on connect.
var Scopes = []string{"read", "activity:read_all"}

// pageSize is the per_page used for activity reads; Strava caps it at 200.
const pageSize = 100

// Client performs the OAuth exchange and activity reads.
type Client struct {
	oauth   *oauth2.Config
	http    *httpclient.Client
	apiBase string
}

func New(cfg config.StravaConfig, http *httpclient.Client, apiBase string) *Client {
	if apiBase == "" {
		apiBase = APIBase
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{strings.Join(Scopes, ",")},
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

// AuthCodeURL returns the consent URL.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// Grant is a token response together with the athlete it belongs to.
type Grant struct {
	Token     *oauth2.Token
	AthleteID string
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return Grant{}, err
	}
	return Grant{Token: tok, AthleteID: athleteID(tok)}, nil
}

// Refresh returns a fresh token. Strava rotates refresh tokens.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	return c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}).Token()
}

func athleteID(tok *oauth2.Token) string {
	athlete, ok := tok.Extra("athlete").(map[string]interface{})
	if !ok {
		return ""
	}
	switch id := athlete["id"].(type) {
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case string:
		return id
	}
	return ""
}

// Activities reads the athlete's activities started after since, following
// pages until a short page.
func (c *Client) Activities(ctx context.Context, accessToken string, since time.Time) ([]device.Activity, error) {
	var all []device.Activity
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		if !since.IsZero() {
			q.Set("after", strconv.FormatInt(since.Unix(), 10))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/api/v3/athlete/activities?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		var raw []byte
		if err := c.http.DoJSON(req, fmt.Sprintf("list activities page %d", page), &raw); err != nil {
			return nil, err
		}

		items := gjson.ParseBytes(raw).Array()
		for _, a := range items {
			all = append(all, parseActivity(a))
		}
		if len(items) < pageSize {
			return all, nil
		}
	}
}

func parseActivity(a gjson.Result) device.Activity {
	start, _ := time.Parse(time.RFC3339, a.Get("start_date").String())
	act := device.Activity{
		Provider:        device.ProviderStrava,
		ExternalID:      a.Get("id").String(),
		Type:            strings.ToLower(firstNonEmpty(a.Get("sport_type").String(), a.Get("type").String())),
		Name:            a.Get("name").String(),
		StartTime:       start.UTC(),
		DurationSeconds: int(a.Get("moving_time").Int()),
		Raw:             []byte(a.Raw),
	}
	if v := a.Get("distance"); v.Exists() {
		d := v.Float()
		act.DistanceMeters = &d
	}
	if v := a.Get("kilojoules"); v.Exists() {
		n := int(v.Float())
		act.Calories = &n
	}
	if v := a.Get("average_heartrate"); v.Exists() {
		n := int(v.Float())
		act.AvgHeartRate = &n
	}
	return act
}

// Deauthorize revokes the application's access for the token's athlete.
func (c *Client) Deauthorize(ctx context.Context, accessToken string) error {
	form := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth/deauthorize", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.DoJSON(req, "deauthorize", nil)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
