package garmin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := httpclient.New(httpclient.Config{Provider: "garmin", Logger: logger.Discard()})
	c := New(config.GarminConfig{ClientID: "cid", ClientSecret: "sec", RedirectURI: "https://app/cb"}, hc, srv.URL)
	return c.WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams})
}

func TestAuthCodeURL_CarriesChallenge(t *testing.T) {
	c := New(config.GarminConfig{ClientID: "cid", RedirectURI: "https://app/cb"}, httpclient.New(httpclient.Config{Logger: logger.Discard()}), "")
	verifier := oauth2.GenerateVerifier()

	u, err := url.Parse(c.AuthCodeURL("state-1", verifier))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
}

func TestExchange_SendsVerifier(t *testing.T) {
	var gotVerifier string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotVerifier = r.PostForm.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/wellness-api/rest/user/id", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"userId":"g-123"}`)
	})
	c := newTestClient(t, mux)

	tok, err := c.Exchange(context.Background(), "code", "verifier-abc")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "verifier-abc", gotVerifier)

	id, err := c.UserID(context.Background(), tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "g-123", id)
}

func TestParseActivityPush(t *testing.T) {
	body := []byte(`{"activities":[
		{"userId":"g-1","summaryId":"s-1","activityType":"RUNNING","activityName":"Morning Run",
		 "startTimeInSeconds":1700000000,"durationInSeconds":1800,"distanceInMeters":5000.5,
		 "activeKilocalories":350,"averageHeartRateInBeatsPerMinute":150},
		{"userId":"g-1","activityType":"WALKING"}
	]}`)

	got := ParseActivityPush(body)
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, "g-1", a.GarminUserID)
	assert.Equal(t, "s-1", a.Activity.ExternalID)
	assert.Equal(t, "running", a.Activity.Type)
	assert.Equal(t, 1800, a.Activity.DurationSeconds)
	require.NotNil(t, a.Activity.DistanceMeters)
	assert.InDelta(t, 5000.5, *a.Activity.DistanceMeters, 1e-9)
	require.NotNil(t, a.Activity.Calories)
	assert.Equal(t, 350, *a.Activity.Calories)
}
