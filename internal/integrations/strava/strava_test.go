package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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
	hc := httpclient.New(httpclient.Config{Provider: "strava", Logger: logger.Discard()})
	c := New(config.StravaConfig{ClientID: "1", ClientSecret: "s"}, hc, srv.URL)
	return c.WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL + "/oauth/token", AuthStyle: oauth2.AuthStyleInParams})
}

func TestExchange_ReadsAthleteID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token_type":"Bearer","access_token":"at","refresh_token":"rt","expires_in":21600,"athlete":{"id":987654}}`)
	}))

	g, err := c.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "987654", g.AthleteID)
	assert.Equal(t, "rt", g.Token.RefreshToken)
}

func TestActivities_FollowsPages(t *testing.T) {
	var pages []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("after"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			items := make([]string, pageSize)
			for i := range items {
				items[i] = fmt.Sprintf(`{"id":%d,"name":"a","sport_type":"Run","start_date":"2023-11-15T06:00:00Z","moving_time":60}`, i+1)
			}
			fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
			return
		}
		fmt.Fprint(w, `[{"id":9999,"name":"Last","type":"Ride","start_date":"2023-11-16T06:00:00Z","moving_time":3600,"distance":20000,"average_heartrate":141.6}]`)
	}))

	acts, err := c.Activities(context.Background(), "at", time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, acts, pageSize+1)

	last := acts[len(acts)-1]
	assert.Equal(t, "9999", last.ExternalID)
	assert.Equal(t, "ride", last.Type)
	require.NotNil(t, last.AvgHeartRate)
	assert.Equal(t, 141, *last.AvgHeartRate)
}
