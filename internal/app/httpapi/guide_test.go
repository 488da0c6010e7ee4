package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higher-endeavors/endeavors/internal/cache"
	"github.com/higher-endeavors/endeavors/internal/integrations/cms"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func TestGuideCacheKey(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params []string
		want   string
	}{
		{"bare", "/api/guide/recipes", nil, "/api/guide/recipes"},
		{"empty value dropped", "/api/guide/articles", []string{"pillar", ""}, "/api/guide/articles"},
		{"pillar kept", "/api/guide/articles", []string{"pillar", "fitness"}, "/api/guide/articles?pillar=fitness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guideCacheKey(tt.path, tt.params...))
		})
	}
}

func TestGuide_UnusedQueryParamsShareCacheEntry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fitness", body.Variables["pillar"])
		fmt.Fprint(w, `{"data":{"articles":[{"slug":"squat-depth"}]}}`)
	}))
	t.Cleanup(srv.Close)

	log := logger.Discard()
	hc := httpclient.New(httpclient.Config{Provider: "cms", Logger: log})
	client := cms.New(srv.URL, "secret", hc, cache.NewMemory(), time.Minute, log)
	env := newTestEnvWith(t, func(d *Deps) { d.CMS = client })

	for _, path := range []string{
		"/api/guide/articles?pillar=Fitness",
		"/api/guide/articles?pillar=fitness&utm_source=a",
		"/api/guide/articles?utm_source=b&pillar=fitness&cb=123",
	} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `[{"slug":"squat-depth"}]`, rec.Body.String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
