// Package cms reads published content from the headless CMS GraphQL endpoint.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/higher-endeavors/endeavors/internal/app/metrics"
	"github.com/higher-endeavors/endeavors/internal/cache"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const provider = "cms"

// Client posts GraphQL queries and caches the data section of responses.
type Client struct {
	endpoint string
	secret   string
	http     *httpclient.Client
	cache    cache.Cache
	ttl      time.Duration
	log      *logger.Logger
}

// New builds a client. A nil cache disables caching.
func New(endpoint, secret string, http *httpclient.Client, c cache.Cache, ttl time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault("cms")
	}
	return &Client{endpoint: endpoint, secret: secret, http: http, cache: c, ttl: ttl, log: log}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Query runs query and returns the raw "data" object. GraphQL errors are
// upstream errors.
func (c *Client) Query(ctx context.Context, query string, vars map[string]interface{}) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, apperrors.NewUpstreamError(provider, "query", fmt.Errorf("endpoint not configured"))
	}
	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, c.endpoint, map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return nil, err
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	var raw []byte
	if err := c.http.DoJSON(req, "query", &raw); err != nil {
		return nil, err
	}
	if errs := gjson.GetBytes(raw, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		msgs := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			msgs = append(msgs, e.Get("message").String())
		}
		return nil, apperrors.NewUpstreamError(provider, "query", fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return nil, apperrors.NewUpstreamError(provider, "query", fmt.Errorf("response has no data"))
	}
	return json.RawMessage(data.Raw), nil
}

// CachedQuery is Query behind the TTL cache, keyed by key (the request URL of
// the page asking). Cache failures fall through to the CMS.
func (c *Client) CachedQuery(ctx context.Context, key, query string, vars map[string]interface{}) (json.RawMessage, error) {
	if c.cache != nil {
		v, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.WithContext(ctx).WithError(err).Warn("cms cache read failed")
		}
		metrics.RecordCacheLookup(ok)
		if ok {
			return v, nil
		}
	}

	data, err := c.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.WithContext(ctx).WithError(err).Warn("cms cache write failed")
		}
	}
	return data, nil
}
