package httpapi

import (
	"fmt"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"

	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// newPageHandler forwards page requests to the server-side renderer, or
// answers 404 when none is configured.
func newPageHandler(upstream string, log *logger.Logger) (http.Handler, error) {
	if upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httputil.Error(w, http.StatusNotFound, "Not found")
		}), nil
	}
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("frontend upstream %q: invalid URL", upstream)
	}

	proxy := stdhttputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Header.Set("X-Forwarded-Host", r.Host)
		r.Host = target.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("frontend upstream failed")
		httputil.Error(w, http.StatusBadGateway, "Bad gateway")
	}
	return proxy, nil
}
