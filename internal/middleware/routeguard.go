package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Headers injected for matched routes.
const (
	HeaderEnvironment     = "X-Environment"
	HeaderClientIP        = "X-Client-Ip"
	HeaderClientUserAgent = "X-Client-User-Agent"
)

// RouteGuard gates page routes on the presence of the session cookie. It
// never validates the session; handlers re-check it.
type RouteGuard struct {
	public         []pathMatcher
	protected      []pathMatcher
	cookieName     string
	environment    string
	accessRedirect string
	log            *logger.Logger
}

type pathMatcher struct {
	path   string
	prefix bool
}

func (m pathMatcher) match(p string) bool {
	if !m.prefix {
		return p == m.path
	}
	return strings.HasPrefix(p, m.path) || p == strings.TrimSuffix(m.path, "/")
}

// NewRouteGuard builds the guard. Public entries match exactly, or by prefix
// when they end in "/" or "*". Protected entries match by prefix.
func NewRouteGuard(routes *config.RoutesConfig, cookieName, environment string, log *logger.Logger) *RouteGuard {
	if log == nil {
		log = logger.NewDefault("route-guard")
	}
	g := &RouteGuard{
		cookieName:     cookieName,
		environment:    environment,
		accessRedirect: routes.AccessRedirect,
		log:            log,
	}
	if g.accessRedirect == "" {
		g.accessRedirect = config.DefaultRoutesConfig().AccessRedirect
	}
	for _, p := range routes.Public {
		switch {
		case strings.HasSuffix(p, "*"):
			g.public = append(g.public, pathMatcher{path: strings.TrimSuffix(p, "*"), prefix: true})
		case p != "/" && strings.HasSuffix(p, "/"):
			g.public = append(g.public, pathMatcher{path: p, prefix: true})
		default:
			g.public = append(g.public, pathMatcher{path: p})
		}
	}
	for _, p := range routes.Protected {
		g.protected = append(g.protected, pathMatcher{path: p, prefix: true})
	}
	return g
}

// Handler applies the guard.
func (g *RouteGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case matchAny(g.public, path):
			next.ServeHTTP(w, g.annotate(w, r))
		case matchAny(g.protected, path):
			if !g.hasSessionCookie(r) {
				g.log.WithContext(r.Context()).WithField("path", path).Debug("no session cookie; redirecting")
				http.Redirect(w, r, g.redirectTarget(path), http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, g.annotate(w, r))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// annotate injects the request id and client details for downstream
// handlers and echoes the request id.
func (g *RouteGuard) annotate(w http.ResponseWriter, r *http.Request) *http.Request {
	id := requestID(r)
	r = r.WithContext(logger.WithRequestID(r.Context(), id))
	r.Header.Set(HeaderRequestID, id)
	r.Header.Set(HeaderEnvironment, g.environment)
	r.Header.Set(HeaderClientIP, httputil.ClientIP(r))
	r.Header.Set(HeaderClientUserAgent, r.UserAgent())
	w.Header().Set(HeaderRequestID, id)
	return r
}

// hasSessionCookie accepts the cookie itself or the first chunk of a
// chunked session cookie.
func (g *RouteGuard) hasSessionCookie(r *http.Request) bool {
	for _, name := range []string{g.cookieName, g.cookieName + ".0"} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}

// redirectTarget keeps the original path readable: slashes stay unescaped.
func (g *RouteGuard) redirectTarget(path string) string {
	escaped := (&url.URL{Path: path}).EscapedPath()
	escaped = strings.NewReplacer("?", "%3F", "&", "%26", "#", "%23", "+", "%2B").Replace(escaped)
	return g.accessRedirect + "?redirect=" + escaped
}

func matchAny(ms []pathMatcher, p string) bool {
	for _, m := range ms {
		if m.match(p) {
			return true
		}
	}
	return false
}
