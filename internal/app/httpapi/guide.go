package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
)

func (h *handler) guideArticles(w http.ResponseWriter, r *http.Request) {
	pillar := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("pillar")))
	h.guide(w, r, func() (json.RawMessage, error) {
		return h.CMS.Articles(r.Context(), guideCacheKey(r.URL.Path, "pillar", pillar), pillar)
	})
}

func (h *handler) guideArticle(w http.ResponseWriter, r *http.Request) {
	h.guide(w, r, func() (json.RawMessage, error) {
		return h.CMS.Article(r.Context(), guideCacheKey(r.URL.Path), mux.Vars(r)["slug"])
	})
}

func (h *handler) guideRecipes(w http.ResponseWriter, r *http.Request) {
	h.guide(w, r, func() (json.RawMessage, error) {
		return h.CMS.Recipes(r.Context(), guideCacheKey(r.URL.Path))
	})
}

// guide serves a CMS read-through response. Responses are cached under the
// path plus the query parameters the route uses, so unrelated query strings
// share one entry.
func (h *handler) guide(w http.ResponseWriter, r *http.Request, fetch func() (json.RawMessage, error)) {
	if h.CMS == nil || !h.CMS.Enabled() {
		h.writeError(w, r, apperrors.NewNotFoundError("guide", ""))
		return
	}
	data, err := fetch()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

// guideCacheKey builds a cache key from path and name/value pairs. Empty
// values are left out.
func guideCacheKey(path string, params ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(params); i += 2 {
		if params[i+1] != "" {
			q.Set(params[i], params[i+1])
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
