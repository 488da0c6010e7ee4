package cms

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const articlesQuery = `query Articles($pillar: String) {
  articles(where: { pillar: $pillar }, orderBy: publishedAt_DESC) {
    slug title excerpt pillar publishedAt coverImage { url }
  }
}`

const articleBySlugQuery = `query Article($slug: String!) {
  article(where: { slug: $slug }) {
    slug title excerpt pillar publishedAt body coverImage { url }
  }
}`

const recipesQuery = `query Recipes {
  recipes(orderBy: publishedAt_DESC) {
    slug title summary servings prepMinutes cookMinutes image { url }
  }
}`

// Articles lists published guide articles, optionally for one pillar.
func (c *Client) Articles(ctx context.Context, cacheKey, pillar string) (json.RawMessage, error) {
	vars := map[string]interface{}{}
	if pillar != "" {
		vars["pillar"] = strings.ToLower(pillar)
	}
	data, err := c.CachedQuery(ctx, cacheKey, articlesQuery, vars)
	if err != nil {
		return nil, err
	}
	return field(data, "articles", "[]"), nil
}

// Article fetches one article by slug.
func (c *Client) Article(ctx context.Context, cacheKey, slug string) (json.RawMessage, error) {
	data, err := c.CachedQuery(ctx, cacheKey, articleBySlugQuery, map[string]interface{}{"slug": slug})
	if err != nil {
		return nil, err
	}
	article := gjson.GetBytes(data, "article")
	if !article.Exists() || article.Type == gjson.Null {
		return nil, apperrors.NewNotFoundError("article", slug)
	}
	return json.RawMessage(article.Raw), nil
}

// Recipes lists published recipes.
func (c *Client) Recipes(ctx context.Context, cacheKey string) (json.RawMessage, error) {
	data, err := c.CachedQuery(ctx, cacheKey, recipesQuery, nil)
	if err != nil {
		return nil, err
	}
	return field(data, "recipes", "[]"), nil
}

func field(data []byte, path, def string) json.RawMessage {
	v := gjson.GetBytes(data, path)
	if !v.Exists() || v.Type == gjson.Null {
		return json.RawMessage(def)
	}
	return json.RawMessage(v.Raw)
}
