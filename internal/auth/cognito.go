package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/crypto"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
)

// ProviderCognito is the auth_provider value of hosted UI sign-ins.
const ProviderCognito = "cognito"

const stateMaxAge = 10 * time.Minute

var stateAAD = []byte("cognito-sign-in")

// Cognito runs the hosted UI authorization code flow with PKCE.
type Cognito struct {
	oauth       *oauth2.Config
	userInfoURL string
	http        *httpclient.Client
	state       *crypto.Sealer
	now         func() time.Time
}

type signInState struct {
	Verifier string `json:"v"`
	Redirect string `json:"r"`
	Issued   int64  `json:"t"`
}

func NewCognito(cfg config.AuthConfig, http *httpclient.Client) (*Cognito, error) {
	sealer, err := crypto.NewSealer([]byte(cfg.SessionSecret), crypto.PurposeOAuthState)
	if err != nil {
		return nil, err
	}
	base := cfg.CognitoDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")

	return &Cognito{
		oauth: &oauth2.Config{
			ClientID:     cfg.CognitoClientID,
			ClientSecret: cfg.CognitoClientSecret,
			RedirectURL:  cfg.CognitoRedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		userInfoURL: base + "/oauth2/userInfo",
		http:        http,
		state:       sealer,
		now:         time.Now,
	}, nil
}

// SignInURL returns the hosted UI URL. The state carries the PKCE verifier
// and the post sign-in redirect, sealed so it cannot be forged.
func (c *Cognito) SignInURL(redirect string) (string, error) {
	verifier := oauth2.GenerateVerifier()
	raw, err := json.Marshal(signInState{
		Verifier: verifier,
		Redirect: SafeRedirect(redirect),
		Issued:   c.now().Unix(),
	})
	if err != nil {
		return "", err
	}
	state, err := c.state.SealString(string(raw), stateAAD)
	if err != nil {
		return "", err
	}
	return c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange validates state, trades code for tokens and reads the user's
// identity. It returns the redirect captured by SignInURL.
func (c *Cognito) Exchange(ctx context.Context, code, state string) (user.Identity, string, error) {
	if code == "" {
		return user.Identity{}, "", apperrors.RequiredError("code")
	}
	st, err := c.openState(state)
	if err != nil {
		return user.Identity{}, "", err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	tok, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		return user.Identity{}, "", apperrors.NewUpstreamError(ProviderCognito, "exchange code", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return user.Identity{}, "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	var raw []byte
	if err := c.http.DoJSON(req, "fetch userinfo", &raw); err != nil {
		return user.Identity{}, "", err
	}

	info := gjson.ParseBytes(raw)
	id := user.Identity{
		Provider: ProviderCognito,
		Subject:  info.Get("sub").String(),
		Email:    user.NormalizeEmail(info.Get("email").String()),
		Name:     info.Get("name").String(),
	}
	if id.Name == "" {
		id.Name = strings.TrimSpace(info.Get("given_name").String() + " " + info.Get("family_name").String())
	}
	if id.Subject == "" || id.Email == "" {
		return user.Identity{}, "", apperrors.NewUpstreamError(ProviderCognito, "fetch userinfo", apperrors.New("userinfo missing sub or email"))
	}
	return id, st.Redirect, nil
}

func (c *Cognito) openState(state string) (signInState, error) {
	var st signInState
	if state == "" {
		return st, apperrors.RequiredError("state")
	}
	raw, err := c.state.OpenString(state, stateAAD)
	if err != nil {
		return st, apperrors.NewValidationError("state", "invalid sign-in state")
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, apperrors.NewValidationError("state", "invalid sign-in state")
	}
	if c.now().Sub(time.Unix(st.Issued, 0)) > stateMaxAge {
		return st, apperrors.NewValidationError("state", "sign-in state expired")
	}
	return st, nil
}
