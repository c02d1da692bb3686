// Package oauth signs users in with the external identity provider: an
// authorization code is exchanged for an access token, which is then used
// to read the user's profile.
package oauth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/humanebio/storefront/pkg/apperr"
	httpc "github.com/humanebio/storefront/pkg/http"
)

// Profile is the identity the provider reports.
type Profile struct {
	OpenID      string `json:"openId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	LoginMethod string `json:"loginMethod"`
}

// Provider turns an authorization code into a profile.
type Provider interface {
	Exchange(ctx context.Context, code, redirectURI string) (*Profile, error)
}

// Client talks to the provider's token and userinfo endpoints.
type Client struct {
	serverURL    string
	clientID     string
	clientSecret string
}

func NewClient(serverURL, clientID, clientSecret string) *Client {
	return &Client{
		serverURL:    strings.TrimRight(serverURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Exchange redeems code and loads the profile. A rejected code is
// Unauthorized; an unreachable or misbehaving provider is Internal.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (*Profile, error) {
	const op = "oauth.exchange"
	if code == "" {
		return nil, apperr.New(apperr.BadRequest, op, "Missing authorization code")
	}

	resp, err := httpc.Post(c.serverURL + "/oauth/token").
		WithContext(ctx).
		Timeout(10 * time.Second).
		Body(url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"redirect_uri":  {redirectURI},
			"client_id":     {c.clientID},
			"client_secret": {c.clientSecret},
		}).
		Send()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, apperr.Wrapf(apperr.Unauthorized, op, resp.Throw(), "Login failed")
	}
	if err := resp.Throw(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}

	var tok tokenResponse
	if err := resp.JSON(&tok); err != nil || tok.AccessToken == "" {
		return nil, apperr.New(apperr.Internal, op, "Identity provider returned no access token")
	}

	resp, err = httpc.Get(c.serverURL + "/oauth/userinfo").
		WithContext(ctx).
		Timeout(10 * time.Second).
		Retry(2, 200*time.Millisecond).
		Bearer(tok.AccessToken).
		Send()
	if err == nil {
		err = resp.Throw()
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}

	var p Profile
	if err := resp.JSON(&p); err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	if p.OpenID == "" {
		return nil, apperr.New(apperr.Unauthorized, op, "Identity provider returned no user id")
	}
	return &p, nil
}
