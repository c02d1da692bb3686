package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/ctx"
	"github.com/humanebio/storefront/pkg/logger"
)

const sessionMaxAge = 365 * 24 * 60 * 60

type AuthController struct {
	auth       *services.AuthService
	cookieName string
	appURL     string
	secure     bool
}

func NewAuthController(auth *services.AuthService, cookieName, appURL string, secure bool) *AuthController {
	return &AuthController{auth: auth, cookieName: cookieName, appURL: strings.TrimRight(appURL, "/"), secure: secure}
}

// Me returns the signed-in user, or null.
func (h *AuthController) Me(c *ctx.Context) {
	user, err := h.auth.Me(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (h *AuthController) Logout(c *ctx.Context) {
	c.ClearCookie(h.cookieName, h.secure)
	c.Success(map[string]bool{"success": true})
}

// Callback completes the OAuth login: it redeems ?code, sets the session
// cookie and sends the browser home.
func (h *AuthController) Callback(c *ctx.Context) {
	code := c.Query("code")
	token, user, err := h.auth.Login(c.Context(), code, h.appURL+"/api/oauth/callback")
	if err != nil {
		c.Fail(err)
		return
	}
	c.SetCookie(h.cookieName, token, sessionMaxAge, h.secure)
	logger.WithCtx(c.Context()).Debug("session issued", "user_id", user.ID)
	c.Redirect(http.StatusFound, h.returnTo(c.Query("state")))
}

// returnTo accepts only same-site relative paths.
func (h *AuthController) returnTo(state string) string {
	u, err := url.Parse(state)
	if state == "" || err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(state, "//") {
		return "/"
	}
	return u.String()
}
