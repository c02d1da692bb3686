// Package ctx provides the request context every storefront handler receives.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler takes a
// single *Context with helpers for binding input and writing the envelope:
//
//	func (h *CartController) AddItem(c *ctx.Context) {
//	    var in AddItemInput
//	    if !c.BindJSON(&in) {
//	        return // 400 already sent
//	    }
//	    if err := h.cart.AddItem(c.Context(), c.UserID(), in.ProductID, in.Quantity); err != nil {
//	        c.Fail(err)
//	        return
//	    }
//	    c.Success(map[string]bool{"success": true})
//	}
//
//	router.Post("/cart/addItem", "cart.addItem", ctx.Wrap(h.AddItem))
package ctx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/bind"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/response"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc so it can be
// passed to any router method.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int // written status code (0 = not written yet)
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Cookie returns the value of a named cookie.
func (c *Context) Cookie(name string) (string, error) {
	cookie, err := c.R.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Identity returns the authenticated caller, or nil for anonymous requests.
func (c *Context) Identity() *auth.Identity {
	id, _ := auth.FromContext(c.R.Context())
	return id
}

// UserID returns the authenticated caller's id, or 0.
func (c *Context) UserID() uint {
	if id := c.Identity(); id != nil {
		return id.UserID
	}
	return 0
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation. On failure it
// sends a 400 and returns false; the handler must return immediately.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	return c.afterBind(errs, err)
}

// BindQuery fills dest from the query string and runs validation, with the
// same contract as BindJSON.
func (c *Context) BindQuery(dest any) bool {
	errs, err := bind.Query(c.R, dest)
	return c.afterBind(errs, err)
}

func (c *Context) afterBind(errs map[string]string, err error) bool {
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if len(errs) > 0 {
		c.status = http.StatusBadRequest
		response.ValidationError(c.W, errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

// SetCookie sets an HttpOnly cookie on the response.
func (c *Context) SetCookie(name, value string, maxAge int, secure bool) {
	http.SetCookie(c.W, &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the named cookie.
func (c *Context) ClearCookie(name string, secure bool) {
	c.SetCookie(name, "", -1, secure)
}

// Success sends a 200 JSON envelope: {"status":200,"data":...}
func (c *Context) Success(data any) {
	c.status = http.StatusOK
	response.Success(c.W, data)
}

// Error sends a JSON error envelope with the given status and message.
func (c *Context) Error(code int, message string) {
	c.status = code
	response.Error(c.W, code, message)
}

// Fail logs err at the boundary and answers with the status its kind maps to.
func (c *Context) Fail(err error) {
	c.status = response.StatusOf(apperr.KindOf(err))
	log := logger.WithCtx(c.Context())
	if c.status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.R.URL.Path, "status", c.status, "error", err)
	} else {
		log.Debug("request rejected", "path", c.R.URL.Path, "status", c.status, "error", err)
	}
	response.Fail(c.W, err)
}

// String writes a plain-text response.
func (c *Context) String(code int, format string, args ...any) {
	c.W.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.W.WriteHeader(code)
	c.status = code
	fmt.Fprintf(c.W, format, args...)
}

// Redirect sends an HTTP redirect response.
func (c *Context) Redirect(code int, url string) {
	c.status = code
	http.Redirect(c.W, c.R, url, code)
}

// WrittenStatus returns the HTTP status code written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
