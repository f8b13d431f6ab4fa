package session

import (
	"encoding/json"
	"errors"
	"time"

	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/prom"
	"github.com/valyala/fasthttp"
)

const (
	CookieName = "session_id"
	HeaderName = "X-Session-Id"

	apiKeyUserValue    = "billing_api_key"
	sessionIDUserValue = "session_id"
)

// RequireSession rejects requests without a live session with 401 and makes
// the session's API key available through APIKeyFrom.
func (s *Store) RequireSession(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		id := IDFrom(ctx)
		if id == "" {
			unauthorized(ctx, "login required")
			return
		}

		apiKey, err := s.APIKey(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidID) {
				logger.Error("Session lookup failed", "error", err)
			}
			unauthorized(ctx, "session expired, please log in again")
			return
		}

		ctx.SetUserValue(sessionIDUserValue, id)
		SetAPIKey(ctx, apiKey)
		next(ctx)
	}
}

// IDFrom reads the session id from the cookie, falling back to the header.
func IDFrom(ctx *xhttp.RequestCtx) string {
	if v := ctx.Request.Header.Cookie(CookieName); len(v) > 0 {
		return string(v)
	}
	return string(ctx.Request.Header.Peek(HeaderName))
}

// SetAPIKey binds apiKey to the request.
func SetAPIKey(ctx *xhttp.RequestCtx, apiKey string) {
	ctx.SetUserValue(apiKeyUserValue, apiKey)
}

// APIKeyFrom returns the key loaded by RequireSession.
func APIKeyFrom(ctx *xhttp.RequestCtx) string {
	v, _ := ctx.UserValue(apiKeyUserValue).(string)
	return v
}

func SetCookie(ctx *xhttp.RequestCtx, id string, ttl time.Duration, secure bool) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(CookieName)
	c.SetValue(id)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(secure)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetMaxAge(int(ttl.Seconds()))
	ctx.Response.Header.SetCookie(c)
}

func ClearCookie(ctx *xhttp.RequestCtx) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(CookieName)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetExpire(fasthttp.CookieExpireDelete)
	ctx.Response.Header.SetCookie(c)
}

func unauthorized(ctx *xhttp.RequestCtx, notice string) {
	prom.IncSession("rejected")
	b, _ := json.Marshal(map[string]string{"notice": notice, "level": "danger"})
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(xhttp.StatusUnauthorized)
	ctx.Response.SetBodyRaw(b)
}
