package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/nimasrn/billing-console/internal/session"
	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/prom"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

// Middleware makes a handler safe to retry when the client sends an
// Idempotency-Key: a repeated key gets the first 200 answer back instead of a
// second upstream call. Failed answers are not stored. Requests without the
// header pass through.
func (s *Service) Middleware(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		raw := string(ctx.Request.Header.Peek(HeaderKey))
		if raw == "" {
			next(ctx)
			return
		}
		key := scopedKey(session.IDFrom(ctx), string(ctx.Method()), string(ctx.Path()), raw)

		lease, replay, err := s.Acquire(ctx, key)
		switch {
		case replay != nil:
			prom.IncIdempotency("replayed")
			ctx.Response.Header.Set(HeaderReplayed, "true")
			ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
			ctx.Response.SetStatusCode(replay.Status)
			ctx.Response.SetBody(replay.Body)
			return
		case errors.Is(err, ErrInFlight):
			prom.IncIdempotency("conflict")
			reject(ctx, xhttp.StatusConflict, "request already in progress")
			return
		case err != nil:
			prom.IncIdempotency("unavailable")
			reject(ctx, xhttp.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}

		next(ctx)

		if ctx.Response.StatusCode() != xhttp.StatusOK {
			prom.IncIdempotency("released")
			_ = lease.Release(ctx)
			return
		}
		res := Response{Status: ctx.Response.StatusCode(), Body: append([]byte(nil), ctx.Response.Body()...)}
		if err := lease.Complete(ctx, res); err != nil {
			logger.Warn("Response not stored for replay", "error", err)
			return
		}
		prom.IncIdempotency("stored")
	}
}

// scopedKey binds the client key to the session and route, so two operators
// or two actions never share one.
func scopedKey(sessionID, method, path, key string) string {
	sum := sha256.Sum256([]byte(sessionID + "\x00" + method + "\x00" + path + "\x00" + key))
	return hex.EncodeToString(sum[:])
}

func reject(ctx *xhttp.RequestCtx, status int, notice string) {
	b, _ := json.Marshal(map[string]string{"notice": notice, "level": "danger"})
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}
