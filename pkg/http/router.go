package xhttp

import (
	"encoding/json"

	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a router that redirects fixed paths and answers
// unknown routes and methods with a JSON notice.
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	writeNotice(ctx, StatusNotFound, StatusText(StatusNotFound))
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	writeNotice(ctx, StatusMethodNotAllowed, StatusText(StatusMethodNotAllowed))
}

// writeNotice answers in the console's {"notice","level"} shape.
func writeNotice(ctx *RequestCtx, status int, notice string) {
	b, _ := json.Marshal(map[string]string{"notice": notice, "level": "danger"})
	ctx.Response.Header.SetContentType("application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}
