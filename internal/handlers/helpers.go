package handlers

import (
	"encoding/json"

	"github.com/nimasrn/billing-console/internal/model"
	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
)

const (
	NoticeInvalidBody   = "Dados inválidos. Verifique o formulário e tente novamente."
	NoticeValueRequired = "Informe o valor."
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

// rejectBody answers an undecodable request body. The decoder error is
// logged, never shown.
func rejectBody(ctx *xhttp.RequestCtx, err error) {
	logger.Debug("Request body rejected", "path", string(ctx.Path()), "error", err)
	writeNotice(ctx, xhttp.StatusBadRequest, model.LevelDanger, NoticeInvalidBody)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

// writeNotice answers with a bare danger or success notice.
func writeNotice(ctx *xhttp.RequestCtx, status int, level, notice string) {
	writeJSON(ctx, status, model.Outcome{OK: level == model.LevelSuccess, Level: level, Notice: notice, Status: status})
}

func writeOutcome(ctx *xhttp.RequestCtx, out model.Outcome) {
	status := xhttp.StatusOK
	if !out.OK {
		status = xhttp.StatusBadGateway
	}
	writeJSON(ctx, status, out)
}

func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}
