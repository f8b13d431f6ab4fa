package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/nimasrn/billing-console/internal/model"
	"github.com/nimasrn/billing-console/internal/session"
	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/prom"
)

const (
	NoticeLoggedIn     = "Login realizado com sucesso!"
	NoticeLoggedOut    = "Sessão encerrada."
	NoticeTokenMissing = "Informe a chave da API."
	NoticeUnavailable  = "Serviço indisponível. Tente novamente."
)

type SessionStore interface {
	Create(ctx context.Context, apiKey string) (string, error)
	Destroy(ctx context.Context, id string) error
	TTL() time.Duration
}

type SessionHandler struct {
	store        SessionStore
	secureCookie bool
}

func RegisterSessionRoutes(e *router.Group, h *SessionHandler) {
	e.POST("/session", h.Login)
	e.DELETE("/session", h.Logout)
}

func NewSessionHandler(store SessionStore, secureCookie bool) *SessionHandler {
	return &SessionHandler{store: store, secureCookie: secureCookie}
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	model.Outcome
	SessionID string `json:"session_id"`
}

// Login binds the operator's API key to a new session. The key is not
// checked against the billing API here.
func (h *SessionHandler) Login(ctx *xhttp.RequestCtx) {
	var req loginRequest
	if err := readJSON(ctx, &req); err != nil {
		rejectBody(ctx, err)
		return
	}

	id, err := h.store.Create(ctx, req.Token)
	if err != nil {
		if errors.Is(err, session.ErrEmptyAPIKey) {
			writeNotice(ctx, xhttp.StatusBadRequest, model.LevelDanger, NoticeTokenMissing)
			return
		}
		logger.Error("Login failed", "error", err)
		writeNotice(ctx, xhttp.StatusInternalServerError, model.LevelDanger, NoticeUnavailable)
		return
	}

	prom.IncSession("login")
	session.SetCookie(ctx, id, h.store.TTL(), h.secureCookie)
	writeJSON(ctx, xhttp.StatusOK, loginResponse{
		Outcome:   model.Succeeded(NoticeLoggedIn, xhttp.StatusOK, nil),
		SessionID: id,
	})
}

func (h *SessionHandler) Logout(ctx *xhttp.RequestCtx) {
	if id := session.IDFrom(ctx); id != "" {
		if err := h.store.Destroy(ctx, id); err != nil {
			logger.Error("Logout failed", "error", err)
		}
	}
	prom.IncSession("logout")
	session.ClearCookie(ctx)
	writeNotice(ctx, xhttp.StatusOK, model.LevelSuccess, NoticeLoggedOut)
}
