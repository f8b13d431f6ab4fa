package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/nimasrn/billing-console/internal/gateways"
	"github.com/nimasrn/billing-console/internal/model"
	"github.com/nimasrn/billing-console/internal/session"
	xhttp "github.com/nimasrn/billing-console/pkg/http"
)

type ConsoleService interface {
	Dashboard(ctx context.Context, apiKey string) model.DashboardView
	CustomerDetail(ctx context.Context, apiKey, customerID string) (model.CustomerView, error)
	UpdateSubscriptionValue(ctx context.Context, apiKey string, p model.SubscriptionValueUpdate) (model.Outcome, error)
	UpdateSubscriptionDueDate(ctx context.Context, apiKey string, p model.DueDateUpdate) (model.Outcome, error)
	UpdatePaymentDueDate(ctx context.Context, apiKey string, p model.DueDateUpdate) (model.Outcome, error)
	SendPaymentReminder(ctx context.Context, apiKey string, p model.PaymentReminder) (model.Outcome, error)
	DebitNextCharge(ctx context.Context, apiKey, subscriptionID string) (model.Outcome, error)
	GatewayStats() gateway.UpstreamStats
}

type ConsoleHandler struct {
	svc ConsoleService
}

// RegisterConsoleRoutes mounts the operator routes. Every route goes through
// auth, which must load the session's API key. Actions that create charges
// also go through idem when it is set.
func RegisterConsoleRoutes(e *router.Group, h *ConsoleHandler, auth, idem xhttp.MiddlewareFunc) {
	charge := func(next xhttp.RequestHandler) xhttp.RequestHandler {
		if idem == nil {
			return auth(next)
		}
		return auth(idem(next))
	}
	e.GET("/dashboard", auth(h.Dashboard))
	e.GET("/customers/{id}", auth(h.CustomerDetail))
	e.PUT("/subscriptions/{id}/value", auth(h.UpdateSubscriptionValue))
	e.PUT("/subscriptions/{id}/due-date", auth(h.UpdateSubscriptionDueDate))
	e.POST("/subscriptions/{id}/debit", charge(h.DebitNextCharge))
	e.PUT("/payments/{id}/due-date", auth(h.UpdatePaymentDueDate))
	e.POST("/reminders", charge(h.SendPaymentReminder))
	e.GET("/gateway/stats", auth(h.GatewayStats))
}

func NewConsoleHandler(svc ConsoleService) *ConsoleHandler {
	return &ConsoleHandler{svc: svc}
}

type valueUpdateRequest struct {
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
}

type dueDateRequest struct {
	DueDate string `json:"dueDate"`
}

type reminderRequest struct {
	Customer string   `json:"customer"`
	DueDate  string   `json:"dueDate"`
	Value    *float64 `json:"value"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ConsoleHandler) Dashboard(ctx *xhttp.RequestCtx) {
	view := h.svc.Dashboard(ctx, session.APIKeyFrom(ctx))
	writeJSON(ctx, xhttp.StatusOK, view)
}

func (h *ConsoleHandler) CustomerDetail(ctx *xhttp.RequestCtx) {
	view, err := h.svc.CustomerDetail(ctx, session.APIKeyFrom(ctx), param(ctx, "id"))
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, view)
}

func (h *ConsoleHandler) UpdateSubscriptionValue(ctx *xhttp.RequestCtx) {
	var req valueUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		rejectBody(ctx, err)
		return
	}
	if req.Value == nil {
		writeNotice(ctx, xhttp.StatusBadRequest, model.LevelDanger, NoticeValueRequired)
		return
	}
	out, err := h.svc.UpdateSubscriptionValue(ctx, session.APIKeyFrom(ctx), model.SubscriptionValueUpdate{
		SubscriptionID: param(ctx, "id"),
		Value:          *req.Value,
		Date:           req.Date,
	})
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeOutcome(ctx, out)
}

func (h *ConsoleHandler) UpdateSubscriptionDueDate(ctx *xhttp.RequestCtx) {
	var req dueDateRequest
	if err := readJSON(ctx, &req); err != nil {
		rejectBody(ctx, err)
		return
	}
	out, err := h.svc.UpdateSubscriptionDueDate(ctx, session.APIKeyFrom(ctx), model.DueDateUpdate{
		ID:      param(ctx, "id"),
		DueDate: req.DueDate,
	})
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeOutcome(ctx, out)
}

func (h *ConsoleHandler) UpdatePaymentDueDate(ctx *xhttp.RequestCtx) {
	var req dueDateRequest
	if err := readJSON(ctx, &req); err != nil {
		rejectBody(ctx, err)
		return
	}
	out, err := h.svc.UpdatePaymentDueDate(ctx, session.APIKeyFrom(ctx), model.DueDateUpdate{
		ID:      param(ctx, "id"),
		DueDate: req.DueDate,
	})
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeOutcome(ctx, out)
}

func (h *ConsoleHandler) SendPaymentReminder(ctx *xhttp.RequestCtx) {
	var req reminderRequest
	if err := readJSON(ctx, &req); err != nil {
		rejectBody(ctx, err)
		return
	}
	if req.Value == nil {
		writeNotice(ctx, xhttp.StatusBadRequest, model.LevelDanger, NoticeValueRequired)
		return
	}
	out, err := h.svc.SendPaymentReminder(ctx, session.APIKeyFrom(ctx), model.PaymentReminder{
		CustomerID: req.Customer,
		DueDate:    req.DueDate,
		Value:      *req.Value,
	})
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeOutcome(ctx, out)
}

func (h *ConsoleHandler) DebitNextCharge(ctx *xhttp.RequestCtx) {
	out, err := h.svc.DebitNextCharge(ctx, session.APIKeyFrom(ctx), param(ctx, "id"))
	if err != nil {
		writeValidationError(ctx, err)
		return
	}
	writeOutcome(ctx, out)
}

func (h *ConsoleHandler) GatewayStats(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, h.svc.GatewayStats())
}

func writeValidationError(ctx *xhttp.RequestCtx, err error) {
	if errors.Is(err, model.ErrValidation) {
		writeNotice(ctx, xhttp.StatusBadRequest, model.LevelDanger, err.Error())
		return
	}
	writeNotice(ctx, xhttp.StatusInternalServerError, model.LevelDanger, NoticeUnavailable)
}
