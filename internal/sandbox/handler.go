package sandbox

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const AccessTokenHeader = "access_token"

type upstreamError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func errorBody(code, description string) gin.H {
	return gin.H{"errors": []upstreamError{{Code: code, Description: description}}}
}

// Handler serves the subset of the billing API the console talks to.
type Handler struct {
	store  *Store
	apiKey string
	log    zerolog.Logger
}

// NewHandler creates a handler. An empty apiKey accepts any non-empty token.
func NewHandler(store *Store, apiKey string, log zerolog.Logger) *Handler {
	return &Handler{store: store, apiKey: apiKey, log: log}
}

func (h *Handler) requireToken(c *gin.Context) {
	token := c.GetHeader(AccessTokenHeader)
	if token == "" || (h.apiKey != "" && token != h.apiKey) {
		h.log.Warn().Str("path", c.Request.URL.Path).Msg("rejected access token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid_access_token", "A chave de API fornecida é inválida"))
		return
	}
	c.Next()
}

func (h *Handler) ListSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, newList(h.store.Subscriptions()))
}

func (h *Handler) ListCustomers(c *gin.Context) {
	c.JSON(http.StatusOK, newList(h.store.Customers()))
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id := c.Param("id")
	customer, failing, err := h.store.Customer(id)
	if failing {
		h.log.Warn().Str("customer", id).Msg("injected lookup failure")
		c.JSON(http.StatusInternalServerError, errorBody("internal_error", "Falha simulada"))
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) ListPayments(c *gin.Context) {
	c.JSON(http.StatusOK, newList(h.store.Payments(c.Query("customer"))))
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	var req struct {
		Value       *float64 `json:"value"`
		Date        string   `json:"date"`
		DueDate     string   `json:"dueDate"`
		NextDueDate string   `json:"nextDueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	if req.DueDate == "" {
		req.DueDate = req.NextDueDate
	}
	sub, err := h.store.UpdateSubscription(c.Param("id"), SubscriptionUpdate{Value: req.Value, DueDate: req.DueDate})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info().Str("subscription", sub.ID).Float64("value", sub.Value).Str("next_due_date", sub.NextDueDate).Msg("subscription updated")
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	var req struct {
		DueDate string `json:"dueDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	payment, err := h.store.UpdatePaymentDueDate(c.Param("id"), req.DueDate)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req struct {
		Customer    string  `json:"customer" binding:"required"`
		BillingType string  `json:"billingType" binding:"required"`
		DueDate     string  `json:"dueDate" binding:"required"`
		Value       float64 `json:"value"`
		Description string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	payment, err := h.store.CreatePayment(Payment{
		Customer:    req.Customer,
		BillingType: req.BillingType,
		DueDate:     req.DueDate,
		Value:       req.Value,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info().Str("payment", payment.ID).Str("customer", payment.Customer).Msg("payment created")
	c.JSON(http.StatusOK, payment)
}

// Debit answers 200 with an empty body, like the real endpoint.
func (h *Handler) Debit(c *gin.Context) {
	if err := h.store.Debit(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SetFailure toggles injected lookup failures for a customer.
func (h *Handler) SetFailure(c *gin.Context) {
	var req struct {
		Customer string `json:"customer" binding:"required"`
		Fail     bool   `json:"fail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	h.store.FailCustomer(req.Customer, req.Fail)
	h.log.Info().Str("customer", req.Customer).Bool("fail", req.Fail).Msg("updated failure injection")
	c.JSON(http.StatusOK, gin.H{"customer": req.Customer, "fail": req.Fail})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("not_found", "Recurso não encontrado"))
	case errors.Is(err, ErrInvalidValue), errors.Is(err, ErrInvalidDate):
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorBody("internal_error", err.Error()))
	}
}

// SetupRouter mounts the fake API under /api/v3 and the control endpoints
// under /sandbox.
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v3 := router.Group("/api/v3", handler.requireToken)
	{
		v3.GET("/subscriptions", handler.ListSubscriptions)
		v3.PUT("/subscriptions/:id", handler.UpdateSubscription)
		v3.POST("/subscriptions/:id/debit", handler.Debit)
		v3.GET("/customers", handler.ListCustomers)
		v3.GET("/customers/:id", handler.GetCustomer)
		v3.GET("/payments", handler.ListPayments)
		v3.POST("/payments", handler.CreatePayment)
		v3.PUT("/payments/:id", handler.UpdatePayment)
	}

	control := router.Group("/sandbox")
	{
		control.PUT("/failures", handler.SetFailure)
		control.GET("/health", handler.HealthCheck)
	}

	return router
}
