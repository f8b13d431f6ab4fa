package gateway

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/nimasrn/billing-console/pkg/prom"
	"github.com/valyala/fasthttp"
)

const (
	OpListSubscriptions         = "list_subscriptions"
	OpListCustomers             = "list_customers"
	OpGetCustomer               = "get_customer"
	OpListCustomerPayments      = "list_customer_payments"
	OpUpdateSubscriptionValue   = "update_subscription_value"
	OpUpdateSubscriptionDueDate = "update_subscription_due_date"
	OpUpdatePaymentDueDate      = "update_payment_due_date"
	OpSendPaymentReminder       = "send_payment_reminder"
	OpDebitNextCharge           = "debit_next_charge"
)

const (
	ReminderBillingType = "BOLETO"
	ReminderDescription = "Mensalidade em atraso"
)

// OperationResult is returned by every operation, failed or not. Payload is
// an empty map unless the call succeeded; Status is 0 when no response was
// received.
type OperationResult struct {
	Payload map[string]any `json:"payload"`
	Status  int            `json:"status"`
}

func (r OperationResult) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

type valueUpdateRequest struct {
	Value float64 `json:"value"`
	Date  string  `json:"date,omitempty"`
}

type dueDateRequest struct {
	DueDate string `json:"dueDate"`
}

type reminderRequest struct {
	Customer    string  `json:"customer"`
	DueDate     string  `json:"dueDate"`
	Value       float64 `json:"value"`
	BillingType string  `json:"billingType"`
	Description string  `json:"description"`
}

// ListSubscriptions fetches subscriptions and attaches customer_name to each
// entry of data. Customer lookup failures only degrade the name.
func (c *Client) ListSubscriptions(ctx context.Context, apiKey string) (OperationResult, error) {
	res, err := c.call(ctx, OpListSubscriptions, fasthttp.MethodGet, "/subscriptions", apiKey, nil, nil)
	if err != nil {
		return res, err
	}
	c.enrich(ctx, apiKey, res.Payload)
	return res, nil
}

func (c *Client) ListCustomers(ctx context.Context, apiKey string) (OperationResult, error) {
	return c.call(ctx, OpListCustomers, fasthttp.MethodGet, "/customers", apiKey, nil, nil)
}

func (c *Client) GetCustomer(ctx context.Context, apiKey, customerID string) (OperationResult, error) {
	path, err := resourcePath(OpGetCustomer, "/customers/", customerID, "")
	if err != nil {
		return failed(0), err
	}
	return c.call(ctx, OpGetCustomer, fasthttp.MethodGet, path, apiKey, nil, nil)
}

func (c *Client) ListCustomerPayments(ctx context.Context, apiKey, customerID string) (OperationResult, error) {
	if strings.TrimSpace(customerID) == "" {
		return failed(0), invalid(OpListCustomerPayments, "customer id is required")
	}
	query := map[string]string{"customer": customerID}
	return c.call(ctx, OpListCustomerPayments, fasthttp.MethodGet, "/payments", apiKey, nil, query)
}

// UpdateSubscriptionValue sets an absolute value. date is forwarded only when
// non-empty and the deployment supports it.
func (c *Client) UpdateSubscriptionValue(ctx context.Context, apiKey, subscriptionID string, value float64, date string) (OperationResult, error) {
	path, err := resourcePath(OpUpdateSubscriptionValue, "/subscriptions/", subscriptionID, "")
	if err != nil {
		return failed(0), err
	}
	body := valueUpdateRequest{Value: value}
	if date != "" && c.config.Capabilities.IncludeDateOnValueUpdate {
		body.Date = date
	}
	return c.call(ctx, OpUpdateSubscriptionValue, fasthttp.MethodPut, path, apiKey, body, nil)
}

func (c *Client) UpdateSubscriptionDueDate(ctx context.Context, apiKey, subscriptionID, dueDate string) (OperationResult, error) {
	path, err := resourcePath(OpUpdateSubscriptionDueDate, "/subscriptions/", subscriptionID, "")
	if err != nil {
		return failed(0), err
	}
	return c.call(ctx, OpUpdateSubscriptionDueDate, fasthttp.MethodPut, path, apiKey, dueDateRequest{DueDate: dueDate}, nil)
}

func (c *Client) UpdatePaymentDueDate(ctx context.Context, apiKey, paymentID, dueDate string) (OperationResult, error) {
	path, err := resourcePath(OpUpdatePaymentDueDate, "/payments/", paymentID, "")
	if err != nil {
		return failed(0), err
	}
	return c.call(ctx, OpUpdatePaymentDueDate, fasthttp.MethodPut, path, apiKey, dueDateRequest{DueDate: dueDate}, nil)
}

// SendPaymentReminder issues a new boleto charge for the customer. Billing
// type and description are fixed.
func (c *Client) SendPaymentReminder(ctx context.Context, apiKey, customerID, dueDate string, value float64) (OperationResult, error) {
	if strings.TrimSpace(customerID) == "" {
		return failed(0), invalid(OpSendPaymentReminder, "customer id is required")
	}
	body := reminderRequest{
		Customer:    customerID,
		DueDate:     dueDate,
		Value:       value,
		BillingType: ReminderBillingType,
		Description: ReminderDescription,
	}
	return c.call(ctx, OpSendPaymentReminder, fasthttp.MethodPost, "/payments", apiKey, body, nil)
}

// DebitNextCharge asks the upstream to charge the subscription now. An empty
// 2xx answer is a success with an empty payload.
func (c *Client) DebitNextCharge(ctx context.Context, apiKey, subscriptionID string) (OperationResult, error) {
	path, err := resourcePath(OpDebitNextCharge, "/subscriptions/", subscriptionID, "/debit")
	if err != nil {
		return failed(0), err
	}
	return c.call(ctx, OpDebitNextCharge, fasthttp.MethodPost, path, apiKey, nil, nil)
}

func (c *Client) call(ctx context.Context, op, method, path, apiKey string, body any, query map[string]string) (OperationResult, error) {
	start := time.Now()
	raw, err := c.Send(ctx, method, path, apiKey, body, query)
	latency := time.Since(start)

	if err != nil {
		var gerr *Error
		if !errors.As(err, &gerr) {
			gerr = &Error{Kind: ErrTransport, Err: err}
		}
		gerr.Op = op
		logFailure(gerr)
		c.record(op, gerr, latency)
		return failed(0), gerr
	}

	payload, err := Normalize(op, raw)
	c.record(op, err, latency)
	if err != nil {
		return failed(raw.Status), err
	}
	return OperationResult{Payload: payload, Status: raw.Status}, nil
}

func (c *Client) record(op string, err error, latency time.Duration) {
	outcome := "success"
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			outcome = kindName(gerr.Kind)
		}
	}
	c.metrics.record(op, err == nil, latency)
	prom.ObserveGatewayRequest(op, outcome, latency.Seconds())
}

func failed(status int) OperationResult {
	return OperationResult{Payload: map[string]any{}, Status: status}
}

func invalid(op, reason string) *Error {
	err := &Error{Op: op, Kind: ErrTransport, Err: errors.Join(ErrInvalidArgument, errors.New(reason))}
	logFailure(err)
	return err
}

func resourcePath(op, prefix, id, suffix string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", invalid(op, "id is required")
	}
	return prefix + url.PathEscape(id) + suffix, nil
}
