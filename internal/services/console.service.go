package services

import (
	"context"

	gateway "github.com/nimasrn/billing-console/internal/gateways"
	"github.com/nimasrn/billing-console/internal/model"
	"github.com/nimasrn/billing-console/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	NoticeDashboardFailed      = "Erro ao buscar assinaturas. Verifique a chave da API e tente novamente."
	NoticeCustomerFailed       = "Erro ao buscar dados do cliente. Verifique a chave da API e tente novamente."
	NoticeValueUpdated         = "Assinatura atualizada com sucesso!"
	NoticeValueFailed          = "Erro ao atualizar assinatura."
	NoticeReminderSent         = "Alerta enviado com sucesso!"
	NoticeReminderFailed       = "Erro ao enviar alerta."
	NoticePaymentDueUpdated    = "Data de vencimento da fatura atualizada com sucesso!"
	NoticePaymentDueFailed     = "Erro ao atualizar data de vencimento da fatura."
	NoticeSubscriptionDueOK    = "Data de vencimento da assinatura atualizada com sucesso!"
	NoticeSubscriptionDueError = "Erro ao atualizar data de vencimento da assinatura."
	NoticeDebited              = "Próxima cobrança debitada com sucesso!"
	NoticeDebitFailed          = "Erro ao debitar próxima cobrança."
)

// BillingGateway is the subset of the billing client the console uses.
type BillingGateway interface {
	ListSubscriptions(ctx context.Context, apiKey string) (gateway.OperationResult, error)
	ListCustomers(ctx context.Context, apiKey string) (gateway.OperationResult, error)
	GetCustomer(ctx context.Context, apiKey, customerID string) (gateway.OperationResult, error)
	ListCustomerPayments(ctx context.Context, apiKey, customerID string) (gateway.OperationResult, error)
	UpdateSubscriptionValue(ctx context.Context, apiKey, subscriptionID string, value float64, date string) (gateway.OperationResult, error)
	UpdateSubscriptionDueDate(ctx context.Context, apiKey, subscriptionID, dueDate string) (gateway.OperationResult, error)
	UpdatePaymentDueDate(ctx context.Context, apiKey, paymentID, dueDate string) (gateway.OperationResult, error)
	SendPaymentReminder(ctx context.Context, apiKey, customerID, dueDate string, value float64) (gateway.OperationResult, error)
	DebitNextCharge(ctx context.Context, apiKey, subscriptionID string) (gateway.OperationResult, error)
	GetStats() gateway.UpstreamStats
}

// ConsoleService turns gateway results into what the operator sees. Failures
// of the billing API are reported through Outcome; the returned error is
// reserved for invalid input.
type ConsoleService struct {
	gw BillingGateway
}

func NewConsoleService(gw BillingGateway) *ConsoleService {
	return &ConsoleService{gw: gw}
}

// Dashboard loads subscriptions and customers in parallel.
func (s *ConsoleService) Dashboard(ctx context.Context, apiKey string) model.DashboardView {
	var subs, customers gateway.OperationResult

	var g errgroup.Group
	g.Go(func() error {
		subs, _ = s.gw.ListSubscriptions(ctx, apiKey)
		return nil
	})
	g.Go(func() error {
		customers, _ = s.gw.ListCustomers(ctx, apiKey)
		return nil
	})
	_ = g.Wait()

	view := model.DashboardView{
		Outcome:       model.Succeeded("", subs.Status, nil),
		Subscriptions: listData(subs.Payload),
		Customers:     listData(customers.Payload),
	}
	if subs.Status != 200 {
		view.Outcome = model.Failed(NoticeDashboardFailed, subs.Status)
	}
	return view
}

// CustomerDetail loads one customer and its payments.
func (s *ConsoleService) CustomerDetail(ctx context.Context, apiKey, customerID string) (model.CustomerView, error) {
	if customerID == "" {
		return model.CustomerView{}, model.ErrValidation
	}

	var customer, payments gateway.OperationResult

	var g errgroup.Group
	g.Go(func() error {
		customer, _ = s.gw.GetCustomer(ctx, apiKey, customerID)
		return nil
	})
	g.Go(func() error {
		payments, _ = s.gw.ListCustomerPayments(ctx, apiKey, customerID)
		return nil
	})
	_ = g.Wait()

	view := model.CustomerView{
		Outcome:  model.Succeeded("", customer.Status, nil),
		Customer: customer.Payload,
		Payments: listData(payments.Payload),
	}
	if customer.Status != 200 || payments.Status != 200 {
		status := customer.Status
		if status == 200 {
			status = payments.Status
		}
		view.Outcome = model.Failed(NoticeCustomerFailed, status)
	}
	return view, nil
}

func (s *ConsoleService) UpdateSubscriptionValue(ctx context.Context, apiKey string, p model.SubscriptionValueUpdate) (model.Outcome, error) {
	if err := p.Validate(); err != nil {
		return model.Outcome{}, err
	}
	res, _ := s.gw.UpdateSubscriptionValue(ctx, apiKey, p.SubscriptionID, p.Value, p.Date)
	return outcome(res, NoticeValueUpdated, NoticeValueFailed), nil
}

func (s *ConsoleService) UpdateSubscriptionDueDate(ctx context.Context, apiKey string, p model.DueDateUpdate) (model.Outcome, error) {
	if err := p.Validate(); err != nil {
		return model.Outcome{}, err
	}
	res, _ := s.gw.UpdateSubscriptionDueDate(ctx, apiKey, p.ID, p.DueDate)
	return outcome(res, NoticeSubscriptionDueOK, NoticeSubscriptionDueError), nil
}

func (s *ConsoleService) UpdatePaymentDueDate(ctx context.Context, apiKey string, p model.DueDateUpdate) (model.Outcome, error) {
	if err := p.Validate(); err != nil {
		return model.Outcome{}, err
	}
	res, _ := s.gw.UpdatePaymentDueDate(ctx, apiKey, p.ID, p.DueDate)
	return outcome(res, NoticePaymentDueUpdated, NoticePaymentDueFailed), nil
}

func (s *ConsoleService) SendPaymentReminder(ctx context.Context, apiKey string, p model.PaymentReminder) (model.Outcome, error) {
	if err := p.Validate(); err != nil {
		return model.Outcome{}, err
	}
	res, _ := s.gw.SendPaymentReminder(ctx, apiKey, p.CustomerID, p.DueDate, p.Value)
	return outcome(res, NoticeReminderSent, NoticeReminderFailed), nil
}

func (s *ConsoleService) DebitNextCharge(ctx context.Context, apiKey, subscriptionID string) (model.Outcome, error) {
	if subscriptionID == "" {
		return model.Outcome{}, model.ErrValidation
	}
	res, _ := s.gw.DebitNextCharge(ctx, apiKey, subscriptionID)
	return outcome(res, NoticeDebited, NoticeDebitFailed), nil
}

func (s *ConsoleService) GatewayStats() gateway.UpstreamStats {
	return s.gw.GetStats()
}

// outcome maps a mutation result. Only 200 counts as success; the gateway
// already logged the failure details.
func outcome(res gateway.OperationResult, ok, failed string) model.Outcome {
	if res.Status != 200 {
		logger.Debug("Console action failed", "status", res.Status, "notice", failed)
		return model.Failed(failed, res.Status)
	}
	return model.Succeeded(ok, res.Status, res.Payload)
}

func listData(payload map[string]any) []any {
	if data, ok := payload["data"].([]any); ok {
		return data
	}
	return []any{}
}
