package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nimasrn/billing-console/internal/sandbox"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "cli-key"

func setupSandbox(t *testing.T) *sandbox.Store {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := sandbox.NewStore()
	srv := httptest.NewServer(sandbox.SetupRouter(sandbox.NewHandler(store, testKey, zerolog.Nop())))
	t.Cleanup(srv.Close)
	t.Setenv("BILLING_BASE_URL", srv.URL+"/api/v3")
	return store
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLI_RequiresAPIKey(t *testing.T) {
	setupSandbox(t)

	_, _, err := execute(t, "customers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--api-key")
}

func TestCLI_SubscriptionsCarryCustomerName(t *testing.T) {
	store := setupSandbox(t)
	c := store.AddCustomer(sandbox.Customer{Name: "Ana"})
	store.AddSubscription(sandbox.Subscription{Customer: c.ID, Value: 10, NextDueDate: "2024-03-10"})

	out, _, err := execute(t, "--api-key="+testKey, "subscriptions")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	data := payload["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Ana", data[0].(map[string]any)["customer_name"])
}

func TestCLI_CustomerNotFoundFails(t *testing.T) {
	setupSandbox(t)

	_, _, err := execute(t, "--api-key="+testKey, "customer", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCLI_WrongKeyFails(t *testing.T) {
	setupSandbox(t)

	_, _, err := execute(t, "--api-key=wrong", "customers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCLI_SetValue(t *testing.T) {
	store := setupSandbox(t)
	sub := store.AddSubscription(sandbox.Subscription{Value: 10, NextDueDate: "2024-03-10"})

	out, stderr, err := execute(t, "--api-key="+testKey, "set-value", sub.ID, "42.5")
	require.NoError(t, err)
	assert.NotEmpty(t, stderr)
	assert.Contains(t, out, "42.5")

	updated, err := store.Subscription(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, updated.Value)
}

func TestCLI_SetValueRejectsBadInput(t *testing.T) {
	store := setupSandbox(t)
	sub := store.AddSubscription(sandbox.Subscription{Value: 10, NextDueDate: "2024-03-10"})

	_, _, err := execute(t, "--api-key="+testKey, "set-value", sub.ID, "abc")
	require.Error(t, err)

	_, _, err = execute(t, "--api-key="+testKey, "set-value", sub.ID, "0")
	require.Error(t, err)

	unchanged, err := store.Subscription(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, unchanged.Value)
}

func TestCLI_RemindAndMovePayment(t *testing.T) {
	store := setupSandbox(t)
	c := store.AddCustomer(sandbox.Customer{Name: "Ana"})

	_, _, err := execute(t, "--api-key="+testKey, "remind", c.ID, "2024-03-20", "99.9")
	require.NoError(t, err)

	payments := store.Payments(c.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "BOLETO", payments[0].BillingType)
	assert.Equal(t, "Mensalidade em atraso", payments[0].Description)

	_, _, err = execute(t, "--api-key="+testKey, "set-payment-due", payments[0].ID, "2024-03-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-28", store.Payments(c.ID)[0].DueDate)

	out, _, err := execute(t, "--api-key="+testKey, "payments", c.ID)
	require.NoError(t, err)
	assert.Contains(t, out, payments[0].ID)
}

func TestCLI_SubscriptionDueAndDebit(t *testing.T) {
	store := setupSandbox(t)
	c := store.AddCustomer(sandbox.Customer{Name: "Ana"})
	sub := store.AddSubscription(sandbox.Subscription{Customer: c.ID, Value: 10, NextDueDate: "2024-03-10"})

	_, _, err := execute(t, "--api-key="+testKey, "set-subscription-due", sub.ID, "2024-05-01")
	require.NoError(t, err)

	out, _, err := execute(t, "--api-key="+testKey, "debit", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)

	updated, err := store.Subscription(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", updated.NextDueDate)
}

func TestCLI_DebitUnknownSubscriptionFails(t *testing.T) {
	setupSandbox(t)

	_, stderr, err := execute(t, "--api-key="+testKey, "debit", "missing")
	require.Error(t, err)
	assert.NotEmpty(t, stderr)
}
