package sandbox

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sandbox-key"

func setupRouter(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewStore()
	store.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return SetupRouter(NewHandler(store, testKey, zerolog.Nop())), store
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(AccessTokenHeader, testKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouter_RejectsWrongToken(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v3/customers", nil)
	req.Header.Set(AccessTokenHeader, "nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_access_token")

	req = httptest.NewRequest(http.MethodGet, "/api/v3/customers", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_AnyTokenWhenKeyUnset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(NewHandler(NewStore(), "", zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/api/v3/customers", nil)
	req.Header.Set(AccessTokenHeader, "whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ListsAreWrapped(t *testing.T) {
	r, store := setupRouter(t)
	c := store.AddCustomer(Customer{Name: "Ana"})
	store.AddSubscription(Subscription{Customer: c.ID, Value: 10, NextDueDate: "2024-03-10"})

	w := do(t, r, http.MethodGet, "/api/v3/subscriptions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "list", body["object"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, c.ID, data[0].(map[string]any)["customer"])

	w = do(t, r, http.MethodGet, "/api/v3/payments?customer=unknown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])
}

func TestRouter_GetCustomer(t *testing.T) {
	r, store := setupRouter(t)
	c := store.AddCustomer(Customer{Name: "Ana"})

	w := do(t, r, http.MethodGet, "/api/v3/customers/"+c.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana", decode(t, w)["name"])

	w = do(t, r, http.MethodGet, "/api/v3/customers/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	store.FailCustomer(c.ID, true)
	w = do(t, r, http.MethodGet, "/api/v3/customers/"+c.ID, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	store.FailCustomer(c.ID, false)
	w = do(t, r, http.MethodGet, "/api/v3/customers/"+c.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SetFailure(t *testing.T) {
	r, store := setupRouter(t)
	c := store.AddCustomer(Customer{Name: "Ana"})

	w := do(t, r, http.MethodPut, "/sandbox/failures", map[string]any{"customer": c.ID, "fail": true})
	require.Equal(t, http.StatusOK, w.Code)

	_, failing, err := store.Customer(c.ID)
	require.NoError(t, err)
	assert.True(t, failing)
}

func TestRouter_UpdateSubscription(t *testing.T) {
	r, store := setupRouter(t)
	sub := store.AddSubscription(Subscription{Value: 10, NextDueDate: "2024-03-10"})

	w := do(t, r, http.MethodPut, "/api/v3/subscriptions/"+sub.ID, map[string]any{"value": 25.5, "date": "2024-03-01"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25.5, decode(t, w)["value"])

	w = do(t, r, http.MethodPut, "/api/v3/subscriptions/"+sub.ID, map[string]any{"dueDate": "2024-04-15"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-04-15", decode(t, w)["nextDueDate"])

	w = do(t, r, http.MethodPut, "/api/v3/subscriptions/"+sub.ID, map[string]any{"value": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/api/v3/subscriptions/"+sub.ID, map[string]any{"dueDate": "15/04/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/api/v3/subscriptions/missing", map[string]any{"value": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PaymentLifecycle(t *testing.T) {
	r, store := setupRouter(t)
	c := store.AddCustomer(Customer{Name: "Ana"})

	w := do(t, r, http.MethodPost, "/api/v3/payments", map[string]any{
		"customer":    c.ID,
		"billingType": "BOLETO",
		"dueDate":     "2024-03-20",
		"value":       99.9,
		"description": "Mensalidade em atraso",
	})
	require.Equal(t, http.StatusOK, w.Code)
	payment := decode(t, w)
	assert.Equal(t, "PENDING", payment["status"])
	id := payment["id"].(string)

	w = do(t, r, http.MethodPut, "/api/v3/payments/"+id, map[string]any{"dueDate": "2024-03-25"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-25", decode(t, w)["dueDate"])

	payments := store.Payments(c.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "2024-03-25", payments[0].DueDate)

	w = do(t, r, http.MethodPost, "/api/v3/payments", map[string]any{
		"customer": "missing", "billingType": "BOLETO", "dueDate": "2024-03-20", "value": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, "/api/v3/payments/missing", map[string]any{"dueDate": "2024-03-25"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_DebitReturnsEmptyBody(t *testing.T) {
	r, store := setupRouter(t)
	c := store.AddCustomer(Customer{Name: "Ana"})
	sub := store.AddSubscription(Subscription{Customer: c.ID, Value: 50, NextDueDate: "2024-03-10"})

	w := do(t, r, http.MethodPost, "/api/v3/subscriptions/"+sub.ID+"/debit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())

	updated, err := store.Subscription(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-10", updated.NextDueDate)

	payments := store.Payments(c.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "CONFIRMED", payments[0].Status)
	assert.Equal(t, "2024-03-01", payments[0].DueDate)

	w = do(t, r, http.MethodPost, "/api/v3/subscriptions/missing/debit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStore_Seed(t *testing.T) {
	store := NewStore()
	store.Seed()

	assert.Len(t, store.Customers(), 3)
	subs := store.Subscriptions()
	require.Len(t, subs, 3)
	for _, sub := range subs {
		_, _, err := store.Customer(sub.Customer)
		assert.NoError(t, err)
	}
	assert.Len(t, store.Payments(""), 1)
}
