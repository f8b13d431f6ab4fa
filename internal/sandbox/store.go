package sandbox

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidValue = errors.New("value must be positive")
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
)

const dateLayout = "2006-01-02"

type Customer struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

type Subscription struct {
	Object      string  `json:"object"`
	ID          string  `json:"id"`
	Customer    string  `json:"customer,omitempty"`
	Value       float64 `json:"value"`
	NextDueDate string  `json:"nextDueDate"`
	Cycle       string  `json:"cycle"`
	BillingType string  `json:"billingType"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
}

type Payment struct {
	Object       string  `json:"object"`
	ID           string  `json:"id"`
	Customer     string  `json:"customer"`
	Subscription string  `json:"subscription,omitempty"`
	Value        float64 `json:"value"`
	DueDate      string  `json:"dueDate"`
	BillingType  string  `json:"billingType"`
	Status       string  `json:"status"`
	Description  string  `json:"description,omitempty"`
}

type List[T any] struct {
	Object     string `json:"object"`
	HasMore    bool   `json:"hasMore"`
	TotalCount int    `json:"totalCount"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	Data       []T    `json:"data"`
}

func newList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Object: "list", TotalCount: len(items), Limit: 100, Data: items}
}

// Store is the in-memory state of the fake billing account. Listing order is
// insertion order.
type Store struct {
	mu            sync.RWMutex
	customers     []*Customer
	subscriptions []*Subscription
	payments      []*Payment
	failing       map[string]bool
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{failing: make(map[string]bool), now: time.Now}
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:12]
}

func (s *Store) AddCustomer(c Customer) Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID("cus")
	}
	c.Object = "customer"
	s.customers = append(s.customers, &c)
	return c
}

func (s *Store) AddSubscription(sub Subscription) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = newID("sub")
	}
	sub.Object = "subscription"
	if sub.Cycle == "" {
		sub.Cycle = "MONTHLY"
	}
	if sub.BillingType == "" {
		sub.BillingType = "BOLETO"
	}
	if sub.Status == "" {
		sub.Status = "ACTIVE"
	}
	s.subscriptions = append(s.subscriptions, &sub)
	return sub
}

// FailCustomer makes lookups of the customer answer 500 while fail is set.
func (s *Store) FailCustomer(id string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fail {
		s.failing[id] = true
		return
	}
	delete(s.failing, id)
}

func (s *Store) Customers() []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, *c)
	}
	return out
}

// Customer returns the customer; failing reports an injected failure.
func (s *Store) Customer(id string) (c Customer, failing bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing[id] {
		return Customer{}, true, nil
	}
	for _, c := range s.customers {
		if c.ID == id {
			return *c, false, nil
		}
	}
	return Customer{}, false, ErrNotFound
}

func (s *Store) Subscriptions() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		out = append(out, *sub)
	}
	return out
}

func (s *Store) Subscription(id string) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub := s.findSubscription(id)
	if sub == nil {
		return Subscription{}, ErrNotFound
	}
	return *sub, nil
}

type SubscriptionUpdate struct {
	Value   *float64
	DueDate string
}

func (s *Store) UpdateSubscription(id string, u SubscriptionUpdate) (Subscription, error) {
	if u.Value != nil && *u.Value <= 0 {
		return Subscription{}, ErrInvalidValue
	}
	if u.DueDate != "" && !validDate(u.DueDate) {
		return Subscription{}, ErrInvalidDate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.findSubscription(id)
	if sub == nil {
		return Subscription{}, ErrNotFound
	}
	if u.Value != nil {
		sub.Value = *u.Value
	}
	if u.DueDate != "" {
		sub.NextDueDate = u.DueDate
	}
	return *sub, nil
}

// Debit charges the subscription now: a confirmed payment is recorded and the
// next due date moves one month ahead.
func (s *Store) Debit(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.findSubscription(id)
	if sub == nil {
		return ErrNotFound
	}
	s.payments = append(s.payments, &Payment{
		Object:       "payment",
		ID:           newID("pay"),
		Customer:     sub.Customer,
		Subscription: sub.ID,
		Value:        sub.Value,
		DueDate:      s.now().Format(dateLayout),
		BillingType:  sub.BillingType,
		Status:       "CONFIRMED",
	})
	if next, err := time.Parse(dateLayout, sub.NextDueDate); err == nil {
		sub.NextDueDate = next.AddDate(0, 1, 0).Format(dateLayout)
	}
	return nil
}

func (s *Store) Payments(customerID string) []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Payment, 0)
	for _, p := range s.payments {
		if customerID == "" || p.Customer == customerID {
			out = append(out, *p)
		}
	}
	return out
}

func (s *Store) CreatePayment(p Payment) (Payment, error) {
	if p.Value <= 0 {
		return Payment{}, ErrInvalidValue
	}
	if !validDate(p.DueDate) {
		return Payment{}, ErrInvalidDate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, c := range s.customers {
		if c.ID == p.Customer {
			found = true
			break
		}
	}
	if !found {
		return Payment{}, ErrNotFound
	}
	p.Object = "payment"
	p.ID = newID("pay")
	p.Status = "PENDING"
	s.payments = append(s.payments, &p)
	return p, nil
}

func (s *Store) UpdatePaymentDueDate(id, dueDate string) (Payment, error) {
	if !validDate(dueDate) {
		return Payment{}, ErrInvalidDate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			p.DueDate = dueDate
			return *p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (s *Store) findSubscription(id string) *Subscription {
	for _, sub := range s.subscriptions {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// Seed fills the store with a small demo account.
func (s *Store) Seed() {
	ana := s.AddCustomer(Customer{Name: "Ana Souza", Email: "ana@example.com"})
	bruno := s.AddCustomer(Customer{Name: "Bruno Lima", Email: "bruno@example.com"})
	carla := s.AddCustomer(Customer{Name: "Carla Dias"})

	due := s.now().AddDate(0, 0, 10).Format(dateLayout)
	s.AddSubscription(Subscription{Customer: ana.ID, Value: 99.90, NextDueDate: due, Description: "Plano mensal"})
	s.AddSubscription(Subscription{Customer: bruno.ID, Value: 149.90, NextDueDate: due, Description: "Plano mensal"})
	s.AddSubscription(Subscription{Customer: carla.ID, Value: 59.90, NextDueDate: due, BillingType: "CREDIT_CARD"})

	_, _ = s.CreatePayment(Payment{Customer: ana.ID, Value: 99.90, DueDate: s.now().AddDate(0, 0, -5).Format(dateLayout), BillingType: "BOLETO"})
}
