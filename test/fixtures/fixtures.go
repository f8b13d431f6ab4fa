package fixtures

import (
	"github.com/nimasrn/billing-console/internal/sandbox"
)

var (
	TestCustomerAna = sandbox.Customer{
		Name:  "Ana Souza",
		Email: "ana@example.com",
	}

	TestCustomerBruno = sandbox.Customer{
		Name:  "Bruno Lima",
		Email: "bruno@example.com",
	}

	// TestCustomerNameless has no name on record.
	TestCustomerNameless = sandbox.Customer{
		Email: "nameless@example.com",
	}
)

// Account is a loaded demo account.
type Account struct {
	Ana, Bruno, Nameless sandbox.Customer

	AnaSubscription, BrunoSubscription, NamelessSubscription sandbox.Subscription

	AnaPayment sandbox.Payment
}

// Load adds one subscription per fixture customer and an open payment for
// Ana.
func Load(store *sandbox.Store) Account {
	var a Account
	a.Ana = store.AddCustomer(TestCustomerAna)
	a.Bruno = store.AddCustomer(TestCustomerBruno)
	a.Nameless = store.AddCustomer(TestCustomerNameless)

	a.AnaSubscription = store.AddSubscription(sandbox.Subscription{Customer: a.Ana.ID, Value: 99.9, NextDueDate: "2024-03-10"})
	a.BrunoSubscription = store.AddSubscription(sandbox.Subscription{Customer: a.Bruno.ID, Value: 149.9, NextDueDate: "2024-03-15"})
	a.NamelessSubscription = store.AddSubscription(sandbox.Subscription{Customer: a.Nameless.ID, Value: 59.9, NextDueDate: "2024-03-20"})

	payment, err := store.CreatePayment(sandbox.Payment{Customer: a.Ana.ID, Value: 99.9, DueDate: "2024-02-10", BillingType: "BOLETO"})
	if err != nil {
		panic(err)
	}
	a.AnaPayment = payment
	return a
}
