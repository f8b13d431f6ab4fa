package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ErrValidation wraps every input error caught before calling the billing API.
var ErrValidation = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SubscriptionValueUpdate sets an absolute subscription value. Date is
// optional and, when present, must be YYYY-MM-DD.
type SubscriptionValueUpdate struct {
	SubscriptionID string
	Value          float64
	Date           string
}

func (p SubscriptionValueUpdate) Validate() error {
	if strings.TrimSpace(p.SubscriptionID) == "" {
		return invalid("subscription id is required")
	}
	if err := validateValue(p.Value); err != nil {
		return err
	}
	if p.Date != "" {
		return validateDate("date", p.Date)
	}
	return nil
}

// DueDateUpdate moves the due date of a subscription or a payment.
type DueDateUpdate struct {
	ID      string
	DueDate string
}

func (p DueDateUpdate) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return invalid("id is required")
	}
	return validateDate("dueDate", p.DueDate)
}

// PaymentReminder issues a new boleto charge for an overdue customer.
type PaymentReminder struct {
	CustomerID string
	DueDate    string
	Value      float64
}

func (p PaymentReminder) Validate() error {
	if strings.TrimSpace(p.CustomerID) == "" {
		return invalid("customer id is required")
	}
	if err := validateDate("dueDate", p.DueDate); err != nil {
		return err
	}
	return validateValue(p.Value)
}

func validateValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid("value must be a positive number")
	}
	return nil
}

func validateDate(field, s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalid("%s must be a date in YYYY-MM-DD format", field)
	}
	return nil
}
