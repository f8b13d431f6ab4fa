package model

const (
	LevelSuccess = "success"
	LevelDanger  = "danger"
)

// Outcome is what the console reports back for a business action. Notice is
// safe to show to the operator; upstream error bodies never end up here.
type Outcome struct {
	OK      bool           `json:"ok"`
	Level   string         `json:"level"`
	Notice  string         `json:"notice,omitempty"`
	Status  int            `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
}

func Succeeded(notice string, status int, payload map[string]any) Outcome {
	return Outcome{OK: true, Level: LevelSuccess, Notice: notice, Status: status, Payload: payload}
}

func Failed(notice string, status int) Outcome {
	return Outcome{OK: false, Level: LevelDanger, Notice: notice, Status: status}
}

// DashboardView lists subscriptions, already carrying customer_name, and
// customers.
type DashboardView struct {
	Outcome
	Subscriptions []any `json:"subscriptions"`
	Customers     []any `json:"customers"`
}

type CustomerView struct {
	Outcome
	Customer map[string]any `json:"customer"`
	Payments []any          `json:"payments"`
}
