package gateway

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/nimasrn/billing-console/pkg/logger"
)

const maxLoggedBody = 512

// Normalize turns a raw response into a payload or a classified failure.
// The payload is never nil. A 2xx with an empty body is a success.
func Normalize(op string, raw *RawResponse) (map[string]any, error) {
	if raw.Status < 200 || raw.Status > 299 {
		err := &Error{Op: op, Kind: ErrHTTP, Status: raw.Status, Body: string(raw.Body)}
		logFailure(err)
		return map[string]any{}, err
	}

	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		gerr := &Error{Op: op, Kind: ErrParse, Status: raw.Status, Body: string(raw.Body), Err: err}
		logFailure(gerr)
		return map[string]any{}, gerr
	}

	return payload, nil
}

func logFailure(err *Error) {
	logger.Error("Billing api call failed",
		"operation", err.Op,
		"status", err.Status,
		"kind", kindName(err.Kind),
		"body", truncate(err.Body, maxLoggedBody),
		"error", err.Err,
	)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
