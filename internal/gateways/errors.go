package gateway

import (
	"errors"
	"fmt"
)

// Failure kinds. Every *Error unwraps to exactly one of the first four.
var (
	ErrTransport        = errors.New("billing api unreachable")
	ErrHTTP             = errors.New("billing api returned a failure status")
	ErrParse            = errors.New("billing api returned an unparsable body")
	ErrEnrichmentLookup = errors.New("customer lookup failed")

	// Rejected before any I/O. Reported with kind ErrTransport.
	ErrMissingAPIKey   = errors.New("api key is required")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is the failure returned by every gateway operation. Body keeps the
// upstream text for logging only and must not be shown to end users.
type Error struct {
	Op     string
	Kind   error
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func kindName(kind error) string {
	switch {
	case errors.Is(kind, ErrTransport):
		return "transport"
	case errors.Is(kind, ErrHTTP):
		return "http"
	case errors.Is(kind, ErrParse):
		return "parse"
	case errors.Is(kind, ErrEnrichmentLookup):
		return "enrichment_lookup"
	default:
		return "unknown"
	}
}
