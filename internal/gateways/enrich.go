package gateway

import (
	"context"

	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/prom"
	"golang.org/x/sync/errgroup"
)

// FallbackCustomerName is attached when a subscription's customer cannot be
// resolved.
const FallbackCustomerName = "Nome não disponível"

const customerNameField = "customer_name"

// enrich sets customer_name on every object in payload["data"]. Lookups run
// with at most EnrichConcurrency in flight; each writes only its own slot, so
// the listing order is kept and a failed lookup never affects its siblings.
func (c *Client) enrich(ctx context.Context, apiKey string, payload map[string]any) {
	items, ok := payload["data"].([]any)
	if !ok || len(items) == 0 {
		return
	}

	names := make([]string, len(items))
	var g errgroup.Group
	g.SetLimit(c.config.EnrichConcurrency)

	for i, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			continue
		}
		customerID, _ := sub["customer"].(string)
		if customerID == "" {
			prom.IncEnrichmentFallback("no_customer")
			names[i] = FallbackCustomerName
			continue
		}
		i := i
		g.Go(func() error {
			names[i] = c.customerName(ctx, apiKey, customerID)
			return nil
		})
	}
	_ = g.Wait()

	for i, item := range items {
		if sub, ok := item.(map[string]any); ok {
			sub[customerNameField] = names[i]
		}
	}
}

func (c *Client) customerName(ctx context.Context, apiKey, customerID string) string {
	res, err := c.GetCustomer(ctx, apiKey, customerID)
	if err != nil {
		logger.Warn("Customer lookup failed, using fallback name",
			"operation", OpListSubscriptions,
			"customer", customerID,
			"status", res.Status,
			"error", &Error{Op: OpGetCustomer, Kind: ErrEnrichmentLookup, Status: res.Status, Err: err},
		)
		prom.IncEnrichmentFallback("lookup_failed")
		return FallbackCustomerName
	}

	name, _ := res.Payload["name"].(string)
	if name == "" {
		logger.Warn("Customer has no name, using fallback name",
			"operation", OpListSubscriptions,
			"customer", customerID,
			"kind", kindName(ErrEnrichmentLookup),
		)
		prom.IncEnrichmentFallback("empty_name")
		return FallbackCustomerName
	}
	return name
}
