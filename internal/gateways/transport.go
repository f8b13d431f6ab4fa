package gateway

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const apiKeyHeader = "access_token"

// Capabilities toggles behavior that differed between upstream deployments.
type Capabilities struct {
	IncludeDateOnValueUpdate bool
}

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	MaxConns          int
	ReadBufferSize    int
	WriteBufferSize   int
	EnrichConcurrency int
	Capabilities      Capabilities
}

// RawResponse is what the upstream answered, whatever the status.
type RawResponse struct {
	Status int
	Body   []byte
}

// Client talks to the billing API. It holds no per-operator state: the API
// key travels with every call.
type Client struct {
	config  *Config
	baseURL string
	http    *fasthttp.Client
	metrics *upstreamTracker
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	base := strings.TrimRight(config.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base url %q", config.BaseURL)
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.EnrichConcurrency <= 0 {
		config.EnrichConcurrency = 4
	}

	client := &Client{
		config:  config,
		baseURL: base,
		http: &fasthttp.Client{
			MaxConnsPerHost:               config.MaxConns,
			ReadTimeout:                   config.Timeout,
			WriteTimeout:                  config.Timeout,
			MaxIdleConnDuration:           60 * time.Second,
			ReadBufferSize:                config.ReadBufferSize,
			WriteBufferSize:               config.WriteBufferSize,
			DisableHeaderNamesNormalizing: true,
			DisablePathNormalizing:        true,
		},
		metrics: newUpstreamTracker(),
	}

	logger.Info("Billing client initialized", "base_url", base, "timeout", config.Timeout,
		"enrich_concurrency", config.EnrichConcurrency, "include_date_on_value_update", config.Capabilities.IncludeDateOnValueUpdate)

	return client, nil
}

// Send performs exactly one request against path, relative to the base URL.
// Any HTTP status is returned as a RawResponse; only failures to obtain a
// response produce an error, always of kind ErrTransport.
func (c *Client) Send(ctx context.Context, method, path, apiKey string, body any, query map[string]string) (*RawResponse, error) {
	op := method + " " + path
	if apiKey == "" {
		return nil, &Error{Op: op, Kind: ErrTransport, Err: ErrMissingAPIKey}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: op, Kind: ErrTransport, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.DisableNormalizing()
	req.SetRequestURI(c.baseURL + path)
	req.URI().DisablePathNormalizing = true
	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := req.URI().QueryArgs()
		for _, k := range keys {
			args.Add(k, query[k])
		}
	}

	req.Header.SetMethod(method)
	req.Header.Set(apiKeyHeader, apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Kind: ErrTransport, Err: errors.Wrap(err, "failed to marshal request")}
		}
		logger.Debug("Billing request body", "method", method, "path", path, "body", string(payload))
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, &Error{Op: op, Kind: ErrTransport, Err: errors.Wrap(err, "request failed")}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return &RawResponse{Status: resp.StatusCode(), Body: result}, nil
}

// Close drops pooled connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	logger.Info("Billing client closed")
	return nil
}
