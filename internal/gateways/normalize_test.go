package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawResponse
		expected map[string]any
		kind     error
	}{
		{
			name:     "json object",
			raw:      RawResponse{Status: 200, Body: []byte(`{"id":"sub_1","value":10}`)},
			expected: map[string]any{"id": "sub_1", "value": 10.0},
		},
		{
			name:     "empty body",
			raw:      RawResponse{Status: 200},
			expected: map[string]any{},
		},
		{
			name:     "whitespace body",
			raw:      RawResponse{Status: 204, Body: []byte(" \n\t")},
			expected: map[string]any{},
		},
		{
			name:     "html on success status",
			raw:      RawResponse{Status: 200, Body: []byte("<html></html>")},
			expected: map[string]any{},
			kind:     ErrParse,
		},
		{
			name:     "json array",
			raw:      RawResponse{Status: 200, Body: []byte(`[1,2]`)},
			expected: map[string]any{},
			kind:     ErrParse,
		},
		{
			name:     "json null",
			raw:      RawResponse{Status: 200, Body: []byte(`null`)},
			expected: map[string]any{},
			kind:     ErrParse,
		},
		{
			name:     "client error with json body",
			raw:      RawResponse{Status: 400, Body: []byte(`{"errors":[{"code":"invalid_value"}]}`)},
			expected: map[string]any{},
			kind:     ErrHTTP,
		},
		{
			name:     "server error with empty body",
			raw:      RawResponse{Status: 503},
			expected: map[string]any{},
			kind:     ErrHTTP,
		},
		{
			name:     "redirect",
			raw:      RawResponse{Status: 302, Body: []byte(`{}`)},
			expected: map[string]any{},
			kind:     ErrHTTP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Normalize("test_op", &tt.raw)
			require.NotNil(t, payload)
			assert.Equal(t, tt.expected, payload)

			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind))

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, "test_op", gerr.Op)
			assert.Equal(t, tt.raw.Status, gerr.Status)
			assert.Equal(t, string(tt.raw.Body), gerr.Body)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 512))
	assert.Len(t, truncate(strings.Repeat("a", 600), 512), 512)

	// "ã" is two bytes; a cut in its middle backs off to the rune start.
	s := strings.Repeat("a", 511) + "ã"
	out := truncate(s, 512)
	assert.Equal(t, strings.Repeat("a", 511), out)
}

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &Error{Op: OpGetCustomer, Kind: ErrTransport, Err: cause}

	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrHTTP))
	assert.Equal(t, "get_customer: billing api unreachable: dial tcp: connection refused", err.Error())

	httpErr := &Error{Op: OpListCustomers, Kind: ErrHTTP, Status: 404}
	assert.Equal(t, "list_customers: billing api returned a failure status (status 404)", httpErr.Error())

	assert.Equal(t, "transport", kindName(ErrTransport))
	assert.Equal(t, "http", kindName(ErrHTTP))
	assert.Equal(t, "parse", kindName(ErrParse))
	assert.Equal(t, "enrichment_lookup", kindName(ErrEnrichmentLookup))
}
