package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
)

func TestNewTransport_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TransportConfig
		wantErr string
	}{
		{"stdio missing command", config.TransportConfig{Type: config.TransportTypeStdio}, "requires command"},
		{"sse missing url", config.TransportConfig{Type: config.TransportTypeSSE}, "requires url"},
		{"http missing url", config.TransportConfig{Type: config.TransportTypeHTTP}, "requires url"},
		{"unknown type", config.TransportConfig{Type: "smoke-signal"}, "unsupported transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTransport(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewTransport_Types(t *testing.T) {
	stdio, err := newTransport(config.TransportConfig{
		Type:    config.TransportTypeStdio,
		Command: "finance-mcp",
		Args:    []string{"--fast"},
		Env:     map[string]string{"TOKEN": "x"},
	})
	require.NoError(t, err)
	require.NotNil(t, stdio)

	sse, err := newTransport(config.TransportConfig{
		Type: config.TransportTypeSSE,
		URL:  "http://localhost:3001/sse",
	})
	require.NoError(t, err)
	require.NotNil(t, sse)

	streamable, err := newTransport(config.TransportConfig{
		Type: config.TransportTypeHTTP,
		URL:  "http://localhost:3001/mcp",
	})
	require.NoError(t, err)
	require.NotNil(t, streamable)
}

func TestHeaderWait(t *testing.T) {
	// Unset and large timeouts clamp to the ceiling; a short per-call
	// timeout tightens the header wait with it.
	assert.Equal(t, maxHeaderWait, headerWait(config.TransportConfig{}))
	assert.Equal(t, maxHeaderWait, headerWait(config.TransportConfig{Timeout: 600}))
	assert.Equal(t, 5*time.Second, headerWait(config.TransportConfig{Timeout: 5}))
}

func TestHTTPClientFor_BearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	t.Cleanup(server.Close)

	client := httpClientFor(config.TransportConfig{BearerToken: "secret-token", Timeout: 10})
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestHTTPClientFor_NoWholeRequestTimeout(t *testing.T) {
	// SSE streams outlive any whole-request deadline; only the header
	// wait may be bounded.
	client := httpClientFor(config.TransportConfig{Timeout: 5})
	assert.Zero(t, client.Timeout)
}
