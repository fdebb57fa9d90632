package mcp

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
)

// maxHeaderWait caps how long the HTTP transports wait for a server to
// start answering. Derived from the server's per-call timeout but
// clamped: even a slow market-data tool should begin its response well
// before the call deadline, and SSE streams must not be cut off by a
// whole-request timeout, so header wait is the only client-side limit.
const maxHeaderWait = 30 * time.Second

// newTransport builds the MCP SDK transport for one configured server.
// Config validation (required url/command per transport type) already
// happened at load time; this only has to assemble.
func newTransport(cfg config.TransportConfig) (mcpsdk.Transport, error) {
	switch cfg.Type {
	case config.TransportTypeStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("stdio transport requires command")
		}
		return &mcpsdk.CommandTransport{Command: serverCommand(cfg)}, nil

	case config.TransportTypeSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("SSE transport requires url")
		}
		return &mcpsdk.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: httpClientFor(cfg),
		}, nil

	case config.TransportTypeHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("HTTP transport requires url")
		}
		return &mcpsdk.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: httpClientFor(cfg),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

// serverCommand prepares the child process for a stdio server: the
// parent environment plus the server entry's env overrides, so a local
// data server can receive its API keys from the MCP config file.
func serverCommand(cfg config.TransportConfig) *exec.Cmd {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env
	return cmd
}

// headerWait derives the response-header deadline from the server's
// configured per-call timeout, clamped to maxHeaderWait.
func headerWait(cfg config.TransportConfig) time.Duration {
	wait := maxHeaderWait
	if cfg.Timeout > 0 {
		if configured := time.Duration(cfg.Timeout) * time.Second; configured < wait {
			wait = configured
		}
	}
	return wait
}

// httpClientFor builds the http.Client shared by the SSE and streamable
// transports. Per-call deadlines come from the caller's context (the
// client applies the server's configured timeout per operation), so the
// only transport-level limit is the response-header wait.
func httpClientFor(cfg config.TransportConfig) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = headerWait(cfg)

	if cfg.VerifySSL != nil && !*cfg.VerifySSL {
		base.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // operator opted out in the MCP config file
			MinVersion:         tls.VersionTLS12,
		}
	}

	var rt http.RoundTripper = base
	if cfg.BearerToken != "" {
		rt = &authTransport{next: base, token: cfg.BearerToken}
	}

	return &http.Client{Transport: rt}
}

// authTransport stamps the configured bearer token onto every request
// to a token-protected data server.
type authTransport struct {
	next  http.RoundTripper
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(cloned)
}
