// Package mcp provides the MCP (Model Context Protocol) client
// infrastructure and the tool broker that fronts it: multi-server
// connection management, tool discovery, per-agent permission gating,
// and uniform invocation.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/version"
)

// connectTimeout bounds a single server's transport setup + handshake.
// Kept well below the per-call timeout: a server that cannot even
// complete its handshake quickly should degrade the run to no-tool mode
// rather than stall the first analyst.
const connectTimeout = 30 * time.Second

// Client holds one MCP session per configured server for the duration
// of a single analysis run. It is created by the broker at run start,
// used strictly sequentially (one agent, one tool call at a time — the
// workflow graph has no parallel stages), and closed when the run ends.
//
// There is deliberately no retry or session-recreation machinery here:
// a failed tool call is returned to the caller, the broker converts it
// to an error payload, and the model decides whether to try again. The
// run is short-lived enough that reconnect-and-retry buys nothing over
// that policy.
type Client struct {
	registry *config.MCPServerRegistry

	mu            sync.Mutex
	sessions      map[string]*mcpsdk.ClientSession // serverID → session
	failedServers map[string]string                // serverID → connect error

	logger *slog.Logger
}

// NewClient creates a Client over the given server registry. Call
// Initialize to connect.
func NewClient(registry *config.MCPServerRegistry) *Client {
	return &Client{
		registry:      registry,
		sessions:      make(map[string]*mcpsdk.ClientSession),
		failedServers: make(map[string]string),
		logger:        slog.Default(),
	}
}

// Initialize connects to every server in the registry. A server that
// fails to connect is recorded in failedServers and skipped; the run
// proceeds without its tools and the orchestrator surfaces a warning
// per failed server.
func (c *Client) Initialize(ctx context.Context) error {
	for _, serverID := range c.registry.ServerIDs() {
		if err := c.connect(ctx, serverID); err != nil {
			c.mu.Lock()
			c.failedServers[serverID] = err.Error()
			c.mu.Unlock()
			c.logger.Warn("MCP server failed to initialize",
				"server", serverID, "error", err)
		}
	}
	return nil
}

// connect establishes the session for one server.
func (c *Client) connect(ctx context.Context, serverID string) error {
	c.mu.Lock()
	_, exists := c.sessions[serverID]
	c.mu.Unlock()
	if exists {
		return nil
	}

	serverCfg, err := c.registry.Get(serverID)
	if err != nil {
		return err
	}

	transport, err := newTransport(serverCfg.Transport)
	if err != nil {
		return fmt.Errorf("transport for %q: %w", serverID, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := sdkClient.Connect(connectCtx, transport, nil)
	if err != nil {
		// A stdio transport may have spawned a child process before the
		// handshake failed; close it rather than leak it for the rest of
		// the run.
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("connect to %q: %w", serverID, err)
	}

	c.mu.Lock()
	c.sessions[serverID] = session
	delete(c.failedServers, serverID)
	c.mu.Unlock()

	c.logger.Info("MCP server connected", "server", serverID)
	return nil
}

// session looks up the live session for a server.
func (c *Client) session(serverID string) (*mcpsdk.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, exists := c.sessions[serverID]
	if !exists {
		return nil, fmt.Errorf("no session for server %q", serverID)
	}
	return session, nil
}

// callTimeout returns the per-call deadline for a server from its
// configured timeout (seconds). Tool calls against market-data servers
// can be legitimately slow, so the default is generous.
func (c *Client) callTimeout(serverID string) time.Duration {
	if cfg, err := c.registry.Get(serverID); err == nil && cfg.Transport.Timeout > 0 {
		return time.Duration(cfg.Transport.Timeout) * time.Second
	}
	return time.Duration(config.DefaultMCPCallTimeout) * time.Second
}

// ListTools queries a server's tool list. Called once per server during
// broker initialization; the broker's aggregated catalog is the cache
// for the rest of the run, so there is no per-client caching layer.
func (c *Client) ListTools(ctx context.Context, serverID string) ([]*mcpsdk.Tool, error) {
	session, err := c.session(serverID)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, c.callTimeout(serverID))
	defer cancel()

	result, err := session.ListTools(opCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools from %q: %w", serverID, err)
	}
	if result.Tools == nil {
		return []*mcpsdk.Tool{}, nil
	}
	return result.Tools, nil
}

// ListAllTools queries every connected server, keyed by server ID.
// Servers that fail to answer are logged and omitted; an error is
// returned only when every server fails, which the broker treats as
// "run in no-tool mode".
func (c *Client) ListAllTools(ctx context.Context) (map[string][]*mcpsdk.Tool, error) {
	result := make(map[string][]*mcpsdk.Tool)
	var lastErr error
	for _, id := range c.ConnectedServerIDs() {
		tools, err := c.ListTools(ctx, id)
		if err != nil {
			lastErr = err
			c.logger.Warn("Failed to list tools from MCP server",
				"server", id, "error", err)
			continue
		}
		result[id] = tools
	}

	if len(result) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all servers failed to list tools: %w", lastErr)
	}
	return result, nil
}

// CallTool executes one tool call on the given server, bounded by the
// server's configured per-call timeout. Exactly one attempt: failures
// go back to the model as error payloads, and whether to retry is the
// model's call, not the transport layer's.
func (c *Client) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	session, err := c.session(serverID)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, c.callTimeout(serverID))
	defer cancel()

	result, err := session.CallTool(opCtx, &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call %q on %q: %w", toolName, serverID, err)
	}
	return result, nil
}

// Close shuts down all sessions. Called once, when the run's broker is
// released.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for id, session := range c.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close session %q: %w", id, err)
		}
	}
	c.sessions = make(map[string]*mcpsdk.ClientSession)
	c.failedServers = make(map[string]string)
	return firstErr
}

// HasSession checks if a server has an active session.
func (c *Client) HasSession(serverID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.sessions[serverID]
	return exists
}

// ConnectedServerIDs returns the IDs of servers with an active session.
func (c *Client) ConnectedServerIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	return ids
}

// FailedServers returns a copy of the servers that failed to connect,
// with the connect error text. The orchestrator turns each entry into a
// session-log warning.
func (c *Client) FailedServers() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]string, len(c.failedServers))
	for k, v := range c.failedServers {
		result[k] = v
	}
	return result
}
