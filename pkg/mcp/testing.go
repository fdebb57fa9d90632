package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// InjectSession wires a pre-connected MCP SDK session into the Client.
// Intended for test infrastructure that uses in-memory MCP servers
// instead of the real transport path. After injecting,
// Broker.Initialize aggregates the catalog from the injected sessions
// (the registry has no servers to connect, so the connect pass is a
// no-op).
func (c *Client) InjectSession(serverID string, session *mcpsdk.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[serverID] = session
}

// Client returns the broker's underlying MCP client, for session
// injection in tests.
func (b *Broker) Client() *Client {
	return b.client
}
