package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// defaultServerGroup is the presentational bucket for tools whose origin
// is unknown.
const defaultServerGroup = "default"

// ToolCallResult is the uniform outcome of a brokered tool invocation.
// Failures are carried as data — permission denials, unknown tools, and
// transport errors all come back as an error payload, never a panic or
// a propagated Go error.
type ToolCallResult struct {
	Content string
	IsError bool
}

// Broker aggregates the tool catalogs of all configured MCP servers into
// one flat, origin-annotated catalog and gates invocations by the
// per-agent permission table.
//
// Permissions are agent-level, not tool-level: an enabled agent sees the
// entire catalog. This coarse grain is intended.
type Broker struct {
	client      *Client
	permissions map[string]bool

	mu          sync.RWMutex
	catalog     []models.ToolCatalogEntry
	origins     map[string]string // tool name → server ID

	logger *slog.Logger
}

// NewBroker creates a Broker over the given server registry and
// permission table. Call Initialize before use.
func NewBroker(registry *config.MCPServerRegistry, permissions map[string]bool) *Broker {
	if permissions == nil {
		permissions = map[string]bool{}
	}
	return &Broker{
		client:      NewClient(registry),
		permissions: permissions,
		origins:     make(map[string]string),
		logger:      slog.Default(),
	}
}

// Initialize connects to every configured server and aggregates the tool
// catalog. Individual server failures degrade to "no tools from that
// server". Tool names must be unique across servers; a collision is a
// configuration error and fails initialization.
func (b *Broker) Initialize(ctx context.Context) error {
	if err := b.client.Initialize(ctx); err != nil {
		return err
	}

	byServer, err := b.client.ListAllTools(ctx)
	if err != nil {
		// Every server failed to list: stay initialized with an empty
		// catalog so the run proceeds in no-tool mode.
		b.logger.Warn("No MCP tools discovered", "error", err)
		b.mu.Lock()
		b.catalog = nil
		b.origins = make(map[string]string)
		b.mu.Unlock()
		return nil
	}

	serverIDs := make([]string, 0, len(byServer))
	for id := range byServer {
		serverIDs = append(serverIDs, id)
	}
	sort.Strings(serverIDs)

	var catalog []models.ToolCatalogEntry
	origins := make(map[string]string)
	for _, serverID := range serverIDs {
		for _, tool := range byServer[serverID] {
			if prev, dup := origins[tool.Name]; dup {
				return fmt.Errorf("%w: %q provided by both %q and %q",
					config.ErrDuplicateToolName, tool.Name, prev, serverID)
			}
			origins[tool.Name] = serverID
			catalog = append(catalog, models.ToolCatalogEntry{
				Server:      serverID,
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: schemaToMap(tool.InputSchema),
			})
		}
	}

	b.mu.Lock()
	b.catalog = catalog
	b.origins = origins
	b.mu.Unlock()

	b.logger.Info("MCP tool catalog aggregated",
		"servers", len(serverIDs), "tools", len(catalog))
	return nil
}

// IsAgentEnabled reports the agent's MCP permission.
func (b *Broker) IsAgentEnabled(agentName string) bool {
	return b.permissions[agentName]
}

// EnabledAgents returns the agents with MCP permission, sorted.
func (b *Broker) EnabledAgents() []string {
	var enabled []string
	for name, ok := range b.permissions {
		if ok {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	return enabled
}

// ToolsForAgent returns the flat catalog as tool definitions if the agent
// is permitted, empty otherwise.
func (b *Broker) ToolsForAgent(agentName string) []models.ToolDefinition {
	if !b.IsAgentEnabled(agentName) {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	defs := make([]models.ToolDefinition, 0, len(b.catalog))
	for _, entry := range b.catalog {
		defs = append(defs, models.ToolDefinition{
			Name:             entry.Name,
			Description:      entry.Description,
			ParametersSchema: marshalSchema(entry.InputSchema),
		})
	}
	return defs
}

// CallToolForAgent checks the agent's permission, resolves the tool to
// its originating server, and forwards the call. All failure modes come
// back as a structured error payload in the result.
func (b *Broker) CallToolForAgent(ctx context.Context, agentName, toolName string, args map[string]any) ToolCallResult {
	if !b.IsAgentEnabled(agentName) {
		return errorResult(fmt.Sprintf("agent %q is not permitted to use MCP tools", agentName))
	}

	b.mu.RLock()
	serverID, found := b.origins[toolName]
	b.mu.RUnlock()
	if !found {
		return errorResult(fmt.Sprintf("tool not found: %s", toolName))
	}

	result, err := b.client.CallTool(ctx, serverID, toolName, args)
	if err != nil {
		return errorResult(fmt.Sprintf("tool call failed: %s", err))
	}

	content := extractTextContent(result)
	if result.IsError {
		return ToolCallResult{Content: content, IsError: true}
	}
	return ToolCallResult{Content: content}
}

// ToolsInfo returns the catalog grouped by server, with permissions, for
// diagnostics and the monitoring API. Tools with no recorded origin fall
// into a heuristic bucket; grouping is presentational only — routing is
// always by declared origin.
func (b *Broker) ToolsInfo() models.CatalogSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	servers := make(map[string]models.ServerToolsInfo)
	for _, entry := range b.catalog {
		group := entry.Server
		if group == "" {
			group = inferServerGroup(entry.Name)
		}
		info := servers[group]
		info.Name = group
		info.Tools = append(info.Tools, entry)
		info.ToolCount = len(info.Tools)
		servers[group] = info
	}

	perms := make(map[string]bool, len(b.permissions))
	for k, v := range b.permissions {
		perms[k] = v
	}

	return models.CatalogSummary{
		Servers:          servers,
		TotalTools:       len(b.catalog),
		ServerCount:      len(servers),
		AgentPermissions: perms,
	}
}

// FailedServers returns servers that failed to initialize, with reasons.
func (b *Broker) FailedServers() map[string]string {
	return b.client.FailedServers()
}

// Close releases all server handles.
func (b *Broker) Close() error {
	return b.client.Close()
}

func errorResult(msg string) ToolCallResult {
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return ToolCallResult{Content: msg, IsError: true}
	}
	return ToolCallResult{Content: string(payload), IsError: true}
}

// inferServerGroup buckets a tool by name when its server attribute is
// absent from the transport.
func inferServerGroup(toolName string) string {
	lower := strings.ToLower(toolName)
	if strings.Contains(lower, "finance") || strings.Contains(lower, "stock") {
		return "finance-data-server"
	}
	return defaultServerGroup
}
