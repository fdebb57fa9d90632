package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// extractTextContent extracts text from an MCP CallToolResult.
// Concatenates all TextContent items; non-text content (images, embedded
// resources) is logged at debug level and skipped.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		} else {
			slog.Debug("MCP tool returned non-text content, skipping",
				"content_type", fmt.Sprintf("%T", c))
		}
	}
	return strings.Join(parts, "\n")
}

// schemaToMap converts a tool's input schema (whatever concrete type the
// SDK hands back) into a plain map for the catalog.
func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		slog.Debug("Failed to marshal tool input schema", "error", err)
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Debug("Failed to decode tool input schema", "error", err)
		return nil
	}
	return m
}

// marshalSchema serializes a schema map to the JSON string carried in
// tool definitions.
func marshalSchema(schema map[string]any) string {
	if schema == nil {
		return ""
	}
	data, err := json.Marshal(schema)
	if err != nil {
		slog.Debug("Failed to marshal tool input schema", "error", err)
		return ""
	}
	return string(data)
}
