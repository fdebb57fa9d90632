package config

import "errors"

// Sentinel errors for configuration lookups and validation.
var (
	ErrMissingAPIKey      = errors.New("LLM_API_KEY is required")
	ErrMCPServerNotFound  = errors.New("MCP server not found")
	ErrInvalidMCPConfig   = errors.New("invalid MCP config")
	ErrDuplicateToolName  = errors.New("duplicate tool name across MCP servers")
	ErrUnknownTransport   = errors.New("unsupported transport type")
	ErrMissingTransportEP = errors.New("transport requires an endpoint")
)
