// Package llm provides the LLM round-trip shared by every agent: one
// Chat call that hides the model's tool-calling loop behind a single
// final assistant string.
package llm

import (
	"context"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// MaxToolIterations caps the tool-call loop inside a single Chat call.
// Exceeding it returns the last assistant content with a warning instead
// of erroring — a chatty model should degrade, not fail the agent.
const MaxToolIterations = 8

// ToolRunner executes tool calls requested by the model during a chat.
// Implementations gate by agent permission and record the invocation;
// failures come back as (payload, true) so the model sees them as tool
// results and can retry or abandon.
type ToolRunner interface {
	CallTool(ctx context.Context, toolName, argsJSON string) (content string, isError bool)
}

// ChatRequest is one agent conversation round-trip.
type ChatRequest struct {
	AgentName string
	System    string
	History   []models.ConversationMessage
	User      string

	// Tools enables native tool calling when non-empty. Runner must be
	// set whenever Tools is.
	Tools  []models.ToolDefinition
	Runner ToolRunner
}

// ChatResult is the outcome of a Chat call.
type ChatResult struct {
	// Content is the final assistant text.
	Content string

	// ToolCallsUsed counts tool invocations executed during the loop.
	ToolCallsUsed int

	// Warnings carries non-fatal conditions (iteration cap reached,
	// cancellation mid-loop) for the caller to surface in state.
	Warnings []string
}

// Client is the LLM round-trip contract. Implementations are stateless
// per call and safe for sequential reuse across agents.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}
