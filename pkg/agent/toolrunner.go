package agent

import (
	"context"

	"github.com/guangxiangdebizi/tradingagents/pkg/llm"
	"github.com/guangxiangdebizi/tradingagents/pkg/mcp"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// recordingToolRunner executes brokered tool calls for one agent and
// mirrors every invocation into the analysis state and the session log.
type recordingToolRunner struct {
	agentName string
	state     *models.AnalysisState
	deps      *Deps
}

var _ llm.ToolRunner = (*recordingToolRunner)(nil)

func newRecordingToolRunner(agentName string, state *models.AnalysisState, deps *Deps) *recordingToolRunner {
	return &recordingToolRunner{agentName: agentName, state: state, deps: deps}
}

// CallTool parses the model's raw argument string, forwards the call
// through the broker's permission gate, and records the outcome. Errors
// come back as payload content for the model, never as a Go error.
func (r *recordingToolRunner) CallTool(ctx context.Context, toolName, argsJSON string) (string, bool) {
	args, err := mcp.ParseToolArguments(argsJSON)
	if err != nil {
		args = map[string]any{"input": argsJSON}
	}

	result := r.deps.Broker.CallToolForAgent(ctx, r.agentName, toolName, args)

	r.state.AddMCPToolCall(r.agentName, toolName, args, result.Content)
	r.deps.Recorder.AddMCPToolCall(r.agentName, toolName, args, result.Content)

	return result.Content, result.IsError
}

// chatRequest builds the llm.ChatRequest for a harness round-trip,
// leaving Runner nil when tools are disabled so the typed-nil pointer
// never leaks into the interface field.
func chatRequest(agentName, system, user string, tools []models.ToolDefinition, runner *recordingToolRunner) llm.ChatRequest {
	req := llm.ChatRequest{
		AgentName: agentName,
		System:    system,
		User:      user,
		Tools:     tools,
	}
	if runner != nil {
		req.Runner = runner
	}
	return req
}
