package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// Harness carries the behavior shared by every agent: state validation,
// context assembly, the LLM round-trip with recorder bracketing, and
// output formatting. Concrete agents embed it and supply only their
// system prompt and output-field contract.
type Harness struct {
	name            string
	roleDescription string
}

// NewHarness creates the shared harness for an agent.
func NewHarness(name, roleDescription string) Harness {
	return Harness{name: name, roleDescription: roleDescription}
}

// Name returns the agent's node name.
func (h *Harness) Name() string { return h.name }

// RoleDescription returns the agent's one-line role summary.
func (h *Harness) RoleDescription() string { return h.roleDescription }

// ValidateState checks the preconditions common to all agents. A failed
// validation records an error and the caller returns without an LLM call.
func (h *Harness) ValidateState(state *models.AnalysisState) bool {
	if state.UserQuery == "" {
		state.AddError(h.name + ": missing user query")
		return false
	}
	return true
}

// BuildContextPrompt assembles the shared context block in fixed order:
// timestamp, user query, every non-empty report, the debate summary, the
// research manager's plan, the trader's plan. Absent sections collapse to
// nothing — no placeholders.
func (h *Harness) BuildContextPrompt(state *models.AnalysisState, deps *Deps) string {
	now := deps.clock()()

	parts := []string{
		fmt.Sprintf("Current date and time: %s (%s)",
			now.Format("2006-01-02 15:04:05"), now.Weekday()),
		"User query: " + state.UserQuery,
	}

	for _, report := range state.AllReports() {
		if strings.TrimSpace(report.Content) != "" {
			parts = append(parts, report.Name+": "+report.Content)
		}
	}

	if summary := state.DebateSummary(); summary != "" {
		parts = append(parts, "Debate history:\n"+summary)
	}
	if state.InvestmentPlan != "" {
		parts = append(parts, "Research manager decision: "+state.InvestmentPlan)
	}
	if state.TraderInvestmentPlan != "" {
		parts = append(parts, "Trader plan: "+state.TraderInvestmentPlan)
	}

	return strings.Join(parts, "\n\n")
}

// CallWithContext runs one recorded LLM round-trip for the agent:
// StartAgent → AddAgentAction → chat (tool-enabled when the broker
// permits this agent) → CompleteAgent. Tool invocations inside the chat
// are recorded into both the state and the session log by the runner.
// The returned mcpUsed flag reports whether tools were available, not
// whether the model chose to call any.
func (h *Harness) CallWithContext(ctx context.Context, state *models.AnalysisState, deps *Deps, systemPrompt, userMessage string) (string, bool, error) {
	contextPrompt := h.BuildContextPrompt(state, deps)
	fullSystem := systemPrompt + "\n\n" + contextPrompt

	tools := deps.Broker.ToolsForAgent(h.name)
	mcpUsed := len(tools) > 0

	deps.Recorder.StartAgent(h.name, "analysis", systemPrompt, userMessage, contextPrompt)

	action := "llm_call"
	if mcpUsed {
		action = "llm_call_with_tools"
	}
	deps.Recorder.AddAgentAction(h.name, action, map[string]any{
		"mcp_enabled": mcpUsed,
		"tool_count":  len(tools),
	})

	var runner *recordingToolRunner
	if mcpUsed {
		runner = newRecordingToolRunner(h.name, state, deps)
	}

	req := chatRequest(h.name, fullSystem, userMessage, tools, runner)
	result, err := deps.LLM.Chat(ctx, req)
	if result != nil {
		for _, w := range result.Warnings {
			state.AddWarning(h.name + ": " + w)
			deps.Recorder.AddWarning(w, h.name)
		}
	}
	if err != nil {
		errMsg := fmt.Sprintf("LLM call failed: %s", err)
		slog.Error("Agent LLM call failed", "agent", h.name, "error", err)
		state.AddError(h.name + ": " + errMsg)
		deps.Recorder.AddError(errMsg, h.name)
		deps.Recorder.CompleteAgent(h.name, errMsg, false)
		return "", mcpUsed, err
	}

	state.AddAgentExecution(h.name, action, result.Content, mcpUsed)
	deps.Recorder.CompleteAgent(h.name, result.Content, true)
	return result.Content, mcpUsed, nil
}

// FormatOutput wraps an agent's raw result in the report header used by
// every persisted report field.
func (h *Harness) FormatOutput(content string, state *models.AnalysisState, deps *Deps) string {
	mcpStatus := "disabled"
	if deps.Broker.IsAgentEnabled(h.name) {
		mcpStatus = "enabled"
	}
	return fmt.Sprintf(`=== %s analysis report ===
time: %s
user query: %s
MCP tools: %s

%s

=== end of report ===`,
		h.name,
		deps.clock()().Format("20060102 15:04:05"),
		state.UserQuery,
		mcpStatus,
		content)
}

// WriteReport stores a formatted result into the agent's designated
// output field, enforcing the single-author invariant.
func (h *Harness) WriteReport(state *models.AnalysisState, field, value string) {
	if err := state.SetReport(field, value); err != nil {
		msg := fmt.Sprintf("%s: %s", h.name, err)
		state.AddError(msg)
		slog.Error("Report write rejected", "agent", h.name, "field", field, "error", err)
	}
}
