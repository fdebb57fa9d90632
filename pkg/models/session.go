package models

// SessionStatus is the lifecycle state of a recorded session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// rank orders statuses so transitions only move forward. The three
// terminal statuses share a rank: once reached, no further transition
// is accepted.
func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusActive:
		return 0
	case SessionStatusRunning:
		return 1
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	if s.rank() == 2 {
		return false
	}
	return next.rank() > s.rank()
}

// StageRecord is one workflow stage entry in the session document.
type StageRecord struct {
	StageName   string `json:"stage_name"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
}

// AgentRecord is one agent run in the session document. StartAgent
// appends a record with status "running"; CompleteAgent fills in the
// result, end time, and terminal status.
type AgentRecord struct {
	AgentName    string `json:"agent_name"`
	Action       string `json:"action"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	Status       string `json:"status"`
	Result       string `json:"result"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	Context      string `json:"context"`
}

// ActionRecord is a fine-grained agent action entry.
type ActionRecord struct {
	AgentName string         `json:"agent_name"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// MCPCallRecord is one MCP tool invocation entry.
type MCPCallRecord struct {
	AgentName  string         `json:"agent_name"`
	ToolName   string         `json:"tool_name"`
	ToolArgs   map[string]any `json:"tool_args"`
	ToolResult string         `json:"tool_result"`
	Timestamp  string         `json:"timestamp"`
}

// IssueRecord is an error or warning entry attributed to an agent.
type IssueRecord struct {
	Message   string `json:"message"`
	AgentName string `json:"agent_name"`
	Timestamp string `json:"timestamp"`
}

// SessionDocument is the full on-disk session log. The recorder owns one
// document per run and rewrites the whole file on every mutation so
// readers always observe a consistent snapshot.
type SessionDocument struct {
	SessionID    string          `json:"session_id"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	Status       SessionStatus   `json:"status"`
	UserQuery    string          `json:"user_query"`
	Stages       []StageRecord   `json:"stages"`
	Agents       []AgentRecord   `json:"agents"`
	Actions      []ActionRecord  `json:"actions"`
	MCPCalls     []MCPCallRecord `json:"mcp_calls"`
	Errors       []IssueRecord   `json:"errors"`
	Warnings     []IssueRecord   `json:"warnings"`
	FinalResults map[string]any  `json:"final_results"`
}
