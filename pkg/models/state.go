// Package models defines the data types threaded through the analysis
// workflow: the shared analysis state, debate substates, conversation
// messages, and the on-disk session document.
package models

import (
	"fmt"
	"time"
)

// InvestDebateState tracks the bull/bear researcher debate.
// The full transcript accumulates in History with per-round markers;
// each side also keeps its own history and the last speaker's text is
// mirrored into CurrentResponse for the opponent's next turn.
type InvestDebateState struct {
	History         string `json:"history"`
	BullHistory     string `json:"bull_history"`
	BearHistory     string `json:"bear_history"`
	CurrentResponse string `json:"current_response"`
	Count           int    `json:"count"`
}

// RiskDebateState tracks the three-way aggressive/safe/neutral risk debate.
type RiskDebateState struct {
	History                   string `json:"history"`
	AggressiveHistory         string `json:"aggressive_history"`
	SafeHistory               string `json:"safe_history"`
	NeutralHistory            string `json:"neutral_history"`
	CurrentAggressiveResponse string `json:"current_aggressive_response"`
	CurrentSafeResponse       string `json:"current_safe_response"`
	CurrentNeutralResponse    string `json:"current_neutral_response"`
	Count                     int    `json:"count"`
}

// AgentExecution is one entry in the state's execution history.
type AgentExecution struct {
	AgentName string `json:"agent_name"`
	Action    string `json:"action"`
	Result    string `json:"result"`
	MCPUsed   bool   `json:"mcp_used"`
	Timestamp string `json:"timestamp"`
}

// MCPToolCall is one entry in the state's tool-call history.
type MCPToolCall struct {
	AgentName  string         `json:"agent_name"`
	ToolName   string         `json:"tool_name"`
	ToolArgs   map[string]any `json:"tool_args"`
	ToolResult string         `json:"tool_result"`
	Timestamp  string         `json:"timestamp"`
}

// AnalysisState is the single mutable record carried along the workflow
// graph. Each report field is written by exactly one agent and becomes
// read-only once non-empty; writes go through SetReport so the invariant
// is enforced rather than assumed.
type AnalysisState struct {
	UserQuery string `json:"user_query"`

	// Analyst reports. CompanyOverview/Shareholder/Product have no node in
	// the base graph but are part of the state schema so extended catalogs
	// and the monitoring API share one shape.
	CompanyOverviewReport string `json:"company_overview_report"`
	MarketReport          string `json:"market_report"`
	SentimentReport       string `json:"sentiment_report"`
	NewsReport            string `json:"news_report"`
	FundamentalsReport    string `json:"fundamentals_report"`
	ShareholderReport     string `json:"shareholder_report"`
	ProductReport         string `json:"product_report"`

	InvestmentDebateState InvestDebateState `json:"investment_debate_state"`
	InvestmentPlan        string            `json:"investment_plan"`

	TraderInvestmentPlan string `json:"trader_investment_plan"`

	RiskDebateState    RiskDebateState `json:"risk_debate_state"`
	FinalTradeDecision string          `json:"final_trade_decision"`

	AgentExecutionHistory []AgentExecution `json:"agent_execution_history"`
	MCPToolCalls          []MCPToolCall    `json:"mcp_tool_calls"`
	Errors                []string         `json:"errors"`
	Warnings              []string         `json:"warnings"`

	// now stamps observability entries. Injectable so engine tests can pin
	// the clock; defaults to time.Now via Clock().
	now func() time.Time
}

// Report field names, used by SetReport/Report and the agent catalog to
// declare each agent's single output field.
const (
	FieldCompanyOverviewReport = "company_overview_report"
	FieldMarketReport          = "market_report"
	FieldSentimentReport       = "sentiment_report"
	FieldNewsReport            = "news_report"
	FieldFundamentalsReport    = "fundamentals_report"
	FieldShareholderReport     = "shareholder_report"
	FieldProductReport         = "product_report"
	FieldInvestmentPlan        = "investment_plan"
	FieldTraderInvestmentPlan  = "trader_investment_plan"
	FieldFinalTradeDecision    = "final_trade_decision"
)

// NewAnalysisState creates an empty state for the given query.
func NewAnalysisState(userQuery string) *AnalysisState {
	return &AnalysisState{UserQuery: userQuery}
}

// SetClock overrides the timestamp source for observability entries.
// A nil clock restores time.Now.
func (s *AnalysisState) SetClock(clock func() time.Time) {
	s.now = clock
}

// Clock returns the state's timestamp source.
func (s *AnalysisState) Clock() func() time.Time {
	if s.now == nil {
		return time.Now
	}
	return s.now
}

func (s *AnalysisState) timestamp() string {
	return s.Clock()().Format("2006-01-02 15:04:05")
}

func (s *AnalysisState) reportSlot(field string) (*string, error) {
	switch field {
	case FieldCompanyOverviewReport:
		return &s.CompanyOverviewReport, nil
	case FieldMarketReport:
		return &s.MarketReport, nil
	case FieldSentimentReport:
		return &s.SentimentReport, nil
	case FieldNewsReport:
		return &s.NewsReport, nil
	case FieldFundamentalsReport:
		return &s.FundamentalsReport, nil
	case FieldShareholderReport:
		return &s.ShareholderReport, nil
	case FieldProductReport:
		return &s.ProductReport, nil
	case FieldInvestmentPlan:
		return &s.InvestmentPlan, nil
	case FieldTraderInvestmentPlan:
		return &s.TraderInvestmentPlan, nil
	case FieldFinalTradeDecision:
		return &s.FinalTradeDecision, nil
	default:
		return nil, fmt.Errorf("unknown report field %q", field)
	}
}

// SetReport writes an agent's output field. Each field is single-author:
// overwriting a non-empty field is an invariant violation and fails.
func (s *AnalysisState) SetReport(field, value string) error {
	slot, err := s.reportSlot(field)
	if err != nil {
		return err
	}
	if *slot != "" {
		return fmt.Errorf("report field %q already written", field)
	}
	*slot = value
	return nil
}

// Report reads an output field by name.
func (s *AnalysisState) Report(field string) (string, error) {
	slot, err := s.reportSlot(field)
	if err != nil {
		return "", err
	}
	return *slot, nil
}

// AddAgentExecution appends an execution record.
func (s *AnalysisState) AddAgentExecution(agentName, action, result string, mcpUsed bool) {
	s.AgentExecutionHistory = append(s.AgentExecutionHistory, AgentExecution{
		AgentName: agentName,
		Action:    action,
		Result:    result,
		MCPUsed:   mcpUsed,
		Timestamp: s.timestamp(),
	})
}

// AddMCPToolCall appends a tool-call record.
func (s *AnalysisState) AddMCPToolCall(agentName, toolName string, toolArgs map[string]any, toolResult string) {
	s.MCPToolCalls = append(s.MCPToolCalls, MCPToolCall{
		AgentName:  agentName,
		ToolName:   toolName,
		ToolArgs:   toolArgs,
		ToolResult: toolResult,
		Timestamp:  s.timestamp(),
	})
}

// AddError appends an error message.
func (s *AnalysisState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// AddWarning appends a warning message.
func (s *AnalysisState) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// AllReports returns the analyst report fields in declaration order.
// Used by the harness to assemble context prompts deterministically.
func (s *AnalysisState) AllReports() []struct{ Name, Content string } {
	return []struct{ Name, Content string }{
		{FieldCompanyOverviewReport, s.CompanyOverviewReport},
		{FieldMarketReport, s.MarketReport},
		{FieldSentimentReport, s.SentimentReport},
		{FieldNewsReport, s.NewsReport},
		{FieldFundamentalsReport, s.FundamentalsReport},
		{FieldShareholderReport, s.ShareholderReport},
		{FieldProductReport, s.ProductReport},
	}
}

// DebateSummary concatenates the non-empty debate transcripts for context
// assembly. Empty when neither debate has started.
func (s *AnalysisState) DebateSummary() string {
	var summary string
	if s.InvestmentDebateState.History != "" {
		summary += "Investment debate history:\n" + s.InvestmentDebateState.History + "\n\n"
	}
	if s.RiskDebateState.History != "" {
		summary += "Risk management debate history:\n" + s.RiskDebateState.History + "\n\n"
	}
	if summary == "" {
		return ""
	}
	return summary[:len(summary)-2]
}
