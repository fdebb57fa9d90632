package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/llm"
	"github.com/guangxiangdebizi/tradingagents/pkg/mcp"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
	"github.com/guangxiangdebizi/tradingagents/pkg/session"
)

// stubLLM is a deterministic llm.Client: it answers "OK from <agent>"
// (or a scripted response), or fails with a fixed error.
type stubLLM struct {
	err      error
	respond  func(req llm.ChatRequest) string
	requests []llm.ChatRequest
}

func (s *stubLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return &llm.ChatResult{}, s.err
	}
	if s.respond != nil {
		return &llm.ChatResult{Content: s.respond(req)}, nil
	}
	return &llm.ChatResult{Content: "OK from " + req.AgentName}, nil
}

var testClock = func() time.Time {
	return time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC)
}

// newTestDeps builds Deps over a temp-dir recorder, a serverless broker,
// and the given stub LLM.
func newTestDeps(t *testing.T, client llm.Client, permissions map[string]bool) *Deps {
	t.Helper()

	recorder, err := session.New(session.Options{DumpDir: t.TempDir(), Clock: testClock})
	require.NoError(t, err)

	broker := mcp.NewBroker(config.NewMCPServerRegistry(nil), permissions)
	require.NoError(t, broker.Initialize(context.Background()))
	t.Cleanup(func() { _ = broker.Close() })

	return &Deps{
		Recorder: recorder,
		Broker:   broker,
		LLM:      client,
		Clock:    testClock,
	}
}

func newTestState(query string) *models.AnalysisState {
	state := models.NewAnalysisState(query)
	state.SetClock(testClock)
	return state
}

func TestHarness_BuildContextPrompt_Order(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{}, nil)
	state := newTestState("analyze AAPL")
	state.MarketReport = "market is up"
	state.FundamentalsReport = "strong balance sheet"
	state.InvestmentDebateState.History = "bull vs bear"
	state.InvestmentPlan = "buy"
	state.TraderInvestmentPlan = "buy 100 at open"

	h := NewHarness("trader", "test")
	prompt := h.BuildContextPrompt(state, deps)

	// Fixed section order: timestamp, query, reports, debate, plans.
	idx := func(sub string) int { return strings.Index(prompt, sub) }
	assert.Contains(t, prompt, "Current date and time: 2026-01-31 15:00:00 (Saturday)")
	require.Greater(t, idx("User query: analyze AAPL"), idx("Current date and time"))
	require.Greater(t, idx("market_report: market is up"), idx("User query"))
	require.Greater(t, idx("fundamentals_report: strong balance sheet"), idx("market_report"))
	require.Greater(t, idx("Debate history:"), idx("fundamentals_report"))
	require.Greater(t, idx("Research manager decision: buy"), idx("Debate history:"))
	require.Greater(t, idx("Trader plan: buy 100 at open"), idx("Research manager decision"))

	// Empty sections collapse: no sentiment/news placeholders.
	assert.NotContains(t, prompt, "sentiment_report")
	assert.NotContains(t, prompt, "news_report")
}

func TestHarness_ValidateState(t *testing.T) {
	h := NewHarness("market_analyst", "test")

	state := newTestState("")
	assert.False(t, h.ValidateState(state))
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0], "missing user query")

	assert.True(t, h.ValidateState(newTestState("analyze AAPL")))
}

func TestAnalyst_Process_WritesFormattedReport(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{}, nil)
	state := newTestState("analyze AAPL")

	NewMarketAnalyst().Process(context.Background(), state, deps)

	assert.Contains(t, state.MarketReport, "=== market_analyst analysis report ===")
	assert.Contains(t, state.MarketReport, "OK from market_analyst")
	assert.Contains(t, state.MarketReport, "MCP tools: disabled")
	assert.Contains(t, state.MarketReport, "user query: analyze AAPL")
	assert.Empty(t, state.Errors)

	require.Len(t, state.AgentExecutionHistory, 1)
	exec := state.AgentExecutionHistory[0]
	assert.Equal(t, "market_analyst", exec.AgentName)
	assert.Equal(t, "llm_call", exec.Action)
	assert.False(t, exec.MCPUsed)

	// Session log has the start/complete pair.
	doc := deps.Recorder.Snapshot()
	require.Len(t, doc.Agents, 1)
	assert.Equal(t, "completed", doc.Agents[0].Status)
	assert.Equal(t, "OK from market_analyst", doc.Agents[0].Result)
}

func TestAnalyst_Process_ErrorCapture(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{err: errors.New("model unavailable")}, nil)
	state := newTestState("analyze AAPL")

	NewNewsAnalyst().Process(context.Background(), state, deps)

	// The field holds a readable error message and the run can proceed.
	assert.True(t, strings.HasPrefix(state.NewsReport, "news analysis error:"), state.NewsReport)
	assert.Contains(t, state.NewsReport, "model unavailable")

	require.NotEmpty(t, state.Errors)
	joined := strings.Join(state.Errors, "\n")
	assert.Contains(t, joined, "news_analyst")

	doc := deps.Recorder.Snapshot()
	require.Len(t, doc.Agents, 1)
	assert.Equal(t, "failed", doc.Agents[0].Status)
	require.NotEmpty(t, doc.Errors)
}

func TestAnalyst_Process_EmptyQuerySkipsLLM(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("")

	NewMarketAnalyst().Process(context.Background(), state, deps)

	assert.Empty(t, client.requests)
	assert.Empty(t, state.MarketReport)
	assert.NotEmpty(t, state.Errors)
}

func TestBullResearcher_OpeningTurn(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{}, nil)
	state := newTestState("analyze AAPL")

	NewBullResearcher().Process(context.Background(), state, deps)

	debate := state.InvestmentDebateState
	assert.Equal(t, 1, debate.Count)
	assert.Contains(t, debate.History, "【bull_researcher round 1】")
	assert.Contains(t, debate.BullHistory, "round 1: OK from bull_researcher")
	assert.Empty(t, debate.BearHistory)
	assert.Equal(t, "OK from bull_researcher", debate.CurrentResponse)
}

func TestBullResearcher_RebuttalReferencesBear(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")
	state.InvestmentDebateState = models.InvestDebateState{
		History:         "\n\n【bear_researcher round 1】:\nprior bear case",
		BearHistory:     "\n\nround 1: prior bear case",
		CurrentResponse: "prior bear case",
		Count:           1,
	}

	NewBullResearcher().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "prior bear case")
	assert.Contains(t, client.requests[0].User, "Rebut")

	debate := state.InvestmentDebateState
	assert.Equal(t, 2, debate.Count)
	assert.Contains(t, debate.History, "【bull_researcher round 2】")
	assert.Contains(t, debate.History, "【bear_researcher round 1】")
}

func TestBearResearcher_OpeningWithoutBullInput(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")

	NewBearResearcher().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	// No prior bull response: the bear runs an independent risk analysis.
	assert.NotContains(t, client.requests[0].User, "The bull researcher argued")
	assert.Equal(t, 1, state.InvestmentDebateState.Count)
	assert.Contains(t, state.InvestmentDebateState.BearHistory, "round 1")
}

func TestResearcher_ErrorLeavesDebateUntouched(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{err: errors.New("model unavailable")}, nil)
	state := newTestState("analyze AAPL")

	NewBullResearcher().Process(context.Background(), state, deps)

	assert.Equal(t, 0, state.InvestmentDebateState.Count)
	assert.Empty(t, state.InvestmentDebateState.History)
	assert.NotEmpty(t, state.Errors)
}

func TestResearchManager_WritesPlanFromDebate(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")
	state.InvestmentDebateState.History = "【bull_researcher round 1】: up"

	NewResearchManager().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "【bull_researcher round 1】: up")
	assert.Contains(t, client.requests[0].User, "buy / sell / hold")
	assert.Contains(t, state.InvestmentPlan, "OK from research_manager")
}

func TestTrader_ReadsInvestmentPlan(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")
	state.InvestmentPlan = "the manager says buy"

	NewTrader().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "the manager says buy")
	assert.Contains(t, state.TraderInvestmentPlan, "OK from trader")
}

func TestRiskAnalysts_RoundRobinState(t *testing.T) {
	deps := newTestDeps(t, &stubLLM{}, nil)
	state := newTestState("analyze AAPL")
	state.TraderInvestmentPlan = "buy 100"

	NewAggressiveRiskAnalyst().Process(context.Background(), state, deps)
	NewSafeRiskAnalyst().Process(context.Background(), state, deps)
	NewNeutralRiskAnalyst().Process(context.Background(), state, deps)

	debate := state.RiskDebateState
	assert.Equal(t, 3, debate.Count)
	assert.Contains(t, debate.History, "【aggressive_risk_analyst round 1】")
	assert.Contains(t, debate.History, "【safe_risk_analyst round 2】")
	assert.Contains(t, debate.History, "【neutral_risk_analyst round 3】")
	assert.Equal(t, "OK from aggressive_risk_analyst", debate.CurrentAggressiveResponse)
	assert.Equal(t, "OK from safe_risk_analyst", debate.CurrentSafeResponse)
	assert.Equal(t, "OK from neutral_risk_analyst", debate.CurrentNeutralResponse)
	assert.Contains(t, debate.AggressiveHistory, "round 1")
	assert.Contains(t, debate.SafeHistory, "round 2")
	assert.Contains(t, debate.NeutralHistory, "round 3")
}

func TestAggressiveRiskAnalyst_OpeningUsesTraderPlan(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")
	state.TraderInvestmentPlan = "buy 100 at open"

	NewAggressiveRiskAnalyst().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "buy 100 at open")
}

func TestRiskManager_WritesFinalDecision(t *testing.T) {
	client := &stubLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")
	state.TraderInvestmentPlan = "buy 100"
	state.RiskDebateState.History = "risk debate transcript"

	NewRiskManager().Process(context.Background(), state, deps)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].User, "risk debate transcript")
	assert.Contains(t, client.requests[0].User, "approve / approve with modifications / reject")
	assert.Contains(t, state.FinalTradeDecision, "OK from risk_manager")
}

func TestHarness_WriteReport_DoubleWriteRecorded(t *testing.T) {
	state := newTestState("q")
	h := NewHarness("market_analyst", "test")

	h.WriteReport(state, models.FieldMarketReport, "one")
	h.WriteReport(state, models.FieldMarketReport, "two")

	assert.Equal(t, "one", state.MarketReport)
	require.Len(t, state.Errors, 1)
	assert.Contains(t, state.Errors[0], "already written")
}

func TestCatalog_CoversAllNodes(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 12)
	for _, name := range config.AgentNames {
		a, ok := catalog[name]
		require.True(t, ok, "missing agent %s", name)
		assert.Equal(t, name, a.Name())
		assert.NotEmpty(t, a.RoleDescription())
	}
}

func TestHarness_WarningsFromChatSurfaceInState(t *testing.T) {
	client := &warningLLM{}
	deps := newTestDeps(t, client, nil)
	state := newTestState("analyze AAPL")

	NewMarketAnalyst().Process(context.Background(), state, deps)

	require.NotEmpty(t, state.Warnings)
	assert.Contains(t, state.Warnings[0], "iteration cap")
}

// warningLLM returns a result with a warning attached.
type warningLLM struct{}

func (w *warningLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	return &llm.ChatResult{
		Content:  fmt.Sprintf("OK from %s", req.AgentName),
		Warnings: []string{"iteration cap reached"},
	}, nil
}
