package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangxiangdebizi/tradingagents/pkg/agent"
	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/llm"
	"github.com/guangxiangdebizi/tradingagents/pkg/mcp"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
	"github.com/guangxiangdebizi/tradingagents/pkg/session"
)

var testClock = func() time.Time {
	return time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC)
}

// echoLLM answers "OK from <agent>" and optionally cancels the run after
// a given agent completes, or records the order agents were called in.
type echoLLM struct {
	mu     sync.Mutex
	order  []string
	cancel context.CancelFunc
	// cancelAfter triggers cancel once this agent has answered.
	cancelAfter string
}

func (e *echoLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResult, error) {
	e.mu.Lock()
	e.order = append(e.order, req.AgentName)
	e.mu.Unlock()
	if e.cancel != nil && req.AgentName == e.cancelAfter {
		e.cancel()
	}
	return &llm.ChatResult{Content: "OK from " + req.AgentName}, nil
}

func (e *echoLLM) callOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func newTestEngine(t *testing.T, client llm.Client, maxDebate, maxRisk int) (*Engine, *agent.Deps) {
	t.Helper()

	recorder, err := session.New(session.Options{DumpDir: t.TempDir(), Clock: testClock})
	require.NoError(t, err)

	broker := mcp.NewBroker(config.NewMCPServerRegistry(nil), nil)
	require.NoError(t, broker.Initialize(context.Background()))
	t.Cleanup(func() { _ = broker.Close() })

	deps := &agent.Deps{
		Recorder: recorder,
		Broker:   broker,
		LLM:      client,
		Clock:    testClock,
	}
	return NewEngine(agent.Catalog(), deps, maxDebate, maxRisk), deps
}

func newRunState(query string) *models.AnalysisState {
	state := models.NewAnalysisState(query)
	state.SetClock(testClock)
	return state
}

func TestNextAfterResearcher(t *testing.T) {
	tests := []struct {
		count, maxRounds int
		want             string
	}{
		// Odd count: the bull just spoke, bear answers.
		{1, 3, agent.NameBearResearcher},
		{2, 3, agent.NameBullResearcher},
		{3, 3, agent.NameResearchManager},
		// Bound 0: the opening bull turn already happened, debate is over.
		{1, 0, agent.NameResearchManager},
		{1, 1, agent.NameResearchManager},
		{1, 2, agent.NameBearResearcher},
		{2, 2, agent.NameResearchManager},
		{4, 5, agent.NameBullResearcher},
		{5, 5, agent.NameResearchManager},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, nextAfterResearcher(tt.count, tt.maxRounds),
			"count=%d max=%d", tt.count, tt.maxRounds)
	}
}

func TestNextAfterRiskAnalyst(t *testing.T) {
	tests := []struct {
		count, maxRounds int
		want             string
	}{
		{1, 2, agent.NameSafeRiskAnalyst},
		{2, 3, agent.NameNeutralRiskAnalyst},
		{3, 4, agent.NameAggressiveRiskAnalyst},
		{4, 5, agent.NameSafeRiskAnalyst},
		{1, 1, agent.NameRiskManager},
		{2, 2, agent.NameRiskManager},
		{3, 2, agent.NameRiskManager},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, nextAfterRiskAnalyst(tt.count, tt.maxRounds),
			"count=%d max=%d", tt.count, tt.maxRounds)
	}
}

func TestEngine_HappyPath(t *testing.T) {
	client := &echoLLM{}
	engine, deps := newTestEngine(t, client, 3, 2)
	state := newRunState("analyze AAPL")

	require.NoError(t, engine.Run(context.Background(), state))

	// All four analyst reports carry the harness header and the echo.
	for _, report := range []string{
		state.MarketReport, state.SentimentReport, state.NewsReport, state.FundamentalsReport,
	} {
		assert.Contains(t, report, "analysis report ===")
		assert.Contains(t, report, "OK from ")
	}

	assert.Equal(t, 3, state.InvestmentDebateState.Count)
	assert.Equal(t, 2, state.RiskDebateState.Count)
	assert.Contains(t, state.InvestmentPlan, "OK from research_manager")
	assert.Contains(t, state.TraderInvestmentPlan, "OK from trader")
	assert.Contains(t, state.FinalTradeDecision, "OK from risk_manager")
	assert.Empty(t, state.Errors)

	// Execution order: analysts, bull/bear alternation, managers, risk
	// round-robin, final decision.
	assert.Equal(t, []string{
		agent.NameMarketAnalyst,
		agent.NameSentimentAnalyst,
		agent.NameNewsAnalyst,
		agent.NameFundamentalsAnalyst,
		agent.NameBullResearcher,
		agent.NameBearResearcher,
		agent.NameBullResearcher,
		agent.NameResearchManager,
		agent.NameTrader,
		agent.NameAggressiveRiskAnalyst,
		agent.NameSafeRiskAnalyst,
		agent.NameRiskManager,
	}, client.callOrder())

	// Session log: a start/complete pair for every scheduled agent, and
	// all five stages.
	doc := deps.Recorder.Snapshot()
	require.Len(t, doc.Agents, 12)
	for _, rec := range doc.Agents {
		assert.Equal(t, "completed", rec.Status, rec.AgentName)
		assert.NotEmpty(t, rec.EndTime, rec.AgentName)
	}
	stageNames := make([]string, len(doc.Stages))
	for i, s := range doc.Stages {
		stageNames[i] = s.StageName
	}
	assert.Equal(t, []string{
		StageAnalystTeam, StageInvestmentDebate, StageManagementDecision,
		StageRiskDebate, StageFinalDecision,
	}, stageNames)
}

func TestEngine_DebateBounds(t *testing.T) {
	tests := []struct {
		name              string
		maxDebate         int
		wantCount         int
		wantOrderFragment []string
	}{
		{
			// The routing rule only fires after a researcher turn, so the
			// opening bull turn always runs.
			name:              "zero rounds still runs bull once",
			maxDebate:         0,
			wantCount:         1,
			wantOrderFragment: []string{agent.NameBullResearcher, agent.NameResearchManager},
		},
		{
			name:              "one round",
			maxDebate:         1,
			wantCount:         1,
			wantOrderFragment: []string{agent.NameBullResearcher, agent.NameResearchManager},
		},
		{
			name:      "two rounds",
			maxDebate: 2,
			wantCount: 2,
			wantOrderFragment: []string{
				agent.NameBullResearcher, agent.NameBearResearcher, agent.NameResearchManager,
			},
		},
		{
			name:      "three rounds",
			maxDebate: 3,
			wantCount: 3,
			wantOrderFragment: []string{
				agent.NameBullResearcher, agent.NameBearResearcher,
				agent.NameBullResearcher, agent.NameResearchManager,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &echoLLM{}
			engine, _ := newTestEngine(t, client, tt.maxDebate, 1)
			state := newRunState("analyze AAPL")

			require.NoError(t, engine.Run(context.Background(), state))
			assert.Equal(t, tt.wantCount, state.InvestmentDebateState.Count)

			order := client.callOrder()
			// The fragment starts right after the four analysts.
			require.GreaterOrEqual(t, len(order), 4+len(tt.wantOrderFragment))
			assert.Equal(t, tt.wantOrderFragment, order[4:4+len(tt.wantOrderFragment)])
		})
	}
}

func TestEngine_RiskDebateBounds(t *testing.T) {
	client := &echoLLM{}
	engine, _ := newTestEngine(t, client, 1, 1)
	state := newRunState("analyze AAPL")

	require.NoError(t, engine.Run(context.Background(), state))

	assert.Equal(t, 1, state.RiskDebateState.Count)
	order := client.callOrder()
	// aggressive goes straight to risk_manager with bound 1.
	assert.Equal(t, agent.NameAggressiveRiskAnalyst, order[len(order)-2])
	assert.Equal(t, agent.NameRiskManager, order[len(order)-1])
	assert.NotContains(t, order, agent.NameSafeRiskAnalyst)
	assert.NotContains(t, order, agent.NameNeutralRiskAnalyst)
}

func TestEngine_DebateTranscriptMarkers(t *testing.T) {
	client := &echoLLM{}
	engine, _ := newTestEngine(t, client, 3, 1)
	state := newRunState("analyze AAPL")

	require.NoError(t, engine.Run(context.Background(), state))

	history := state.InvestmentDebateState.History
	assert.Contains(t, history, "【bull_researcher round 1】")
	assert.Contains(t, history, "【bear_researcher round 2】")
	assert.Contains(t, history, "【bull_researcher round 3】")
	assert.NotContains(t, history, "round 4")
}

func TestEngine_CancellationAfterFirstAnalyst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &echoLLM{cancel: cancel, cancelAfter: agent.NameMarketAnalyst}
	engine, deps := newTestEngine(t, client, 3, 2)
	state := newRunState("analyze AAPL")

	require.NoError(t, engine.Run(ctx, state))

	// The completed node's write stands; everything downstream is empty.
	assert.NotEmpty(t, state.MarketReport)
	assert.Empty(t, state.SentimentReport)
	assert.Empty(t, state.NewsReport)
	assert.Empty(t, state.FundamentalsReport)
	assert.Empty(t, state.FinalTradeDecision)
	assert.Equal(t, []string{agent.NameMarketAnalyst}, client.callOrder())

	assert.Equal(t, models.SessionStatusCancelled, deps.Recorder.Status())
	require.NotEmpty(t, state.Warnings)
	assert.Contains(t, state.Warnings[0], "cancelled")
	doc := deps.Recorder.Snapshot()
	require.NotEmpty(t, doc.Warnings)
}

func TestEngine_CancellationMidDebate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &echoLLM{cancel: cancel, cancelAfter: agent.NameBearResearcher}
	engine, deps := newTestEngine(t, client, 3, 2)
	state := newRunState("analyze AAPL")

	require.NoError(t, engine.Run(ctx, state))

	assert.Equal(t, models.SessionStatusCancelled, deps.Recorder.Status())
	assert.Equal(t, 2, state.InvestmentDebateState.Count)
	assert.Empty(t, state.InvestmentPlan)
	assert.Empty(t, state.FinalTradeDecision)
}

func TestEngine_Deterministic(t *testing.T) {
	run := func() *models.AnalysisState {
		engine, _ := newTestEngine(t, &echoLLM{}, 3, 2)
		state := newRunState("analyze AAPL")
		require.NoError(t, engine.Run(context.Background(), state))
		return state
	}

	first, err := json.Marshal(run())
	require.NoError(t, err)
	second, err := json.Marshal(run())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestEngine_UnknownNode(t *testing.T) {
	client := &echoLLM{}
	engine, _ := newTestEngine(t, client, 1, 1)
	// An engine wired with an empty catalog cannot resolve the entry node.
	engine.agents = map[string]agent.Agent{}

	err := engine.Run(context.Background(), newRunState("analyze AAPL"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent registered")
}
