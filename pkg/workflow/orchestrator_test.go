package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM:                 config.LLMConfig{APIKey: "sk-test", Model: "gpt-4"},
		MaxDebateRounds:     2,
		MaxRiskDebateRounds: 1,
		AgentMCPEnabled:     map[string]bool{},
		DumpDir:             t.TempDir(),
		MCPConfigPath:       filepath.Join(t.TempDir(), "absent.json"),
	}
}

func TestOrchestrator_RunAnalysis_NoTools(t *testing.T) {
	cfg := testConfig(t)
	orch, err := New(cfg, WithLLMClient(&echoLLM{}), WithClock(testClock))
	require.NoError(t, err)

	state, recorder, err := orch.RunAnalysisRecorded(context.Background(), "analyze AAPL")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCompleted, recorder.Status())
	assert.Contains(t, state.FinalTradeDecision, "OK from risk_manager")
	assert.Empty(t, state.MCPToolCalls)

	doc := recorder.Snapshot()
	assert.Equal(t, "analyze AAPL", doc.UserQuery)
	assert.Empty(t, doc.MCPCalls)
	assert.Equal(t, true, doc.FinalResults["success"])
	assert.NotEmpty(t, doc.FinalResults["final_state"])
}

func TestOrchestrator_RunAnalysis_UnreachableMCPServer(t *testing.T) {
	cfg := testConfig(t)
	mcpConfig := filepath.Join(t.TempDir(), "mcp_config.json")
	require.NoError(t, os.WriteFile(mcpConfig, []byte(`{
		"servers": {"dead-server": {"url": "http://127.0.0.1:1/sse", "transport": "http", "timeout": 1}}
	}`), 0o644))
	cfg.MCPConfigPath = mcpConfig
	cfg.AgentMCPEnabled = map[string]bool{"market_analyst": true}

	orch, err := New(cfg, WithLLMClient(&echoLLM{}), WithClock(testClock))
	require.NoError(t, err)

	state, recorder, err := orch.RunAnalysisRecorded(context.Background(), "analyze AAPL")
	require.NoError(t, err)

	// Transport failure degrades to no-tool mode: the run completes with
	// a warning trail and no tool calls.
	assert.Equal(t, models.SessionStatusCompleted, recorder.Status())
	assert.Empty(t, state.MCPToolCalls)
	require.NotEmpty(t, state.Warnings)
	found := false
	for _, w := range state.Warnings {
		if strings.Contains(w, "dead-server") {
			found = true
		}
	}
	assert.True(t, found, "expected a transport-failure warning naming the server: %v", state.Warnings)
	assert.Empty(t, recorder.Snapshot().MCPCalls)
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	orch, err := New(testConfig(t), WithLLMClient(&echoLLM{}))
	require.NoError(t, err)

	_, err = orch.RunAnalysis(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestOrchestrator_New_MalformedMCPConfig(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"servers": `), 0o644))
	cfg.MCPConfigPath = path

	_, err := New(cfg)
	require.Error(t, err)
}

func TestOrchestrator_Start_Async(t *testing.T) {
	orch, err := New(testConfig(t), WithLLMClient(&echoLLM{}), WithClock(testClock))
	require.NoError(t, err)

	recorder, done, err := orch.Start(context.Background(), "analyze AAPL")
	require.NoError(t, err)
	assert.NotEmpty(t, recorder.SessionID())

	select {
	case result := <-done:
		require.NoError(t, result.Err)
		assert.Contains(t, result.State.FinalTradeDecision, "OK from risk_manager")
	case <-time.After(10 * time.Second):
		t.Fatal("analysis did not finish")
	}
	assert.Equal(t, models.SessionStatusCompleted, recorder.Status())
}

func TestOrchestrator_RunAnalysis_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &echoLLM{cancel: cancel, cancelAfter: "market_analyst"}
	orch, err := New(testConfig(t), WithLLMClient(client), WithClock(testClock))
	require.NoError(t, err)

	state, recorder, err := orch.RunAnalysisRecorded(ctx, "analyze AAPL")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCancelled, recorder.Status())
	assert.NotEmpty(t, state.MarketReport)
	assert.Empty(t, state.FinalTradeDecision)
	// No final results on a cancelled run.
	assert.Empty(t, recorder.Snapshot().FinalResults)
}
