package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLM.BaseURL)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.InDelta(t, DefaultLLMTemperature, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, DefaultLLMMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, DefaultMaxDebateRounds, cfg.MaxDebateRounds)
	assert.Equal(t, DefaultMaxRiskDebateRounds, cfg.MaxRiskDebateRounds)
	assert.Equal(t, DefaultDumpDir, cfg.DumpDir)
	assert.Equal(t, DefaultMCPConfigPath, cfg.MCPConfigPath)
	assert.False(t, cfg.DebugMode)
	assert.False(t, cfg.VerboseLogging)

	// Every known agent has an entry, all disabled by default.
	assert.Len(t, cfg.AgentMCPEnabled, len(AgentNames))
	for name, enabled := range cfg.AgentMCPEnabled {
		assert.False(t, enabled, "agent %s should default to disabled", name)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("LLM_MODEL", "qwen-max")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("LLM_MAX_TOKENS", "2000")
	t.Setenv("MAX_DEBATE_ROUNDS", "5")
	t.Setenv("MAX_RISK_DEBATE_ROUNDS", "1")
	t.Setenv("DEBUG_MODE", "TRUE")
	t.Setenv("MARKET_ANALYST_MCP_ENABLED", "true")
	t.Setenv("RISK_MANAGER_MCP_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "qwen-max", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 5, cfg.MaxDebateRounds)
	assert.Equal(t, 1, cfg.MaxRiskDebateRounds)
	assert.True(t, cfg.DebugMode)
	assert.True(t, cfg.AgentMCPEnabled["market_analyst"])
	assert.False(t, cfg.AgentMCPEnabled["risk_manager"])
	assert.False(t, cfg.AgentMCPEnabled["trader"])
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_TEMPERATURE", "hot")
	t.Setenv("MAX_DEBATE_ROUNDS", "three")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, DefaultLLMTemperature, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, DefaultMaxDebateRounds, cfg.MaxDebateRounds)
}

func TestLoad_NegativeRoundsRejected(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("MAX_DEBATE_ROUNDS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_DEBATE_ROUNDS")
}

func TestPermissionEnvVar(t *testing.T) {
	assert.Equal(t, "MARKET_ANALYST_MCP_ENABLED", PermissionEnvVar("market_analyst"))
	assert.Equal(t, "AGGRESSIVE_RISK_ANALYST_MCP_ENABLED", PermissionEnvVar("aggressive_risk_analyst"))
}
