// Package config loads the runtime configuration: LLM settings, workflow
// bounds, and per-agent MCP permissions from environment variables, and
// the MCP server topology from a JSON config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultLLMBaseURL          = "https://api.openai.com/v1"
	DefaultLLMModel            = "gpt-4"
	DefaultLLMTemperature      = 0.1
	DefaultLLMMaxTokens        = 4000
	DefaultMaxDebateRounds     = 3
	DefaultMaxRiskDebateRounds = 2
	DefaultDumpDir             = "./dump"
	DefaultSessionRetention    = 30 // days
	DefaultMCPConfigPath       = "mcp_config.json"
	DefaultHTTPPort            = "8080"
)

// LLMConfig holds the OpenAI-compatible endpoint settings.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Config is the full runtime configuration for one process.
type Config struct {
	LLM LLMConfig

	MaxDebateRounds     int
	MaxRiskDebateRounds int

	// AgentMCPEnabled maps agent name → MCP permission. Agent-level, not
	// tool-level: a permitted agent sees the entire tool catalog.
	AgentMCPEnabled map[string]bool

	DebugMode      bool
	VerboseLogging bool

	DumpDir       string
	MCPConfigPath string
	HTTPPort      string

	// SessionRetentionDays bounds how long session files are kept by the
	// retention sweeper in serve mode. Zero disables sweeping.
	SessionRetentionDays int
}

// AgentNames lists every agent the workflow schedules, in graph order.
// Permission env vars are derived from these names.
var AgentNames = []string{
	"market_analyst",
	"sentiment_analyst",
	"news_analyst",
	"fundamentals_analyst",
	"bull_researcher",
	"bear_researcher",
	"research_manager",
	"trader",
	"aggressive_risk_analyst",
	"safe_risk_analyst",
	"neutral_risk_analyst",
	"risk_manager",
}

// Load builds a Config from the process environment. The only hard
// requirement is LLM_API_KEY; everything else has a default.
func Load() (*Config, error) {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &Config{
		LLM: LLMConfig{
			APIKey:      apiKey,
			BaseURL:     getEnv("LLM_BASE_URL", DefaultLLMBaseURL),
			Model:       getEnv("LLM_MODEL", DefaultLLMModel),
			Temperature: getEnvFloat("LLM_TEMPERATURE", DefaultLLMTemperature),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", DefaultLLMMaxTokens),
		},
		MaxDebateRounds:      getEnvInt("MAX_DEBATE_ROUNDS", DefaultMaxDebateRounds),
		MaxRiskDebateRounds:  getEnvInt("MAX_RISK_DEBATE_ROUNDS", DefaultMaxRiskDebateRounds),
		AgentMCPEnabled:      loadAgentPermissions(),
		DebugMode:            getEnvBool("DEBUG_MODE", false),
		VerboseLogging:       getEnvBool("VERBOSE_LOGGING", false),
		DumpDir:              getEnv("DUMP_DIR", DefaultDumpDir),
		MCPConfigPath:        getEnv("MCP_CONFIG", DefaultMCPConfigPath),
		HTTPPort:             getEnv("HTTP_PORT", DefaultHTTPPort),
		SessionRetentionDays: getEnvInt("SESSION_RETENTION_DAYS", DefaultSessionRetention),
	}

	if cfg.MaxDebateRounds < 0 {
		return nil, fmt.Errorf("MAX_DEBATE_ROUNDS must be >= 0, got %d", cfg.MaxDebateRounds)
	}
	if cfg.MaxRiskDebateRounds < 0 {
		return nil, fmt.Errorf("MAX_RISK_DEBATE_ROUNDS must be >= 0, got %d", cfg.MaxRiskDebateRounds)
	}
	return cfg, nil
}

// PermissionEnvVar returns the environment variable controlling an
// agent's MCP permission, e.g. "market_analyst" → "MARKET_ANALYST_MCP_ENABLED".
func PermissionEnvVar(agentName string) string {
	return strings.ToUpper(agentName) + "_MCP_ENABLED"
}

// loadAgentPermissions reads one boolean env var per agent. Unset means
// disabled — agents never gain tool access implicitly.
func loadAgentPermissions() map[string]bool {
	perms := make(map[string]bool, len(AgentNames))
	for _, name := range AgentNames {
		perms[name] = getEnvBool(PermissionEnvVar(name), false)
	}
	return perms
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true")
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
