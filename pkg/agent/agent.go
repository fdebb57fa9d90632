// Package agent provides the execution harness shared by every workflow
// agent and the concrete agent catalog: four analysts, two researchers,
// the research manager, the trader, three risk analysts, and the risk
// manager. Each agent is a prompt specialization writing exactly one
// state field (or appending one debate turn).
package agent

import (
	"context"
	"time"

	"github.com/guangxiangdebizi/tradingagents/pkg/llm"
	"github.com/guangxiangdebizi/tradingagents/pkg/mcp"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
	"github.com/guangxiangdebizi/tradingagents/pkg/session"
)

// Agent workflow node names.
const (
	NameMarketAnalyst         = "market_analyst"
	NameSentimentAnalyst      = "sentiment_analyst"
	NameNewsAnalyst           = "news_analyst"
	NameFundamentalsAnalyst   = "fundamentals_analyst"
	NameBullResearcher        = "bull_researcher"
	NameBearResearcher        = "bear_researcher"
	NameResearchManager       = "research_manager"
	NameTrader                = "trader"
	NameAggressiveRiskAnalyst = "aggressive_risk_analyst"
	NameSafeRiskAnalyst       = "safe_risk_analyst"
	NameNeutralRiskAnalyst    = "neutral_risk_analyst"
	NameRiskManager           = "risk_manager"
)

// Deps bundles the collaborators every agent needs. One Deps instance is
// shared across all nodes of a run.
type Deps struct {
	Recorder *session.Recorder
	Broker   *mcp.Broker
	LLM      llm.Client

	// Clock stamps prompts and report headers. Defaults to time.Now so
	// only deterministic tests need to set it.
	Clock func() time.Time
}

func (d *Deps) clock() func() time.Time {
	if d.Clock == nil {
		return time.Now
	}
	return d.Clock
}

// Agent is one node in the workflow graph. Process mutates the state it
// is handed and never returns an error: every failure is captured into
// the agent's output field and the state's error list, and the workflow
// proceeds.
type Agent interface {
	Name() string
	RoleDescription() string
	Process(ctx context.Context, state *models.AnalysisState, deps *Deps)
}

// Catalog returns all workflow agents keyed by node name.
func Catalog() map[string]Agent {
	agents := []Agent{
		NewMarketAnalyst(),
		NewSentimentAnalyst(),
		NewNewsAnalyst(),
		NewFundamentalsAnalyst(),
		NewBullResearcher(),
		NewBearResearcher(),
		NewResearchManager(),
		NewTrader(),
		NewAggressiveRiskAnalyst(),
		NewSafeRiskAnalyst(),
		NewNeutralRiskAnalyst(),
		NewRiskManager(),
	}
	catalog := make(map[string]Agent, len(agents))
	for _, a := range agents {
		catalog[a.Name()] = a
	}
	return catalog
}
