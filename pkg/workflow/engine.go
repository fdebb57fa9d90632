// Package workflow executes the fixed analysis graph: four analysts in
// sequence, the bounded bull/bear debate, the management decisions, the
// bounded three-way risk debate, and the final risk decision. The engine
// owns routing and cancellation; all node behavior lives in pkg/agent.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guangxiangdebizi/tradingagents/pkg/agent"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// endNode is the successor of the terminal node.
const endNode = ""

// Stage names recorded at phase transitions.
const (
	StageAnalystTeam        = "analyst_team"
	StageInvestmentDebate   = "investment_debate"
	StageManagementDecision = "management_decision"
	StageRiskDebate         = "risk_debate"
	StageFinalDecision      = "final_decision"
)

// nodeStages maps every node to its display stage. A stage marker is
// recorded when execution enters a node of a different stage.
var nodeStages = map[string]struct{ name, description string }{
	agent.NameMarketAnalyst:         {StageAnalystTeam, "Market, sentiment, news, and fundamentals analysis"},
	agent.NameSentimentAnalyst:      {StageAnalystTeam, ""},
	agent.NameNewsAnalyst:           {StageAnalystTeam, ""},
	agent.NameFundamentalsAnalyst:   {StageAnalystTeam, ""},
	agent.NameBullResearcher:        {StageInvestmentDebate, "Bull and bear researcher debate"},
	agent.NameBearResearcher:        {StageInvestmentDebate, ""},
	agent.NameResearchManager:       {StageManagementDecision, "Research manager decision and trader plan"},
	agent.NameTrader:                {StageManagementDecision, ""},
	agent.NameAggressiveRiskAnalyst: {StageRiskDebate, "Aggressive, conservative, and neutral risk debate"},
	agent.NameSafeRiskAnalyst:       {StageRiskDebate, ""},
	agent.NameNeutralRiskAnalyst:    {StageRiskDebate, ""},
	agent.NameRiskManager:           {StageFinalDecision, "Final risk-management decision"},
}

// Engine runs the analysis graph over a shared state. Routing depends
// only on the debate counters — never on the clock — so runs against a
// deterministic LLM are byte-identical.
type Engine struct {
	agents              map[string]agent.Agent
	deps                *agent.Deps
	maxDebateRounds     int
	maxRiskDebateRounds int
	logger              *slog.Logger
}

// NewEngine creates an engine over the given agent catalog.
func NewEngine(agents map[string]agent.Agent, deps *agent.Deps, maxDebateRounds, maxRiskDebateRounds int) *Engine {
	return &Engine{
		agents:              agents,
		deps:                deps,
		maxDebateRounds:     maxDebateRounds,
		maxRiskDebateRounds: maxRiskDebateRounds,
		logger:              slog.Default(),
	}
}

// Run executes the graph from the entry node until END or cancellation.
// Cancellation is not an error: the session is marked cancelled, a
// warning is recorded, and the partially mutated state stands. A non-nil
// error means a routing failure (engine-level invariant violation).
func (e *Engine) Run(ctx context.Context, state *models.AnalysisState) error {
	node := agent.NameMarketAnalyst
	currentStage := ""

	for node != endNode {
		if err := ctx.Err(); err != nil {
			e.cancel(state)
			return nil
		}

		a, ok := e.agents[node]
		if !ok {
			return fmt.Errorf("no agent registered for node %q", node)
		}

		if stage := nodeStages[node]; stage.name != currentStage {
			currentStage = stage.name
			e.deps.Recorder.StartStage(stage.name, stage.description)
		}

		e.logger.Info("Executing workflow node", "node", node)
		a.Process(ctx, state, e.deps)

		// A node interrupted mid-flight keeps whatever it wrote; the
		// engine stops before the next node.
		if err := ctx.Err(); err != nil {
			e.cancel(state)
			return nil
		}

		next, err := e.next(node, state)
		if err != nil {
			return err
		}
		node = next
	}
	return nil
}

func (e *Engine) cancel(state *models.AnalysisState) {
	const msg = "analysis cancelled before completion"
	state.AddWarning(msg)
	e.deps.Recorder.AddWarning(msg, "")
	e.deps.Recorder.SetStatus(models.SessionStatusCancelled)
	e.logger.Info("Workflow cancelled")
}

// next resolves the successor of a node. The two debate exits are the
// only conditional edges; everything else is fixed.
func (e *Engine) next(node string, state *models.AnalysisState) (string, error) {
	switch node {
	case agent.NameMarketAnalyst:
		return agent.NameSentimentAnalyst, nil
	case agent.NameSentimentAnalyst:
		return agent.NameNewsAnalyst, nil
	case agent.NameNewsAnalyst:
		return agent.NameFundamentalsAnalyst, nil
	case agent.NameFundamentalsAnalyst:
		return agent.NameBullResearcher, nil
	case agent.NameBullResearcher, agent.NameBearResearcher:
		return nextAfterResearcher(state.InvestmentDebateState.Count, e.maxDebateRounds), nil
	case agent.NameResearchManager:
		return agent.NameTrader, nil
	case agent.NameTrader:
		return agent.NameAggressiveRiskAnalyst, nil
	case agent.NameAggressiveRiskAnalyst, agent.NameSafeRiskAnalyst, agent.NameNeutralRiskAnalyst:
		return nextAfterRiskAnalyst(state.RiskDebateState.Count, e.maxRiskDebateRounds), nil
	case agent.NameRiskManager:
		return endNode, nil
	default:
		return "", fmt.Errorf("unknown workflow node %q", node)
	}
}

// nextAfterResearcher routes the investment debate. count is the number
// of completed turns: odd means the bull just spoke, so the bear answers;
// even hands the floor back to the bull. Reaching maxRounds ends the
// debate at the research manager. With maxRounds == 0 the opening bull
// turn has already happened by the time routing runs, so the bull speaks
// exactly once and the bear never does.
func nextAfterResearcher(count, maxRounds int) string {
	if count < maxRounds {
		if count%2 == 1 {
			return agent.NameBearResearcher
		}
		return agent.NameBullResearcher
	}
	return agent.NameResearchManager
}

// nextAfterRiskAnalyst routes the risk debate round-robin:
// aggressive → safe → neutral → aggressive…, keyed by count mod 3.
func nextAfterRiskAnalyst(count, maxRounds int) string {
	if count < maxRounds {
		switch count % 3 {
		case 1:
			return agent.NameSafeRiskAnalyst
		case 2:
			return agent.NameNeutralRiskAnalyst
		default:
			return agent.NameAggressiveRiskAnalyst
		}
	}
	return agent.NameRiskManager
}
