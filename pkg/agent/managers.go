package agent

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// ResearchManager judges the investment debate and writes the
// investment plan with an explicit buy/sell/hold verdict.
type ResearchManager struct {
	Harness
}

// NewResearchManager creates the research manager.
func NewResearchManager() Agent {
	return &ResearchManager{
		Harness: NewHarness(NameResearchManager, "Research manager judging the researcher debate and making the investment decision"),
	}
}

func (a *ResearchManager) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	now := deps.clock()()
	system := fmt.Sprintf(researchManagerSystemPromptTemplate,
		now.Format("2006-01-02 15:04:05"), now.Weekday())

	request := fmt.Sprintf(`As the portfolio manager, make the final investment decision for the query %q from the information below.

Full debate history:
%s

Decision requirements:
1. Objectively assess the quality of the bull and bear arguments
2. Identify the pivotal investment factors
3. Evaluate the risk/reward ratio
4. Make a clear recommendation (buy / sell / hold)
5. Give concrete execution guidance and risk-management measures

Provide a detailed investment decision report.`,
		state.UserQuery, state.InvestmentDebateState.History)

	result, _, err := a.CallWithContext(ctx, state, deps, system, request)
	if err != nil {
		errMsg := fmt.Sprintf("investment decision failed: %v", err)
		state.AddError(errMsg)
		a.WriteReport(state, models.FieldInvestmentPlan, fmt.Sprintf("investment decision error: %s", errMsg))
		return
	}

	a.WriteReport(state, models.FieldInvestmentPlan, a.FormatOutput(result, state, deps))
}

// Trader turns the investment plan into an executable trading plan with
// direction, sizing, entry timing, stops, and monitoring points.
type Trader struct {
	Harness
}

// NewTrader creates the trader.
func NewTrader() Agent {
	return &Trader{
		Harness: NewHarness(NameTrader, "Trader producing the concrete execution plan for the investment decision"),
	}
}

func (a *Trader) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	now := deps.clock()()
	system := fmt.Sprintf(traderSystemPromptTemplate,
		now.Format("2006-01-02 15:04:05"), now.Weekday())

	request := fmt.Sprintf(`From the research manager's decision, produce a detailed trading execution plan for the query %q.

Investment decision:
%s

Plan requirements:
1. The concrete strategy (buy / sell / hold)
2. Target prices and position sizing
3. Entry and exit timing
4. Stop-loss and take-profit levels
5. Risk-control measures
6. Market monitoring points
7. Contingency plans

Provide an executable, detailed trading plan.`,
		state.UserQuery, state.InvestmentPlan)

	result, _, err := a.CallWithContext(ctx, state, deps, system, request)
	if err != nil {
		errMsg := fmt.Sprintf("trading plan failed: %v", err)
		state.AddError(errMsg)
		a.WriteReport(state, models.FieldTraderInvestmentPlan, fmt.Sprintf("trading plan error: %s", errMsg))
		return
	}

	a.WriteReport(state, models.FieldTraderInvestmentPlan, a.FormatOutput(result, state, deps))
}
