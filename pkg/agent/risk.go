package agent

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// AggressiveRiskAnalyst argues for accepting more risk in the risk
// debate. It opens the debate (round 1 rebuts nothing) and later rounds
// rebut the conservative and neutral positions.
type AggressiveRiskAnalyst struct {
	Harness
}

// NewAggressiveRiskAnalyst creates the aggressive risk analyst.
func NewAggressiveRiskAnalyst() Agent {
	return &AggressiveRiskAnalyst{
		Harness: NewHarness(NameAggressiveRiskAnalyst, "Aggressive risk analyst favoring higher risk for higher return"),
	}
}

func (a *AggressiveRiskAnalyst) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	debate := state.RiskDebateState

	var request string
	if debate.Count == 0 {
		request = fmt.Sprintf(`Analyze the trader's plan from the aggressive risk-management standpoint.

Trader plan:
%s

Focus on:
1. The high-return opportunities in the plan
2. Why the risks are controllable
3. The case for acting decisively
4. An assertive risk-management strategy
5. Rebutting excessive caution

Provide the aggressive risk view.`, state.TraderInvestmentPlan)
	} else {
		request = fmt.Sprintf(`The conservative risk analyst argued:
%s

The neutral risk analyst argued:
%s

Rebut these views and hold your aggressive risk-management position.

Rebuttal points:
1. The opportunity cost of excessive caution
2. Why the risks are manageable
3. An active risk-control approach
4. The case for the assertive strategy

Provide a forceful rebuttal.`, debate.CurrentSafeResponse, debate.CurrentNeutralResponse)
	}

	result, _, err := a.CallWithContext(ctx, state, deps, aggressiveRiskAnalystSystemPrompt, request)
	if err != nil {
		state.AddError(fmt.Sprintf("aggressive risk analysis failed: %v", err))
		return
	}

	round := debate.Count + 1
	state.RiskDebateState = models.RiskDebateState{
		History:                   debate.History + fmt.Sprintf("\n\n%s:\n%s", debateMarker(NameAggressiveRiskAnalyst, round), result),
		AggressiveHistory:         debate.AggressiveHistory + fmt.Sprintf("\n\nround %d: %s", round, result),
		SafeHistory:               debate.SafeHistory,
		NeutralHistory:            debate.NeutralHistory,
		CurrentAggressiveResponse: result,
		CurrentSafeResponse:       debate.CurrentSafeResponse,
		CurrentNeutralResponse:    debate.CurrentNeutralResponse,
		Count:                     round,
	}
}

// SafeRiskAnalyst argues for capital preservation, rebutting the
// aggressive and neutral positions.
type SafeRiskAnalyst struct {
	Harness
}

// NewSafeRiskAnalyst creates the conservative risk analyst.
func NewSafeRiskAnalyst() Agent {
	return &SafeRiskAnalyst{
		Harness: NewHarness(NameSafeRiskAnalyst, "Conservative risk analyst emphasizing risk control and capital preservation"),
	}
}

func (a *SafeRiskAnalyst) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	debate := state.RiskDebateState
	request := fmt.Sprintf(`The aggressive risk analyst argued:
%s

The neutral risk analyst argued:
%s

Analyze and rebut from the conservative risk-management standpoint.

Focus on:
1. The risk factors being overlooked
2. The overly optimistic assumptions worth questioning
3. The importance of capital preservation
4. Conservative risk-control recommendations
5. Warnings about potential traps

Provide the conservative risk view.`, debate.CurrentAggressiveResponse, debate.CurrentNeutralResponse)

	result, _, err := a.CallWithContext(ctx, state, deps, safeRiskAnalystSystemPrompt, request)
	if err != nil {
		state.AddError(fmt.Sprintf("conservative risk analysis failed: %v", err))
		return
	}

	round := debate.Count + 1
	state.RiskDebateState = models.RiskDebateState{
		History:                   debate.History + fmt.Sprintf("\n\n%s:\n%s", debateMarker(NameSafeRiskAnalyst, round), result),
		AggressiveHistory:         debate.AggressiveHistory,
		SafeHistory:               debate.SafeHistory + fmt.Sprintf("\n\nround %d: %s", round, result),
		NeutralHistory:            debate.NeutralHistory,
		CurrentAggressiveResponse: debate.CurrentAggressiveResponse,
		CurrentSafeResponse:       result,
		CurrentNeutralResponse:    debate.CurrentNeutralResponse,
		Count:                     round,
	}
}

// NeutralRiskAnalyst weighs the two sides and argues the balanced view.
type NeutralRiskAnalyst struct {
	Harness
}

// NewNeutralRiskAnalyst creates the neutral risk analyst.
func NewNeutralRiskAnalyst() Agent {
	return &NeutralRiskAnalyst{
		Harness: NewHarness(NameNeutralRiskAnalyst, "Neutral risk analyst balancing risk and reward"),
	}
}

func (a *NeutralRiskAnalyst) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	debate := state.RiskDebateState
	request := fmt.Sprintf(`The aggressive risk analyst argued:
%s

The conservative risk analyst argued:
%s

Analyze objectively from the neutral risk-management standpoint.

Focus on:
1. The merits of each side's argument
2. A quantified risk/reward ratio
3. A balanced risk assessment
4. Data- and probability-driven reasoning
5. A neutral risk-management recommendation

Provide an objective, neutral risk analysis.`, debate.CurrentAggressiveResponse, debate.CurrentSafeResponse)

	result, _, err := a.CallWithContext(ctx, state, deps, neutralRiskAnalystSystemPrompt, request)
	if err != nil {
		state.AddError(fmt.Sprintf("neutral risk analysis failed: %v", err))
		return
	}

	round := debate.Count + 1
	state.RiskDebateState = models.RiskDebateState{
		History:                   debate.History + fmt.Sprintf("\n\n%s:\n%s", debateMarker(NameNeutralRiskAnalyst, round), result),
		AggressiveHistory:         debate.AggressiveHistory,
		SafeHistory:               debate.SafeHistory,
		NeutralHistory:            debate.NeutralHistory + fmt.Sprintf("\n\nround %d: %s", round, result),
		CurrentAggressiveResponse: debate.CurrentAggressiveResponse,
		CurrentSafeResponse:       debate.CurrentSafeResponse,
		CurrentNeutralResponse:    result,
		Count:                     round,
	}
}

// RiskManager judges the risk debate and writes the final trade
// decision: approve, approve with modifications, or reject.
type RiskManager struct {
	Harness
}

// NewRiskManager creates the risk manager.
func NewRiskManager() Agent {
	return &RiskManager{
		Harness: NewHarness(NameRiskManager, "Risk manager judging the risk debate and making the final decision"),
	}
}

func (a *RiskManager) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	request := fmt.Sprintf(`As the risk-management executive, make the final risk decision for the query %q from the information below.

Trader plan:
%s

Risk team debate history:
%s

Decision requirements:
1. Weigh the three risk positions on their merits
2. Assess the risk level of the trading plan
3. Specify concrete risk controls
4. Make the final execution decision (approve / approve with modifications / reject)
5. Provide monitoring requirements and contingency plans

Provide the final risk-management decision.`,
		state.UserQuery, state.TraderInvestmentPlan, state.RiskDebateState.History)

	result, _, err := a.CallWithContext(ctx, state, deps, riskManagerSystemPrompt, request)
	if err != nil {
		errMsg := fmt.Sprintf("final risk decision failed: %v", err)
		state.AddError(errMsg)
		a.WriteReport(state, models.FieldFinalTradeDecision, fmt.Sprintf("final risk decision error: %s", errMsg))
		return
	}

	a.WriteReport(state, models.FieldFinalTradeDecision, a.FormatOutput(result, state, deps))
}
