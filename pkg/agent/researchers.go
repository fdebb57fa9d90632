package agent

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// debateMarker renders the transcript round header for one debate turn.
func debateMarker(agentName string, round int) string {
	return fmt.Sprintf("【%s round %d】", agentName, round)
}

// BullResearcher argues the bullish side of the investment debate. Each
// turn appends to the debate substate and increments the round count;
// later turns rebut the bear's last response.
type BullResearcher struct {
	Harness
}

// NewBullResearcher creates the bull-side researcher.
func NewBullResearcher() Agent {
	return &BullResearcher{
		Harness: NewHarness(NameBullResearcher, "Bull researcher building evidence-based bullish investment cases"),
	}
}

func (a *BullResearcher) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	debate := state.InvestmentDebateState
	now := deps.clock()()
	system := fmt.Sprintf(bullResearcherSystemPromptTemplate,
		state.UserQuery, now.Format("2006-01-02 15:04:05"), now.Weekday())

	var request string
	if debate.Count == 0 {
		request = fmt.Sprintf(`Using all available analyst reports, build the strongest bullish investment case for the query %q.

Focus on:
1. The company's core competitive advantages
2. Growth potential and market opportunity
3. Underpriced value
4. Positive technical and fundamental signals
5. Concrete recommendations and target prices

Provide a detailed bullish argument.`, state.UserQuery)
	} else {
		request = fmt.Sprintf(`The bear researcher argued:
%s

Rebut these bearish points forcefully and reinforce your bullish case.

Rebuttal points:
1. Expose the limits or bias of the bearish view
2. Provide contrary evidence and data
3. Reinterpret the impact of the negative factors
4. Emphasize the positives being overlooked
5. Hold your bullish position

Provide a persuasive rebuttal.`, debate.CurrentResponse)
	}

	result, _, err := a.CallWithContext(ctx, state, deps, system, request)
	if err != nil {
		state.AddError(fmt.Sprintf("bull research failed: %v", err))
		return
	}

	round := debate.Count + 1
	state.InvestmentDebateState = models.InvestDebateState{
		History:         debate.History + fmt.Sprintf("\n\n%s:\n%s", debateMarker(NameBullResearcher, round), result),
		BullHistory:     debate.BullHistory + fmt.Sprintf("\n\nround %d: %s", round, result),
		BearHistory:     debate.BearHistory,
		CurrentResponse: result,
		Count:           round,
	}
}

// BearResearcher argues the bearish side, symmetric to the bull.
type BearResearcher struct {
	Harness
}

// NewBearResearcher creates the bear-side researcher.
func NewBearResearcher() Agent {
	return &BearResearcher{
		Harness: NewHarness(NameBearResearcher, "Bear researcher identifying investment risks and building bearish cases"),
	}
}

func (a *BearResearcher) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	debate := state.InvestmentDebateState
	now := deps.clock()()
	system := fmt.Sprintf(bearResearcherSystemPromptTemplate,
		state.UserQuery, now.Format("2006-01-02 15:04:05"), now.Weekday())

	var request string
	if debate.CurrentResponse == "" {
		request = fmt.Sprintf(`Using all available analyst reports, run a professional risk analysis and build the bearish case for the query %q.

Focus on:
1. The main investment risk factors
2. The significant negatives
3. Overly optimistic market expectations worth questioning
4. Risk warnings and cautious advice
5. A complete bearish investment case

Provide a professional risk analysis and bearish argument.`, state.UserQuery)
	} else {
		request = fmt.Sprintf(`The bull researcher argued:
%s

Analyze and rebut these bullish points from a risk standpoint, and build the bearish case.

Focus on:
1. The risk blind spots in the bullish view
2. The negatives being overlooked
3. The overly optimistic assumptions worth questioning
4. Risk warnings and cautious advice
5. A complete bearish case

Provide a professional risk analysis and bearish argument.`, debate.CurrentResponse)
	}

	result, _, err := a.CallWithContext(ctx, state, deps, system, request)
	if err != nil {
		state.AddError(fmt.Sprintf("bear research failed: %v", err))
		return
	}

	round := debate.Count + 1
	state.InvestmentDebateState = models.InvestDebateState{
		History:         debate.History + fmt.Sprintf("\n\n%s:\n%s", debateMarker(NameBearResearcher, round), result),
		BullHistory:     debate.BullHistory,
		BearHistory:     debate.BearHistory + fmt.Sprintf("\n\nround %d: %s", round, result),
		CurrentResponse: result,
		Count:           round,
	}
}
