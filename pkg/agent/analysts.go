package agent

import (
	"context"
	"fmt"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// analystAgent is the shared shape of the four report-writing analysts:
// a static system prompt, a per-query analysis request, and exactly one
// report field.
type analystAgent struct {
	Harness
	field           string
	errTitle        string
	systemPrompt    string
	requestTemplate string // completed with the user query
}

func (a *analystAgent) Process(ctx context.Context, state *models.AnalysisState, deps *Deps) {
	if !a.ValidateState(state) {
		return
	}

	request := fmt.Sprintf(a.requestTemplate, state.UserQuery)
	result, _, err := a.CallWithContext(ctx, state, deps, a.systemPrompt, request)
	if err != nil {
		errMsg := fmt.Sprintf("%s failed: %v", a.errTitle, err)
		state.AddError(errMsg)
		a.WriteReport(state, a.field, fmt.Sprintf("%s error: %s", a.errTitle, errMsg))
		return
	}

	a.WriteReport(state, a.field, a.FormatOutput(result, state, deps))
}

// NewMarketAnalyst creates the market trend and technicals analyst.
func NewMarketAnalyst() Agent {
	return &analystAgent{
		Harness:      NewHarness(NameMarketAnalyst, "Market analyst focused on market trends, technical indicators, and macro context"),
		field:        models.FieldMarketReport,
		errTitle:     "market analysis",
		systemPrompt: marketAnalystSystemPrompt,
		requestTemplate: `Produce a complete technical market analysis for the query %q.

Use your available external tools to fetch the latest market data; do not analyze from background knowledge alone.

Steps:
1. Fetch the latest price data and technical indicators for the relevant securities
2. Fetch overall market direction and sector data
3. Run the technical analysis on the fetched real-time data
4. Analyze volume and money flow
5. Determine support and resistance levels
6. Give short- and medium-term price expectations grounded in real-time data

Base the analysis on current data, not historical knowledge.`,
	}
}

// NewSentimentAnalyst creates the market sentiment analyst.
func NewSentimentAnalyst() Agent {
	return &analystAgent{
		Harness:      NewHarness(NameSentimentAnalyst, "Sentiment analyst focused on social media mood, investor psychology, and market atmosphere"),
		field:        models.FieldSentimentReport,
		errTitle:     "sentiment analysis",
		systemPrompt: sentimentAnalystSystemPrompt,
		requestTemplate: `Produce a complete market sentiment analysis for the query %q.

Use your available external tools to fetch the latest sentiment data; do not analyze from background knowledge alone.

Steps:
1. Fetch the latest market data for the relevant securities
2. Fetch social-media discussion volume and sentiment direction
3. Query investor-psychology indicators (fear/greed index and the like)
4. Analyze the divergence between institutional and retail sentiment
5. Identify sentiment-driven price patterns
6. Assess sentiment-side opportunity and risk from the real-time data

Base the analysis on current sentiment indicators.`,
	}
}

// NewNewsAnalyst creates the news and information-flow analyst.
func NewNewsAnalyst() Agent {
	return &analystAgent{
		Harness:      NewHarness(NameNewsAnalyst, "News analyst focused on events, policy changes, and information flow"),
		field:        models.FieldNewsReport,
		errTitle:     "news analysis",
		systemPrompt: newsAnalystSystemPrompt,
		requestTemplate: `Produce a complete news and information analysis for the query %q.

Use your available external tools to fetch the latest news and market data; do not analyze from background knowledge alone.

Steps:
1. Search for the latest news events around the relevant company
2. Fetch recent policy and regulatory developments
3. Query industry dynamics and competitive-landscape changes
4. Search for management changes or major corporate decisions
5. Relate the news flow to price action
6. Assess the investment impact from the real-time information

Base the analysis on the latest news and data.`,
	}
}

// NewFundamentalsAnalyst creates the financials and valuation analyst.
func NewFundamentalsAnalyst() Agent {
	return &analystAgent{
		Harness:      NewHarness(NameFundamentalsAnalyst, "Fundamentals analyst focused on financial statements, valuation, and intrinsic value"),
		field:        models.FieldFundamentalsReport,
		errTitle:     "fundamentals analysis",
		systemPrompt: fundamentalsAnalystSystemPrompt,
		requestTemplate: `Produce a complete fundamentals analysis for the query %q.

Use your available external tools to fetch the latest financial data; do not analyze from background knowledge alone.

Steps:
1. Fetch the latest financial statements (revenue, profit, cash flow)
2. Fetch the key ratios (ROE, ROA, margins)
3. Query the current valuation metrics (PE, PB, PEG)
4. Fetch peer data for comparison
5. Search for the latest business developments and competitive advantages
6. Give an investment recommendation from the current financial data

Base the analysis on the latest financial information.`,
	}
}
