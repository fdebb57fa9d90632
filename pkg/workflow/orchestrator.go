package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guangxiangdebizi/tradingagents/pkg/agent"
	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/llm"
	"github.com/guangxiangdebizi/tradingagents/pkg/mcp"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
	"github.com/guangxiangdebizi/tradingagents/pkg/session"
)

// ErrEmptyQuery is returned when RunAnalysis is called without a query.
var ErrEmptyQuery = errors.New("user query must not be empty")

// Orchestrator is the public entry point: it wires the recorder, broker,
// LLM client, agent catalog, and engine for one analysis run and
// guarantees resource release.
type Orchestrator struct {
	cfg      *config.Config
	registry *config.MCPServerRegistry
	llm      llm.Client
	agents   map[string]agent.Agent
	clock    func() time.Time
	logger   *slog.Logger
}

// Option customizes an Orchestrator. Used by tests to substitute the LLM
// client or pin the clock.
type Option func(*Orchestrator)

// WithLLMClient substitutes the LLM client.
func WithLLMClient(client llm.Client) Option {
	return func(o *Orchestrator) { o.llm = client }
}

// WithClock pins the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithAgents substitutes the agent catalog.
func WithAgents(agents map[string]agent.Agent) Option {
	return func(o *Orchestrator) { o.agents = agents }
}

// New creates an Orchestrator from configuration. A malformed MCP config
// file is a fatal initialization error; a missing one yields an empty
// registry (no-tool mode).
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	registry, err := config.LoadMCPConfig(cfg.MCPConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load MCP config: %w", err)
	}

	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		llm:      llm.NewOpenAIClient(cfg.LLM),
		agents:   agent.Catalog(),
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Registry exposes the MCP server registry (for diagnostics).
func (o *Orchestrator) Registry() *config.MCPServerRegistry {
	return o.registry
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

// RunAnalysis executes one full analysis. The returned state is never
// nil once the session log exists: agent failures are carried inside it
// and the run proceeds. The error return covers initialization failures
// and engine-level invariant violations.
func (o *Orchestrator) RunAnalysis(ctx context.Context, query string) (*models.AnalysisState, error) {
	state, _, err := o.runRecorded(ctx, query)
	return state, err
}

// RunAnalysisRecorded is RunAnalysis plus the recorder, so callers that
// serve the session log (the HTTP API) can hand out the session ID.
func (o *Orchestrator) RunAnalysisRecorded(ctx context.Context, query string) (*models.AnalysisState, *session.Recorder, error) {
	return o.runRecorded(ctx, query)
}

// RunResult pairs a finished run's state with its error.
type RunResult struct {
	State *models.AnalysisState
	Err   error
}

// Start launches an analysis in the background. The recorder is created
// synchronously so the caller immediately knows the session ID; the
// result arrives on the returned channel.
func (o *Orchestrator) Start(ctx context.Context, query string) (*session.Recorder, <-chan RunResult, error) {
	recorder, err := o.newRecorder(query)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan RunResult, 1)
	go func() {
		state, runErr := o.runWithRecorder(ctx, query, recorder)
		done <- RunResult{State: state, Err: runErr}
	}()
	return recorder, done, nil
}

func (o *Orchestrator) runRecorded(ctx context.Context, query string) (*models.AnalysisState, *session.Recorder, error) {
	recorder, err := o.newRecorder(query)
	if err != nil {
		return nil, nil, err
	}
	state, err := o.runWithRecorder(ctx, query, recorder)
	return state, recorder, err
}

func (o *Orchestrator) newRecorder(query string) (*session.Recorder, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	recorder, err := session.New(session.Options{
		DumpDir: o.cfg.DumpDir,
		Clock:   o.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("create session recorder: %w", err)
	}

	recorder.SetUserQuery(query)
	recorder.SetStatus(models.SessionStatusRunning)
	return recorder, nil
}

func (o *Orchestrator) runWithRecorder(ctx context.Context, query string, recorder *session.Recorder) (*models.AnalysisState, error) {
	state := models.NewAnalysisState(query)
	state.SetClock(o.clock)

	broker := mcp.NewBroker(o.registry, o.cfg.AgentMCPEnabled)
	defer func() {
		if err := broker.Close(); err != nil {
			o.logger.Warn("Failed to close MCP broker", "error", err)
		}
	}()

	// Broker failures are non-fatal: the run proceeds in no-tool mode
	// with a warning trail.
	if err := broker.Initialize(ctx); err != nil {
		msg := fmt.Sprintf("MCP initialization failed, continuing without tools: %s", err)
		o.logger.Warn("MCP initialization failed", "error", err)
		state.AddWarning(msg)
		recorder.AddWarning(msg, "")
	}
	for serverID, reason := range broker.FailedServers() {
		msg := fmt.Sprintf("MCP server %q unreachable: %s", serverID, reason)
		state.AddWarning(msg)
		recorder.AddWarning(msg, "")
	}

	deps := &agent.Deps{
		Recorder: recorder,
		Broker:   broker,
		LLM:      o.llm,
		Clock:    o.clock,
	}

	engine := NewEngine(o.agents, deps, o.cfg.MaxDebateRounds, o.cfg.MaxRiskDebateRounds)
	if err := engine.Run(ctx, state); err != nil {
		errMsg := fmt.Sprintf("workflow execution failed: %s", err)
		state.AddError(errMsg)
		recorder.AddError(errMsg, "")
		recorder.SetStatus(models.SessionStatusFailed)
		return state, err
	}

	if recorder.Status() == models.SessionStatusCancelled {
		return state, nil
	}

	recorder.SetFinalResults(finalResults(state, o.clock()))
	recorder.SetStatus(models.SessionStatusCompleted)
	o.logger.Info("Analysis completed",
		"session_id", recorder.SessionID(),
		"errors", len(state.Errors),
		"warnings", len(state.Warnings))

	return state, nil
}

// DescribeTools connects a short-lived broker to the configured servers
// and returns the aggregated catalog summary. Used by diagnostics and
// the monitoring API; run-scoped brokers are created per analysis.
func (o *Orchestrator) DescribeTools(ctx context.Context) (models.CatalogSummary, error) {
	broker := mcp.NewBroker(o.registry, o.cfg.AgentMCPEnabled)
	defer func() {
		if err := broker.Close(); err != nil {
			o.logger.Warn("Failed to close MCP broker", "error", err)
		}
	}()

	if err := broker.Initialize(ctx); err != nil {
		return models.CatalogSummary{}, err
	}
	return broker.ToolsInfo(), nil
}

// finalResults builds the structured summary mirrored into the session
// log at completion.
func finalResults(state *models.AnalysisState, completedAt time.Time) map[string]any {
	return map[string]any{
		"final_state":     state,
		"completion_time": completedAt.Format(time.RFC3339Nano),
		"success":         len(state.Errors) == 0,
	}
}
