// tradingagents runs one multi-agent trading analysis from the command
// line, or serves the monitoring HTTP API with -serve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/guangxiangdebizi/tradingagents/pkg/api"
	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
	"github.com/guangxiangdebizi/tradingagents/pkg/session"
	"github.com/guangxiangdebizi/tradingagents/pkg/version"
	"github.com/guangxiangdebizi/tradingagents/pkg/workflow"
)

// Exit codes.
const (
	exitOK          = 0
	exitInitError   = 1
	exitRunFailure  = 2
	exitInterrupted = 130
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	os.Exit(run())
}

func run() int {
	query := flag.String("query", "", "Analysis query, e.g. \"analyze AAPL\"")
	envFile := flag.String("env-file", ".env", "Path to the .env file")
	serve := flag.Bool("serve", false, "Serve the monitoring HTTP API instead of running one analysis")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: could not load %s: %v", *envFile, err)
		log.Printf("Continuing with existing environment variables...")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Configuration error: %v", err)
		return exitInitError
	}

	level := slog.LevelWarn
	if cfg.VerboseLogging {
		level = slog.LevelInfo
	}
	if cfg.DebugMode {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	orch, err := workflow.New(cfg)
	if err != nil {
		log.Printf("Initialization error: %v", err)
		return exitInitError
	}

	if *serve {
		gin.SetMode(getEnv("GIN_MODE", gin.DebugMode))

		retention := session.NewRetention(cfg.DumpDir, session.RetentionPolicy{
			MaxAge: time.Duration(cfg.SessionRetentionDays) * 24 * time.Hour,
		})
		retention.Start(context.Background())
		defer retention.Stop()

		server := api.NewServer(orch)
		log.Printf("Starting %s API on :%s", version.Full(), cfg.HTTPPort)
		if err := server.Run(":" + cfg.HTTPPort); err != nil {
			log.Printf("HTTP server failed: %v", err)
			return exitRunFailure
		}
		return exitOK
	}

	if *query == "" {
		log.Printf("Usage: tradingagents -query \"analyze AAPL\"")
		return exitInitError
	}

	// Ctrl-C cancels the run cooperatively; the session ends as cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting %s analysis: %s", version.AppName, *query)
	state, recorder, err := orch.RunAnalysisRecorded(ctx, *query)
	if err != nil {
		if errors.Is(err, workflow.ErrEmptyQuery) {
			log.Printf("Initialization error: %v", err)
			return exitInitError
		}
		log.Printf("Analysis failed: %v", err)
		printSummary(state)
		return exitRunFailure
	}

	printSummary(state)
	log.Printf("Session log: %s", recorder.Path())

	if recorder.Status() == models.SessionStatusCancelled {
		return exitInterrupted
	}
	return exitOK
}

func printSummary(state *models.AnalysisState) {
	if state == nil {
		return
	}

	fmt.Println()
	fmt.Println("================ analysis result ================")
	fmt.Printf("user query: %s\n", state.UserQuery)

	printSection := func(title, content string) {
		if content == "" {
			return
		}
		fmt.Println()
		fmt.Println("--- " + title + " ---")
		fmt.Println(content)
	}

	printSection("market report", state.MarketReport)
	printSection("sentiment report", state.SentimentReport)
	printSection("news report", state.NewsReport)
	printSection("fundamentals report", state.FundamentalsReport)
	printSection("investment plan", state.InvestmentPlan)
	printSection("trader plan", state.TraderInvestmentPlan)
	printSection("final trade decision", state.FinalTradeDecision)

	fmt.Println()
	fmt.Printf("agent executions: %d, tool calls: %d, debate rounds: %d, risk rounds: %d\n",
		len(state.AgentExecutionHistory), len(state.MCPToolCalls),
		state.InvestmentDebateState.Count, state.RiskDebateState.Count)
	for _, e := range state.Errors {
		fmt.Printf("error: %s\n", e)
	}
	for _, w := range state.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Println("=================================================")
}
