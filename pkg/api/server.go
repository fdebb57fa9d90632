// Package api serves the monitoring HTTP API: session-log listing and
// retrieval, the tool catalog, and starting analysis runs. It is a read
// side over the dump directory — the session files are the source of
// truth, and they are written atomically, so handlers can serve them
// while the engine is still running.
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guangxiangdebizi/tradingagents/pkg/version"
	"github.com/guangxiangdebizi/tradingagents/pkg/workflow"
)

const (
	sessionFilePrefix = "session_"
	sessionFileSuffix = ".json"
)

// Server hosts the monitoring API over one orchestrator.
type Server struct {
	orch   *workflow.Orchestrator
	router *gin.Engine
}

// NewServer creates the API server and registers its routes.
func NewServer(orch *workflow.Orchestrator) *Server {
	s := &Server{
		orch:   orch,
		router: gin.Default(),
	}
	s.registerRoutes()
	return s
}

// Router exposes the gin engine (for tests and custom listeners).
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP listener on the given address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.GET("/tools", s.handleTools)
	api.POST("/analysis", s.handleStartAnalysis)
}

func (s *Server) handleHealth(c *gin.Context) {
	cfg := s.orch.Config()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Full(),
		"configuration": gin.H{
			"model":                  cfg.LLM.Model,
			"max_debate_rounds":      cfg.MaxDebateRounds,
			"max_risk_debate_rounds": cfg.MaxRiskDebateRounds,
			"mcp_servers":            s.orch.Registry().Len(),
		},
	})
}

// sessionSummary is one row in the session listing.
type sessionSummary struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	ModifiedAt string `json:"modified_at"`
}

func (s *Server) handleListSessions(c *gin.Context) {
	dumpDir := s.orch.Config().DumpDir
	entries, err := os.ReadDir(dumpDir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, gin.H{"sessions": []sessionSummary{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var sessions []sessionSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, sessionFilePrefix) || !strings.HasSuffix(name, sessionFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, sessionSummary{
			SessionID:  strings.TrimSuffix(strings.TrimPrefix(name, sessionFilePrefix), sessionFileSuffix),
			Path:       filepath.Join(dumpDir, name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().Format(time.RFC3339Nano),
		})
	}

	// Newest first.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionID > sessions[j].SessionID
	})
	if sessions == nil {
		sessions = []sessionSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")
	// The ID becomes part of a filesystem path; reject separators.
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	path := filepath.Join(s.orch.Config().DumpDir, sessionFilePrefix+id+sessionFileSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleTools(c *gin.Context) {
	info, err := s.orch.DescribeTools(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

type startAnalysisRequest struct {
	Query string `json:"query" binding:"required"`
}

// handleStartAnalysis launches a run in the background and returns its
// session ID; progress is observed by polling the session document.
func (s *Server) handleStartAnalysis(c *gin.Context) {
	var req startAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Detached from the request context: the run outlives the HTTP call.
	recorder, _, err := s.orch.Start(context.WithoutCancel(c.Request.Context()), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": recorder.SessionID(),
		"path":       recorder.Path(),
	})
}
