// Package session implements the append-oriented JSON session log.
//
// One Recorder owns one file for the lifetime of a run. Every mutation
// updates the in-memory document and rewrites the file through an atomic
// temp-file + rename, so concurrent readers (the web UI tails the file
// live) always see a consistent snapshot. Disk errors are logged and
// swallowed: the recorder must never take the workflow down.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

const (
	// maxCreateAttempts bounds session-ID regeneration when the exclusive
	// create collides with an existing file.
	maxCreateAttempts = 5

	// maxReplaceAttempts bounds the rename retry loop. Renames can fail
	// transiently on platforms where a concurrent reader holds the target
	// open (sharing violation); after the retries are exhausted the
	// recorder falls back to a direct overwrite.
	maxReplaceAttempts = 6

	// replaceBackoffStep is the base backoff between rename attempts;
	// attempt i waits i*replaceBackoffStep.
	replaceBackoffStep = 250 * time.Millisecond
)

// Options configures a Recorder.
type Options struct {
	// DumpDir is the directory session files are written to. Created if
	// absent. Defaults to "./dump".
	DumpDir string

	// SessionID forces a specific session ID instead of generating one.
	SessionID string

	// Clock overrides the timestamp source. Defaults to time.Now.
	Clock func() time.Time
}

// Recorder owns the on-disk JSON document for one analysis run.
// All mutations are serialized through an internal mutex; the file is
// rewritten after every mutation.
type Recorder struct {
	mu     sync.Mutex
	doc    models.SessionDocument
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Recorder and atomically creates its session file.
// If the generated path already exists the ID is regenerated, up to
// maxCreateAttempts times.
func New(opts Options) (*Recorder, error) {
	dumpDir := opts.DumpDir
	if dumpDir == "" {
		dumpDir = "./dump"
	}
	if err := os.MkdirAll(dumpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir %q: %w", dumpDir, err)
	}

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	r := &Recorder{
		now:    now,
		logger: slog.Default(),
	}

	sessionID := opts.SessionID
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if sessionID == "" {
			sessionID = GenerateSessionID(now())
		}
		path := filepath.Join(dumpDir, "session_"+sessionID+".json")

		r.doc = newDocument(sessionID, now())
		data, err := json.MarshalIndent(r.doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal session document: %w", err)
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				// Collision: regenerate and retry.
				sessionID = ""
				continue
			}
			return nil, fmt.Errorf("create session file %q: %w", path, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return nil, fmt.Errorf("write session file %q: %w", path, werr)
		}
		if cerr != nil {
			return nil, fmt.Errorf("close session file %q: %w", path, cerr)
		}

		r.path = path
		slog.Info("Session started", "session_id", sessionID, "path", path)
		return r, nil
	}
	return nil, fmt.Errorf("could not create a unique session file after %d attempts", maxCreateAttempts)
}

// GenerateSessionID builds a high-resolution timestamped ID with a random
// suffix: "20260131_154210_431872_a3f8c2d1". The microsecond component plus
// the random token keeps concurrent runs collision-free.
func GenerateSessionID(t time.Time) string {
	return fmt.Sprintf("%s_%06d_%s",
		t.Format("20060102_150405"),
		t.Nanosecond()/1000,
		uuid.NewString()[:8])
}

func newDocument(sessionID string, t time.Time) models.SessionDocument {
	ts := t.Format(time.RFC3339Nano)
	return models.SessionDocument{
		SessionID:    sessionID,
		CreatedAt:    ts,
		UpdatedAt:    ts,
		Status:       models.SessionStatusActive,
		Stages:       []models.StageRecord{},
		Agents:       []models.AgentRecord{},
		Actions:      []models.ActionRecord{},
		MCPCalls:     []models.MCPCallRecord{},
		Errors:       []models.IssueRecord{},
		Warnings:     []models.IssueRecord{},
		FinalResults: map[string]any{},
	}
}

// SessionID returns the recorder's session identifier.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.SessionID
}

// Path returns the session file path.
func (r *Recorder) Path() string {
	return r.path
}

// Snapshot returns a deep copy of the current document.
func (r *Recorder) Snapshot() models.SessionDocument {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Round-trip through JSON for a cheap deep copy; the document is
	// JSON-shaped by construction.
	data, err := json.Marshal(r.doc)
	if err != nil {
		r.logger.Warn("Failed to snapshot session document", "error", err)
		return r.doc
	}
	var copied models.SessionDocument
	if err := json.Unmarshal(data, &copied); err != nil {
		r.logger.Warn("Failed to snapshot session document", "error", err)
		return r.doc
	}
	return copied
}

// Status returns the current session status.
func (r *Recorder) Status() models.SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Status
}

// SetStatus transitions the session status. Backward transitions are
// rejected and logged; the session document only moves forward.
func (r *Recorder) SetStatus(status models.SessionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc.Status == status {
		return
	}
	if !r.doc.Status.CanTransitionTo(status) {
		r.logger.Warn("Rejected backward session status transition",
			"session_id", r.doc.SessionID, "from", r.doc.Status, "to", status)
		return
	}
	r.doc.Status = status
	r.save()
}

// SetUserQuery records the user's query.
func (r *Recorder) SetUserQuery(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.UserQuery = query
	r.save()
}

// StartStage appends a stage marker.
func (r *Recorder) StartStage(name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Stages = append(r.doc.Stages, models.StageRecord{
		StageName:   name,
		Description: description,
		StartTime:   r.timestamp(),
	})
	r.save()
}

// StartAgent appends a running agent record, persisting the prompts so
// the UI can render what each agent was asked.
func (r *Recorder) StartAgent(name, action, systemPrompt, userPrompt, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Agents = append(r.doc.Agents, models.AgentRecord{
		AgentName:    name,
		Action:       action,
		StartTime:    r.timestamp(),
		Status:       "running",
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Context:      context,
	})
	r.save()
}

// CompleteAgent marks the most recent running record for the agent as
// completed or failed and stores its result.
func (r *Recorder) CompleteAgent(name, result string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.doc.Agents) - 1; i >= 0; i-- {
		rec := &r.doc.Agents[i]
		if rec.AgentName == name && rec.Status == "running" {
			if success {
				rec.Status = "completed"
			} else {
				rec.Status = "failed"
			}
			rec.Result = result
			rec.EndTime = r.timestamp()
			break
		}
	}
	r.save()
}

// AddAgentAction appends a fine-grained action entry.
func (r *Recorder) AddAgentAction(name, action string, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if details == nil {
		details = map[string]any{}
	}
	r.doc.Actions = append(r.doc.Actions, models.ActionRecord{
		AgentName: name,
		Action:    action,
		Details:   details,
		Timestamp: r.timestamp(),
	})
	r.save()
}

// AddMCPToolCall appends a tool invocation entry.
func (r *Recorder) AddMCPToolCall(agentName, toolName string, toolArgs map[string]any, toolResult string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if toolArgs == nil {
		toolArgs = map[string]any{}
	}
	r.doc.MCPCalls = append(r.doc.MCPCalls, models.MCPCallRecord{
		AgentName:  agentName,
		ToolName:   toolName,
		ToolArgs:   toolArgs,
		ToolResult: toolResult,
		Timestamp:  r.timestamp(),
	})
	r.save()
}

// AddError appends an error entry. agentName may be empty for
// engine-level errors.
func (r *Recorder) AddError(msg, agentName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Errors = append(r.doc.Errors, models.IssueRecord{
		Message:   msg,
		AgentName: agentName,
		Timestamp: r.timestamp(),
	})
	r.save()
}

// AddWarning appends a warning entry.
func (r *Recorder) AddWarning(msg, agentName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Warnings = append(r.doc.Warnings, models.IssueRecord{
		Message:   msg,
		AgentName: agentName,
		Timestamp: r.timestamp(),
	})
	r.save()
}

// SetFinalResults stores the final results map.
func (r *Recorder) SetFinalResults(results map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if results == nil {
		results = map[string]any{}
	}
	r.doc.FinalResults = results
	r.save()
}

func (r *Recorder) timestamp() string {
	return r.now().Format(time.RFC3339Nano)
}

// save rewrites the session file. Caller must hold r.mu.
//
// Protocol: write to <path>.<rand>.tmp, then rename over the target.
// The rename can transiently fail while a reader holds the file open,
// so it is retried with a growing backoff; when every attempt fails the
// recorder falls back to a direct overwrite — a rare non-atomic write is
// preferred over losing the mutation, since the UI is live-tailing the file.
// Failures are logged, never returned: the workflow must not die on a
// recording error.
func (r *Recorder) save() {
	r.doc.UpdatedAt = r.timestamp()

	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		r.logger.Error("Failed to marshal session document",
			"session_id", r.doc.SessionID, "error", err)
		return
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", r.path, uuid.NewString()[:8])
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		r.logger.Error("Failed to write session temp file",
			"session_id", r.doc.SessionID, "error", err)
		return
	}

	for attempt := 1; attempt <= maxReplaceAttempts; attempt++ {
		if err := os.Rename(tmpPath, r.path); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * replaceBackoffStep)
	}

	// Fallback: direct overwrite, then best-effort temp cleanup.
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		r.logger.Error("Failed to overwrite session file",
			"session_id", r.doc.SessionID, "error", err)
	}
	_ = os.Remove(tmpPath)
}
