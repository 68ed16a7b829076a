// Package calllog records every model call as one JSON line in an audit log
// under the home directory. Append failures are logged, never fatal: the
// audit trail must not take down a run.
package calllog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rheese/tablescan/internal/providers"
)

// Status values for a logged call.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is a single recorded model call.
type Entry struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Time       time.Time `json:"time"`
	DurationMS int       `json:"duration_ms"`

	// Context references
	PDF  string `json:"pdf"`
	Page int    `json:"page"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	// Status
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Options carries the per-call context for a log entry.
type Options struct {
	PDF      string
	Page     int
	Provider string
	Model    string
}

// FromResult builds an Entry from an extraction result. Either res or callErr
// may be nil: a failed call has no result, a successful one has no error.
func FromResult(res *providers.ExtractResult, callErr error, opts Options) *Entry {
	e := &Entry{
		ID:       uuid.New().String(),
		Time:     time.Now(),
		PDF:      opts.PDF,
		Page:     opts.Page,
		Provider: opts.Provider,
		Model:    opts.Model,
		Status:   StatusOK,
	}

	if res != nil {
		e.DurationMS = int(res.ExecutionTime.Milliseconds())
		e.InputTokens = res.PromptTokens
		e.OutputTokens = res.CompletionTokens
		e.TotalTokens = res.TotalTokens
	}

	if callErr != nil {
		e.Status = StatusError
		e.Error = callErr.Error()
	}

	return e
}

// FileLog appends entries to a JSONL file. A nil FileLog discards everything,
// so callers can hold one unconditionally and only construct it when the
// call log is enabled.
type FileLog struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileLog creates a log that appends to the file at path.
func NewFileLog(path string, logger *slog.Logger) *FileLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileLog{path: path, logger: logger}
}

// Path returns the log file path.
func (l *FileLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes one entry as a JSON line. Failures are logged and swallowed.
func (l *FileLog) Append(e *Entry) {
	if l == nil || e == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		l.logger.Warn("failed to encode call log entry", "error", err, "call_id", e.ID)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Warn("failed to open call log", "error", err, "path", l.path)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Warn("failed to append call log entry", "error", err, "path", l.path)
	}
}
