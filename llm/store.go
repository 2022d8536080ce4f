package llm

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// CallRecord represents a single LLM API call.
type CallRecord struct {
	RequestID     string     `json:"request_id"`
	RunID         string     `json:"run_id,omitempty"`
	Stage         string     `json:"stage,omitempty"`
	Capability    string     `json:"capability"`
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	Messages      []Message  `json:"messages"`
	Response      string     `json:"response"`
	Usage         TokenUsage `json:"usage"`
	FinishReason  string     `json:"finish_reason"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	DurationMs    int64      `json:"duration_ms"`
	Retries       int        `json:"retries"`
	FallbacksUsed []string   `json:"fallbacks_used,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// CallStore keeps a history of LLM calls in SQLite.
type CallStore struct {
	db *sql.DB
}

// NewCallStore opens (creating if needed) the call history database at
// path. ":memory:" gives a throwaway store.
func NewCallStore(path string) (*CallStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &CallStore{db: db}, nil
}

// Close closes the database connection.
func (s *CallStore) Close() error {
	return s.db.Close()
}

// Store inserts or replaces a call record.
func (s *CallStore) Store(ctx context.Context, r *CallRecord) error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	messages, err := json.Marshal(r.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	fallbacks, err := json.Marshal(r.FallbacksUsed)
	if err != nil {
		return fmt.Errorf("marshal fallbacks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO llm_calls (
			request_id, run_id, stage, capability, provider, model, messages, response,
			prompt_tokens, completion_tokens, total_tokens, finish_reason,
			started_at, completed_at, duration_ms, retries, fallbacks_used, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.RunID, r.Stage, r.Capability, r.Provider, r.Model, string(messages), r.Response,
		r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens, r.FinishReason,
		r.StartedAt.UTC(), r.CompletedAt.UTC(), r.DurationMs, r.Retries, string(fallbacks), r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert call %s: %w", r.RequestID, err)
	}
	return nil
}

// ListByRun returns the calls of a run in start order. An empty runID
// returns every call.
func (s *CallStore) ListByRun(ctx context.Context, runID string) ([]*CallRecord, error) {
	query := `SELECT request_id, run_id, stage, capability, provider, model, messages, response,
		prompt_tokens, completion_tokens, total_tokens, finish_reason,
		started_at, completed_at, duration_ms, retries, fallbacks_used, error
		FROM llm_calls`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var records []*CallRecord
	for rows.Next() {
		var r CallRecord
		var messages, fallbacks string
		if err := rows.Scan(&r.RequestID, &r.RunID, &r.Stage, &r.Capability, &r.Provider, &r.Model,
			&messages, &r.Response, &r.Usage.PromptTokens, &r.Usage.CompletionTokens, &r.Usage.TotalTokens,
			&r.FinishReason, &r.StartedAt, &r.CompletedAt, &r.DurationMs, &r.Retries, &fallbacks, &r.Error); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if err := json.Unmarshal([]byte(messages), &r.Messages); err != nil {
			return nil, fmt.Errorf("decode messages of %s: %w", r.RequestID, err)
		}
		if err := json.Unmarshal([]byte(fallbacks), &r.FallbacksUsed); err != nil {
			return nil, fmt.Errorf("decode fallbacks of %s: %w", r.RequestID, err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	SortByStartTime(records)
	return records, nil
}

// SortByStartTime sorts records chronologically by StartedAt.
func SortByStartTime(records []*CallRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
}
