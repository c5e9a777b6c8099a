package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harvestfund/granary/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the session database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analysis_traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			trace TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_session ON analysis_traces(session_id)`,

		`CREATE TABLE IF NOT EXISTS session_memory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_session ON session_memory(session_id)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendTrace records one analysis trace under its session.
func (s *SQLiteStore) AppendTrace(ctx context.Context, trace model.AnalyzeTrace) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(trace.SessionID, "trace.SessionID"); err != nil {
		return err
	}

	payload, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_traces (session_id, trace) VALUES (?, ?)`,
		trace.SessionID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to append trace: %w", err)
	}
	return nil
}

// Traces returns every trace for a session in insertion order.
func (s *SQLiteStore) Traces(ctx context.Context, sessionID string) ([]model.AnalyzeTrace, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trace FROM analysis_traces WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var traces []model.AnalyzeTrace
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan trace row: %w", err)
		}
		var trace model.AnalyzeTrace
		if err := json.Unmarshal([]byte(payload), &trace); err != nil {
			return nil, fmt.Errorf("failed to decode trace: %w", err)
		}
		traces = append(traces, trace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate traces: %w", err)
	}
	return traces, nil
}

// AppendMemory records one conversation memory entry.
func (s *SQLiteStore) AppendMemory(ctx context.Context, record MemoryRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(record.SessionID, "record.SessionID"); err != nil {
		return err
	}
	if err := validateString(record.Role, "record.Role"); err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_memory (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		record.SessionID, record.Role, record.Content, createdAt)
	if err != nil {
		return fmt.Errorf("failed to append memory: %w", err)
	}
	return nil
}

// LoadMemory returns a session's memory entries in insertion order.
func (s *SQLiteStore) LoadMemory(ctx context.Context, sessionID string) ([]MemoryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, role, content, created_at FROM session_memory WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []MemoryRecord
	for rows.Next() {
		var r MemoryRecord
		if err := rows.Scan(&r.SessionID, &r.Role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory: %w", err)
	}
	return records, nil
}
