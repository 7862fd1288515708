// Package history keeps an audit log of completed host executions in
// SQLite. Pending requests are never persisted; only finished commands
// land here.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"hostbridge/internal/model"
)

// writeBuffer bounds how many recorded executions may wait for the
// writer goroutine. Records beyond that are dropped, never queued on the
// tick thread.
const writeBuffer = 256

// Store records executions asynchronously: Record hands the entry to a
// writer goroutine and returns immediately, because it is called from
// the host tick context, which must never block on I/O.
type Store struct {
	db      *sql.DB
	log     *slog.Logger
	entries chan model.Execution
	done    chan struct{}
}

func NewStore(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:      db,
		log:     log,
		entries: make(chan model.Execution, writeBuffer),
		done:    make(chan struct{}),
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	go s.writeLoop()
	return s, nil
}

func (s *Store) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id INTEGER NOT NULL,
		command TEXT NOT NULL,
		status TEXT NOT NULL,
		result_size INTEGER NOT NULL,
		executed_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create executions table: %w", err)
	}
	return nil
}

// Record queues an execution for persistence. It never blocks: when the
// writer falls behind, the entry is dropped and counted as a log line.
func (s *Store) Record(e model.Execution) {
	select {
	case s.entries <- e:
	default:
		s.log.Warn("history buffer full, dropping entry", "request_id", e.RequestID)
	}
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for e := range s.entries {
		query := `INSERT INTO executions (request_id, command, status, result_size, executed_at)
			VALUES (?, ?, ?, ?, ?)`
		if _, err := s.db.Exec(query, e.RequestID, e.Command, e.Status, e.ResultSize, e.ExecutedAt); err != nil {
			s.log.Warn("failed to record execution", "request_id", e.RequestID, "err", err)
		}
	}
}

// Recent returns the latest executions, newest first.
func (s *Store) Recent(limit int) ([]model.Execution, error) {
	query := `SELECT request_id, command, status, result_size, executed_at
		FROM executions ORDER BY id DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []model.Execution
	for rows.Next() {
		var e model.Execution
		if err := rows.Scan(&e.RequestID, &e.Command, &e.Status, &e.ResultSize, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close drains the writer and closes the database.
func (s *Store) Close() error {
	close(s.entries)
	<-s.done
	return s.db.Close()
}
