// Package sqlite provides a core.CheckpointStore backed by a SQLite database.
//
// Each agent identity owns exactly one row holding the JSON encoded
// checkpoint; Save is an upsert, so the table always contains the latest
// checkpoint per agent. Run exclusion is process local.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/memora/checkpoint"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
)

//go:embed schema.sql
var schemaSQL string

// DefaultPath is the database file used when none is configured.
const DefaultPath = ".memora/checkpoints.db"

var (
	_ core.CheckpointStore  = (*Store)(nil)
	_ core.RunLocker        = (*Store)(nil)
	_ core.CheckpointLister = (*Store)(nil)
)

// Options configures a Store.
type Options struct {
	// Path of the database file, or ":memory:".
	Path string
	// Logger receives store diagnostics.
	Logger logging.Logger
}

// Store is a SQLite backed checkpoint store.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
	locks  checkpoint.LockSet
}

// New opens (creating if needed) the database and applies the schema.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Path: DefaultPath}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}

	dsn := opts.Path
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", opts.Path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.Path == ":memory:" {
		// Every new connection to :memory: is a fresh database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: opts.Path, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts the agent's checkpoint row.
func (s *Store) Save(ctx context.Context, cp *core.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	if err := checkpoint.ValidateAgentID(cp.AgentID); err != nil {
		return err
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (agent_id, state, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			state = excluded.state,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		cp.AgentID, string(cp.State), string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.AgentID, err)
	}

	s.logger.Debug("checkpoint.saved", "agent_id", cp.AgentID, "state", string(cp.State), "backend", "sqlite")
	return nil
}

// LoadLatest returns the stored checkpoint for agentID.
func (s *Store) LoadLatest(ctx context.Context, agentID string) (*core.Checkpoint, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM checkpoints WHERE agent_id = ?`, agentID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrCheckpointNotFound)
		}
		return nil, fmt.Errorf("load checkpoint %s: %w", agentID, err)
	}

	var cp core.Checkpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", agentID, err)
	}
	return &cp, nil
}

// Clear deletes the agent's row.
func (s *Store) Clear(ctx context.Context, agentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w", agentID, err)
	}
	return nil
}

// Exists reports whether a row exists for agentID.
func (s *Store) Exists(ctx context.Context, agentID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM checkpoints WHERE agent_id = ?`, agentID).Scan(&n); err != nil {
		return false, fmt.Errorf("check checkpoint %s: %w", agentID, err)
	}
	return n > 0, nil
}

// List returns all agent identities in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agent_id FROM checkpoints ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByState returns the number of stored checkpoints per state.
func (s *Store) CountByState(ctx context.Context) (map[core.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM checkpoints GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count checkpoints: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.State]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[core.State(state)] = n
	}
	return counts, rows.Err()
}

// Acquire implements core.RunLocker within this process.
func (s *Store) Acquire(ctx context.Context, agentID string) (func() error, error) {
	return s.locks.Acquire(ctx, agentID)
}
