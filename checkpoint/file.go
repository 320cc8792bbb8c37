package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/util"
	"github.com/hupe1980/memora/logging"
)

// DefaultDir is the directory used by FileStore when none is configured.
const DefaultDir = ".memora/checkpoints"

var (
	_ core.CheckpointStore  = (*FileStore)(nil)
	_ core.RunLocker        = (*FileStore)(nil)
	_ core.CheckpointLister = (*FileStore)(nil)
)

// FileOptions configures a FileStore.
type FileOptions struct {
	// Dir holds one <agent>.json and one <agent>.lock per agent identity.
	Dir string
	// Logger receives store diagnostics.
	Logger logging.Logger
}

// FileStore persists checkpoints as JSON files.
type FileStore struct {
	dir    string
	logger logging.Logger
}

// NewFileStore creates the storage directory if needed and returns the store.
func NewFileStore(optFns ...func(o *FileOptions)) (*FileStore, error) {
	opts := FileOptions{Dir: DefaultDir}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir %s: %w", opts.Dir, err)
	}

	return &FileStore{dir: opts.Dir, logger: logging.OrNoOp(opts.Logger)}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(agentID, ext string) (string, error) {
	if err := ValidateAgentID(agentID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, agentID+ext), nil
}

// Save atomically replaces the agent's checkpoint file.
func (s *FileStore) Save(_ context.Context, cp *core.Checkpoint) error {
	if cp == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	path, err := s.path(cp.AgentID, ".json")
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.AgentID, err)
	}

	s.logger.Debug("checkpoint.saved", "agent_id", cp.AgentID, "state", string(cp.State), "bytes", len(data))
	return nil
}

// LoadLatest reads the agent's checkpoint file.
func (s *FileStore) LoadLatest(_ context.Context, agentID string) (*core.Checkpoint, error) {
	path, err := s.path(agentID, ".json")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrCheckpointNotFound)
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", agentID, err)
	}

	var cp core.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", agentID, err)
	}
	return &cp, nil
}

// Clear deletes the agent's checkpoint file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context, agentID string) error {
	path, err := s.path(agentID, ".json")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear checkpoint %s: %w", agentID, err)
	}
	return nil
}

// Exists reports whether a checkpoint file exists for agentID.
func (s *FileStore) Exists(_ context.Context, agentID string) (bool, error) {
	path, err := s.path(agentID, ".json")
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat checkpoint %s: %w", agentID, err)
	}
}

// List returns the agent identities that have a checkpoint file.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Acquire takes a non-blocking exclusive flock on <agent>.lock. The lock is
// released by the returned func or when the process exits.
func (s *FileStore) Acquire(_ context.Context, agentID string) (func() error, error) {
	path, err := s.path(agentID, ".lock")
	if err != nil {
		return nil, err
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock agent %s: %w", agentID, err)
	}
	if !locked {
		return nil, fmt.Errorf("agent %s: %w", agentID, core.ErrRunInProgress)
	}

	return func() error {
		if err := lock.Unlock(); err != nil {
			return fmt.Errorf("unlock agent %s: %w", agentID, err)
		}
		return nil
	}, nil
}
