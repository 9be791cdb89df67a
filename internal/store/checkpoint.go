// checkpoint.go contains loop checkpoint persistence. Writes are atomic
// (temp file + rename) and the loop is the only writer for its project, so
// readers always observe the last completed snapshot.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by LoadCheckpoint when no checkpoint exists.
var ErrNotFound = errors.New("not found")

func (s *Store) checkpointPath() string {
	return filepath.Join(s.root, "checkpoint.json")
}

// SaveCheckpoint persists the loop state snapshot.
func (s *Store) SaveCheckpoint(state *LoopState) error {
	state.LastUpdated = time.Now().UTC()
	if err := s.writeJSON(s.checkpointPath(), state); err != nil {
		return fmt.Errorf("saving checkpoint for %s: %w", state.ProjectID, err)
	}
	return nil
}

// LoadCheckpoint returns the persisted loop state, or ErrNotFound.
func (s *Store) LoadCheckpoint() (*LoopState, error) {
	var state LoopState
	if err := s.readJSON(s.checkpointPath(), &state); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return &state, nil
}

// ClearCheckpoint removes the checkpoint. Missing is not an error.
func (s *Store) ClearCheckpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.checkpointPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	return nil
}

// Guard state

func (s *Store) guardPath() string {
	return filepath.Join(s.root, "guard.json")
}

// LoadGuardState returns the persisted guard counters, or a zero-valued
// record when none exist yet.
func (s *Store) LoadGuardState(projectID string) (*GuardState, error) {
	var gs GuardState
	if err := s.readJSON(s.guardPath(), &gs); err != nil {
		if os.IsNotExist(err) {
			return &GuardState{ProjectID: projectID}, nil
		}
		return nil, fmt.Errorf("loading guard state: %w", err)
	}
	return &gs, nil
}

// SaveGuardState persists the guard counters.
func (s *Store) SaveGuardState(gs *GuardState) error {
	if err := s.writeJSON(s.guardPath(), gs); err != nil {
		return fmt.Errorf("saving guard state for %s: %w", gs.ProjectID, err)
	}
	return nil
}
