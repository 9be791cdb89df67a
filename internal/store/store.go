// Package store is the durable per-project state layer. Everything lives in
// a .sweep directory at the project root: project config, the loop
// checkpoint, guard counters, finished reports, and signal files.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const SweepDir = ".sweep"

type Store struct {
	root string // path to .sweep directory
	mu   sync.RWMutex
}

func New(projectDir string) (*Store, error) {
	root := filepath.Join(projectDir, SweepDir)
	return &Store{root: root}, nil
}

func (s *Store) Init(config ProjectConfig) error {
	dirs := []string{
		s.root,
		filepath.Join(s.root, "reports"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	config.Created = time.Now().UTC()
	return s.writeJSON(filepath.Join(s.root, "project.json"), config)
}

func (s *Store) Exists() bool {
	_, err := os.Stat(filepath.Join(s.root, "project.json"))
	return err == nil
}

func (s *Store) Root() string {
	return s.root
}

// Project config

func (s *Store) LoadProject() (*ProjectConfig, error) {
	var config ProjectConfig
	if err := s.readJSON(filepath.Join(s.root, "project.json"), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (s *Store) SaveProject(config *ProjectConfig) error {
	return s.writeJSON(filepath.Join(s.root, "project.json"), config)
}

// Helpers

// writeJSON writes v atomically: marshal to a temp file in the same
// directory, then rename over the target. A concurrent reader never
// observes a half-written snapshot.
func (s *Store) writeJSON(path string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSONLocked(path, v)
}

func (s *Store) writeJSONLocked(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readJSONLocked(path, v)
}

func (s *Store) readJSONLocked(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
