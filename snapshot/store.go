// Package snapshot persists the latest extraction result per source.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pokeca-watcher/models"
)

// Store reads and writes per-source snapshot files plus the aggregate
// cycle document. One writer and one reader exist per cycle, so no
// locking is needed beyond atomic replace on write.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first write, not here, so a read-only consumer can open a store over
// a missing directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load returns the last-persisted result for the source, or (nil, nil)
// when no snapshot exists yet (first run).
func (s *Store) Load(sourceID string) (*models.SourceResult, error) {
	data, err := os.ReadFile(s.sourcePath(sourceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", sourceID, err)
	}

	var res models.SourceResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot for %s: %w", sourceID, err)
	}
	return &res, nil
}

// Save overwrites the snapshot for the source. The file is written to a
// temp path and renamed into place so a concurrent reader never observes
// a partial document.
func (s *Store) Save(res models.SourceResult) error {
	return s.write(s.sourcePath(res.SourceID), res)
}

// SaveCycle overwrites the aggregate document referencing every source
// result of the cycle.
func (s *Store) SaveCycle(cycle models.CycleResult) error {
	return s.write(filepath.Join(s.dir, "all_results.json"), cycle)
}

// LoadCycle returns the last-persisted aggregate document, or (nil, nil)
// when none exists.
func (s *Store) LoadCycle() (*models.CycleResult, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "all_results.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cycle snapshot: %w", err)
	}

	var cycle models.CycleResult
	if err := json.Unmarshal(data, &cycle); err != nil {
		return nil, fmt.Errorf("failed to parse cycle snapshot: %w", err)
	}
	return &cycle, nil
}

func (s *Store) sourcePath(sourceID string) string {
	return filepath.Join(s.dir, sourceID+"_latest.json")
}

func (s *Store) write(path string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
