// Package checkpoint persists per-record progress for resumable pipeline
// runs. The state is a pair of identifier sets written wholesale to a JSON
// document; persistence goes through a temp file and rename so a crash
// mid-write never corrupts the last good state.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State tracks which business IDs have been attempted. Failed is the subset
// of attempts that yielded no data; IDs in Failed but not Processed are
// retryable on the next run.
type State struct {
	processed map[string]struct{}
	failed    map[string]struct{}
}

// NewState returns an empty checkpoint state.
func NewState() *State {
	return &State{
		processed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
	}
}

// MarkProcessed records a terminal outcome for the given ID.
func (s *State) MarkProcessed(id string) { s.processed[id] = struct{}{} }

// MarkFailed records that the given ID yielded no data this attempt.
func (s *State) MarkFailed(id string) { s.failed[id] = struct{}{} }

// ClearFailed removes an ID from the failed set, used when a retry succeeds.
func (s *State) ClearFailed(id string) { delete(s.failed, id) }

// Processed reports whether the ID has a recorded terminal outcome.
func (s *State) Processed(id string) bool {
	_, ok := s.processed[id]
	return ok
}

// Failed reports whether the ID is in the failed set.
func (s *State) Failed(id string) bool {
	_, ok := s.failed[id]
	return ok
}

// Counts returns the sizes of the processed and failed sets.
func (s *State) Counts() (processed, failed int) {
	return len(s.processed), len(s.failed)
}

// document is the on-disk shape, compatible with the original progress files.
type document struct {
	Processed []string `json:"processed"`
	Failed    []string `json:"failed"`
}

// Store reads and writes checkpoint state at a fixed path.
type Store struct {
	path string
}

// NewStore creates a checkpoint store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (c *Store) Path() string { return c.path }

// Load reads the checkpoint state. A missing or unreadable file never fails
// the pipeline: it loads as an empty state (with a warning when the file
// exists but cannot be parsed).
func (c *Store) Load() *State {
	state := NewState()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("checkpoint: unreadable state file, starting fresh",
				zap.String("path", c.path),
				zap.Error(err),
			)
		}
		return state
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		zap.L().Warn("checkpoint: corrupt state file, starting fresh",
			zap.String("path", c.path),
			zap.Error(err),
		)
		return state
	}

	for _, id := range doc.Processed {
		state.processed[id] = struct{}{}
	}
	for _, id := range doc.Failed {
		state.failed[id] = struct{}{}
	}
	return state
}

// Persist writes the state atomically: marshal to a temp file in the same
// directory, then rename over the previous document.
func (c *Store) Persist(state *State) error {
	doc := document{
		Processed: sortedKeys(state.processed),
		Failed:    sortedKeys(state.failed),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal state")
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "checkpoint: create temp file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "checkpoint: close temp file")
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "checkpoint: rename into place")
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
