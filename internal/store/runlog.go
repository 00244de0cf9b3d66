// Package store persists run history and run outputs beyond the process lifetime.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"co2-mcs/internal/model"
)

// RunLogFile is the JSONL file holding one manifest per line.
const RunLogFile = "runs.jsonl"

// Run modes recorded in manifests.
const (
	ModeDeterministic = "deterministic"
	ModeSimulate      = "simulate"
	ModePhased        = "phased"
)

// Manifest describes one completed run.
type Manifest struct {
	RunID              string                  `json:"run_id"`
	Mode               string                  `json:"mode"`
	CreatedAt          time.Time               `json:"created_at"`
	Source             string                  `json:"source,omitempty"`
	Seed               uint64                  `json:"seed"`
	NDraws             int                     `json:"n_draws"`
	Scenarios          []string                `json:"scenarios"`
	Totals             []model.Summary         `json:"totals,omitempty"`
	Skipped            []model.ScenarioSkipped `json:"skipped,omitempty"`
	DegenerateSamples  int                     `json:"degenerate_samples,omitempty"`
	RejectionExhausted int                     `json:"rejection_exhausted,omitempty"`
	Outputs            []string                `json:"outputs,omitempty"`
}

// NewManifest stamps a fresh run id and creation time.
func NewManifest(mode string) Manifest {
	return Manifest{
		RunID:     uuid.NewString(),
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
}

// RunLog is a thread-safe, file-backed history of run manifests.
type RunLog struct {
	mu   sync.RWMutex
	path string
	runs []Manifest
}

// OpenRunLog loads the history under dir. A missing file is an empty history.
func OpenRunLog(dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}
	l := &RunLog{path: filepath.Join(dir, RunLogFile)}

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var m Manifest
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			log.Warn().Err(err).Str("path", l.path).Msg("Skipping invalid JSON line in run log")
			continue
		}
		l.runs = append(l.runs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading run log: %w", err)
	}

	log.Debug().Str("path", l.path).Int("count", len(l.runs)).Msg("Loaded run log")
	return l, nil
}

// Append records m and persists the whole log.
func (l *RunLog) Append(m Manifest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.runs {
		if r.RunID == m.RunID {
			return fmt.Errorf("run %s already recorded", m.RunID)
		}
	}
	l.runs = append(l.runs, m)
	if err := l.save(); err != nil {
		l.runs = l.runs[:len(l.runs)-1]
		return err
	}
	log.Info().Str("runID", m.RunID).Str("mode", m.Mode).Msg("Run recorded")
	return nil
}

// save rewrites the log through a temporary file and an atomic rename. Caller holds mu.
func (l *RunLog) save() error {
	tmpPath := l.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp run log: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, m := range l.runs {
		if err := encoder.Encode(m); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("failed to rename run log: %w", err)
	}
	return nil
}

// List returns up to limit manifests, newest first. limit ≤ 0 returns all.
func (l *RunLog) List(limit int) []Manifest {
	l.mu.RLock()
	out := make([]Manifest, len(l.runs))
	copy(out, l.runs)
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns the manifest with the given id.
func (l *RunLog) Get(runID string) (Manifest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.runs {
		if m.RunID == runID {
			return m, true
		}
	}
	return Manifest{}, false
}

// Count returns the number of recorded runs.
func (l *RunLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.runs)
}
