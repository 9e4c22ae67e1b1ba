// Package checkpoint persists the pipeline's current-state snapshot. Unlike
// the cost ledger, the checkpoint is a single record overwritten after every
// phase transition — it answers "where was the run", the ledger answers
// "what did it already do".
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/example/anvil/internal/runlog"
)

// Run statuses recorded in the checkpoint.
const (
	StatusRunning       = "running"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusKilled        = "killed"
	StatusCostExceeded  = "cost_exceeded"
	StatusNeedsHuman    = "needs_human"
	StatusBlocked       = "blocked"
	StatusStalled       = "stalled_no_progress"
	StatusHoldoutFailed = "holdout_failed"
)

// Checkpoint is the durable current-state snapshot for a run.
type Checkpoint struct {
	Status       string    `json:"status"`
	CurrentPhase string    `json:"current_phase"`
	Ticket       string    `json:"ticket"`
	Tier         string    `json:"tier"`
	TotalCost    float64   `json:"total_cost"`
	Timestamp    time.Time `json:"timestamp"`
	LogDir       string    `json:"log_dir"`
}

// Manager saves and loads the checkpoint for one run directory.
type Manager struct {
	dir runlog.Dir
}

// NewManager binds a manager to a run directory.
func NewManager(dir runlog.Dir) *Manager {
	return &Manager{dir: dir}
}

// Save overwrites the checkpoint. Writes are atomic replaces, so a crash
// mid-save leaves the previous snapshot intact.
func (m *Manager) Save(cp Checkpoint) error {
	cp.Timestamp = time.Now().UTC()
	cp.LogDir = m.dir.String()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return runlog.WriteFileAtomic(m.dir.CheckpointPath(), data, 0644)
}

// Load reads the checkpoint. A missing file is an error: resume without a
// checkpoint has nothing to resume into.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.dir.CheckpointPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no checkpoint at %s", m.dir.CheckpointPath())
		}
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parsing checkpoint: %w", err)
	}
	return &cp, nil
}

// SkipBeforeResume reports which phases in the declared order fall strictly
// before the checkpointed phase. Those are skipped unconditionally on
// resume; the checkpointed phase and everything after re-enter normal
// kill-switch, cost, and tier evaluation.
func SkipBeforeResume(order []string, resumePhase string) map[string]bool {
	skip := make(map[string]bool)
	found := false
	for _, p := range order {
		if p == resumePhase {
			found = true
			break
		}
	}
	if !found {
		// Unknown resume phase (renamed config, terminal marker): skip
		// nothing and let ledger idempotency sort it out.
		return skip
	}
	for _, p := range order {
		if p == resumePhase {
			break
		}
		skip[p] = true
	}
	return skip
}
