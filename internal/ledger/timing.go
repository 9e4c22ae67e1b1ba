package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/example/anvil/internal/runlog"
)

// TimingEntry records wall-clock bounds for one invocation.
type TimingEntry struct {
	Phase    string    `json:"phase"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitempty"`
	Duration string    `json:"duration,omitempty"`
}

// Timing accumulates per-phase timing for a run.
type Timing struct {
	mu      sync.Mutex
	Entries []TimingEntry `json:"entries"`
}

// LoadTiming reads timing data from a run directory.
func LoadTiming(dir runlog.Dir) (*Timing, error) {
	data, err := os.ReadFile(dir.TimingPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Timing{}, nil
		}
		return nil, err
	}
	var t Timing
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddStart appends a new entry for the phase.
func (t *Timing) AddStart(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = append(t.Entries, TimingEntry{Phase: phase, Start: time.Now()})
}

// AddEnd closes the most recent open entry for the phase.
func (t *Timing) AddEnd(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Entries) - 1; i >= 0; i-- {
		if t.Entries[i].Phase == phase && t.Entries[i].End.IsZero() {
			t.Entries[i].End = time.Now()
			d := t.Entries[i].End.Sub(t.Entries[i].Start)
			t.Entries[i].Duration = formatDuration(d)
			break
		}
	}
}

// Flush writes timing data to disk.
func (t *Timing) Flush(dir runlog.Dir) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return runlog.WriteFileAtomic(dir.TimingPath(), data, 0644)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
