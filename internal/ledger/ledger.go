// Package ledger tracks agent spend. The ledger is append-only: a record,
// once written under a name, is never rewritten, and resume trusts the
// recorded names as the authoritative list of completed invocations.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/example/anvil/internal/runlog"
)

// Record is the immutable spend entry for one invocation.
type Record struct {
	Name      string    `json:"name"`
	Cost      float64   `json:"cost"`
	Turns     int       `json:"turns"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the ordered record list plus running total for one run.
type Ledger struct {
	Records []Record  `json:"phases"`
	Total   float64   `json:"total_cost"`
	Status  string    `json:"status"`
	Started time.Time `json:"started"`

	dir runlog.Dir
}

// New returns an empty ledger bound to a run directory.
func New(dir runlog.Dir) *Ledger {
	return &Ledger{
		Status:  "running",
		Started: time.Now().UTC(),
		dir:     dir,
	}
}

// Load reads the ledger from a run directory, returning an empty ledger if
// none exists yet.
func Load(dir runlog.Dir) (*Ledger, error) {
	data, err := os.ReadFile(dir.CostsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(dir), nil
		}
		return nil, fmt.Errorf("loading cost ledger: %w", err)
	}
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing cost ledger: %w", err)
	}
	l.dir = dir
	return &l, nil
}

// Append records one invocation's spend and persists the ledger. The total
// is recomputed from the records so the invariant total == sum(costs) holds
// no matter how the ledger was loaded.
func (l *Ledger) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	l.Records = append(l.Records, rec)
	l.Total = 0
	for _, r := range l.Records {
		l.Total += r.Cost
	}
	return l.save()
}

// Completed reports whether an invocation with this exact name has already
// been recorded. Resume idempotency is by name only; a changed prompt or
// config under the same name is still honored as complete.
func (l *Ledger) Completed(name string) bool {
	for _, r := range l.Records {
		if r.Name == name {
			return true
		}
	}
	return false
}

// CompletedNames returns the set of recorded invocation names.
func (l *Ledger) CompletedNames() map[string]bool {
	names := make(map[string]bool, len(l.Records))
	for _, r := range l.Records {
		names[r.Name] = true
	}
	return names
}

// SetStatus updates the run status and persists.
func (l *Ledger) SetStatus(status string) error {
	l.Status = status
	return l.save()
}

func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return runlog.WriteFileAtomic(l.dir.CostsPath(), data, 0644)
}
