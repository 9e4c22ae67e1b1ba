// Package runlog defines the on-disk layout of a pipeline run directory.
// Everything a run produces — ledger, checkpoint, per-invocation artifacts,
// diagnostic logs, block reports, approval markers — lives under one
// directory so a failed run can be diagnosed or resumed without replaying it.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Dir is the root of a single run's artifacts.
type Dir string

// New creates a fresh run directory under base, named by timestamp plus a
// short unique suffix so concurrent runs never collide.
func New(base string) (Dir, error) {
	name := fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02-1504"), uuid.NewString()[:8])
	d := Dir(filepath.Join(base, name))
	if err := os.MkdirAll(string(d), 0755); err != nil {
		return "", fmt.Errorf("creating run dir %s: %w", d, err)
	}
	return d, nil
}

// Open wraps an existing run directory for resume.
func Open(path string) (Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("opening run dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("run dir %s is not a directory", path)
	}
	return Dir(path), nil
}

func (d Dir) String() string { return string(d) }

// CostsPath is the cost ledger file.
func (d Dir) CostsPath() string { return filepath.Join(string(d), "costs.json") }

// CheckpointPath is the single overwritten checkpoint file.
func (d Dir) CheckpointPath() string { return filepath.Join(string(d), "checkpoint.json") }

// TimingPath is the per-phase timing file.
func (d Dir) TimingPath() string { return filepath.Join(string(d), "timing.json") }

// ResultPath is the result artifact for one invocation.
func (d Dir) ResultPath(phase string) string {
	return filepath.Join(string(d), phase+".json")
}

// LogPath is the diagnostic log for one invocation.
func (d Dir) LogPath(phase string) string {
	return filepath.Join(string(d), phase+".log")
}

// BlockReportPath is the terminal report written when a work item exhausts
// its retries.
func (d Dir) BlockReportPath(item string) string {
	return filepath.Join(string(d), fmt.Sprintf("blocked-%s.txt", item))
}

// FeedbackPath holds the rejecting gate's report for the phase it routed
// back to; the producer folds it into its next prompt.
func (d Dir) FeedbackPath(phase string) string {
	return filepath.Join(string(d), phase+".feedback")
}

// ApprovalPath is the human-approval marker that unblocks a human-gated
// phase. The operator touches this file and resumes the run.
func (d Dir) ApprovalPath(phase string) string {
	return filepath.Join(string(d), phase+".human-approved")
}

// Approved reports whether the human-approval marker exists for a phase.
func (d Dir) Approved(phase string) bool {
	_, err := os.Stat(d.ApprovalPath(phase))
	return err == nil
}

// AttemptName returns the invocation name for a numbered retry.
func AttemptName(phase string, attempt int) string {
	return fmt.Sprintf("%s-attempt-%d", phase, attempt)
}

// PassName returns the invocation name for a numbered review pass.
func PassName(review string, pass int) string {
	return fmt.Sprintf("%s-pass%d", review, pass)
}

// WriteFileAtomic writes data atomically by writing to a temporary file,
// fsyncing, and renaming over the target. This prevents corruption from
// crashes mid-write; readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
