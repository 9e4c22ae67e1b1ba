package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/anvil/internal/ledger"
	"github.com/example/anvil/internal/runlog"
)

// Executor runs invocations and records their evidence: one result
// artifact, one diagnostic log, and exactly one ledger record per call.
type Executor struct {
	Invoker Invoker
	Dir     runlog.Dir
	Ledger  *ledger.Ledger
}

// Run performs one invocation. Agent-level failures (nonzero exit, timeout,
// is_error) come back inside the Result; the error return is reserved for
// infrastructure faults — a failed spawn or an unwritable run directory.
func (e *Executor) Run(ctx context.Context, spec Spec) (*Result, error) {
	res, err := e.Invoker.Invoke(ctx, spec)
	if err != nil {
		return nil, err
	}

	if err := e.Record(spec.Name, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Record writes an invocation's artifacts and appends its ledger record.
// It exists separately from Run for the fan-out path, where invocations
// overlap but recording stays single-writer.
func (e *Executor) Record(name string, res *Result) error {
	if err := e.writeArtifacts(name, res); err != nil {
		return err
	}
	if err := e.Ledger.Append(ledger.Record{
		Name:      name,
		Cost:      res.CostUSD,
		Turns:     res.Turns,
		SessionID: res.SessionID,
	}); err != nil {
		return fmt.Errorf("recording cost for %s: %w", name, err)
	}
	return nil
}

func (e *Executor) writeArtifacts(name string, res *Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.Dir.ResultPath(name), data, 0644); err != nil {
		return fmt.Errorf("writing result artifact for %s: %w", name, err)
	}
	if err := os.WriteFile(e.Dir.LogPath(name), []byte(res.Log), 0644); err != nil {
		return fmt.Errorf("writing diagnostic log for %s: %w", name, err)
	}
	return nil
}

// LoadResult reads a previously written result artifact.
func LoadResult(dir runlog.Dir, name string) (*Result, error) {
	data, err := os.ReadFile(dir.ResultPath(name))
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing result artifact %s: %w", name, err)
	}
	return &res, nil
}
