package agent

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/example/anvil/internal/ledger"
	"github.com/example/anvil/internal/runlog"
)

type cannedInvoker struct {
	res *Result
	err error
}

func (c *cannedInvoker) Invoke(_ context.Context, spec Spec) (*Result, error) {
	if c.err != nil {
		return nil, c.err
	}
	res := *c.res
	res.Name = spec.Name
	return &res, nil
}

func newExecutor(t *testing.T, inv Invoker) (*Executor, runlog.Dir) {
	t.Helper()
	dir, err := runlog.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	led, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	return &Executor{Invoker: inv, Dir: dir, Ledger: led}, dir
}

func TestRun_RecordsArtifactsAndCost(t *testing.T) {
	inv := &cannedInvoker{res: &Result{
		CostUSD: 2.5, Turns: 12, SessionID: "s-9",
		Text: "report body", Status: StatusOK, Log: "stderr stream",
	}}
	exec, dir := newExecutor(t, inv)

	res, err := exec.Run(context.Background(), Spec{Name: "implement-step-1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed() {
		t.Fatalf("got %+v", res)
	}

	loaded, err := LoadResult(dir, "implement-step-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Text != "report body" || loaded.CostUSD != 2.5 {
		t.Fatalf("round-tripped result = %+v", loaded)
	}

	log, err := os.ReadFile(dir.LogPath("implement-step-1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(log) != "stderr stream" {
		t.Fatalf("log = %q", log)
	}

	if exec.Ledger.Total != 2.5 {
		t.Fatalf("ledger total = %v", exec.Ledger.Total)
	}
	if !exec.Ledger.Completed("implement-step-1") {
		t.Fatal("ledger should record the invocation")
	}
}

func TestRun_FailedResultStillRecorded(t *testing.T) {
	inv := &cannedInvoker{res: &Result{
		CostUSD: 0.8, Text: "TIMEOUT after 5m0s",
		IsError: true, Status: StatusTimeout, ExitCode: 124,
	}}
	exec, dir := newExecutor(t, inv)

	res, err := exec.Run(context.Background(), Spec{Name: "verify-step-1-attempt-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Failed() {
		t.Fatal("timeout result must read as failed")
	}
	if _, err := LoadResult(dir, "verify-step-1-attempt-1"); err != nil {
		t.Fatal("failed invocations still leave artifacts:", err)
	}
	if exec.Ledger.Total != 0.8 {
		t.Fatal("failed invocations still cost money")
	}
}

func TestRun_InfrastructureError(t *testing.T) {
	exec, _ := newExecutor(t, &cannedInvoker{err: errors.New("spawn failed")})
	if _, err := exec.Run(context.Background(), Spec{Name: "x"}); err == nil {
		t.Fatal("want error")
	}
	if exec.Ledger.Total != 0 {
		t.Fatal("nothing should be recorded on an infrastructure fault")
	}
}
