package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// stubAgent writes a shell script standing in for the agent binary.
func stubAgent(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInvoke_ParsesEnvelope(t *testing.T) {
	bin := stubAgent(t, `echo "diag line" >&2
printf '{"result":"done\\nVERDICT: PASS","total_cost_usd":1.25,"session_id":"s-1","is_error":false,"num_turns":7}'
`)
	inv := &CLIInvoker{Command: bin, WorkDir: t.TempDir()}

	res, err := inv.Invoke(context.Background(), Spec{
		Name: "interrogate", Prompt: "p", Model: "sonnet",
		MaxTurns: 10, MaxBudgetUSD: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.CostUSD != 1.25 || res.Turns != 7 || res.SessionID != "s-1" {
		t.Fatalf("metering = %v %v %q", res.CostUSD, res.Turns, res.SessionID)
	}
	if !strings.Contains(res.Text, "VERDICT: PASS") {
		t.Fatalf("text = %q", res.Text)
	}
	if !strings.Contains(res.Log, "diag line") {
		t.Fatalf("log = %q", res.Log)
	}
	if res.Duration <= 0 {
		t.Fatal("duration not measured")
	}
}

func TestInvoke_PassesCaps(t *testing.T) {
	dir := t.TempDir()
	bin := stubAgent(t, `echo "$@" > args.txt
printf '{"result":"ok"}'
`)
	inv := &CLIInvoker{Command: bin, WorkDir: dir}

	_, err := inv.Invoke(context.Background(), Spec{
		Name: "x", Prompt: "the prompt", Model: "opus",
		MaxTurns: 40, MaxBudgetUSD: 8,
		ExtraArgs: []string{"--allowed-tools", "Edit"},
	})
	if err != nil {
		t.Fatal(err)
	}
	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"the prompt", "--max-turns 40", "--max-budget-usd 8.00", "--model opus", "--allowed-tools Edit"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
}

func TestInvoke_TimeoutSentinel(t *testing.T) {
	bin := stubAgent(t, "sleep 10\n")
	inv := &CLIInvoker{Command: bin, WorkDir: t.TempDir()}

	start := time.Now()
	res, err := inv.Invoke(context.Background(), Spec{Name: "x", Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 8*time.Second {
		t.Fatal("process was not killed on timeout")
	}
	if res.Status != StatusTimeout || res.ExitCode != 124 {
		t.Fatalf("status = %q code = %d", res.Status, res.ExitCode)
	}
	if !res.Failed() {
		t.Fatal("timeout must read as failed")
	}
	if !strings.Contains(res.Text, "TIMEOUT") {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestInvoke_NonzeroExit(t *testing.T) {
	bin := stubAgent(t, `printf '{"result":"partial"}'
exit 3
`)
	inv := &CLIInvoker{Command: bin, WorkDir: t.TempDir()}

	res, err := inv.Invoke(context.Background(), Spec{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusError || res.ExitCode != 3 || !res.Failed() {
		t.Fatalf("got %+v", res)
	}
	if res.Text != "partial" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestInvoke_ErrorEnvelope(t *testing.T) {
	bin := stubAgent(t, `printf '{"result":"rate limited","is_error":true,"total_cost_usd":0.05}'`)
	inv := &CLIInvoker{Command: bin, WorkDir: t.TempDir()}

	res, err := inv.Invoke(context.Background(), Spec{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || res.Status != StatusError {
		t.Fatalf("got %+v", res)
	}
	if res.CostUSD != 0.05 {
		t.Fatal("failed calls still meter their cost")
	}
}

func TestInvoke_MalformedEnvelope(t *testing.T) {
	bin := stubAgent(t, `echo "not json"`)
	inv := &CLIInvoker{Command: bin, WorkDir: t.TempDir()}

	res, err := inv.Invoke(context.Background(), Spec{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed() || res.Text != "" || res.CostUSD != 0 {
		t.Fatalf("malformed envelope should read as empty result, got %+v", res)
	}
}

func TestInvoke_SpawnFailure(t *testing.T) {
	inv := &CLIInvoker{Command: "/nonexistent/agent", WorkDir: t.TempDir()}
	if _, err := inv.Invoke(context.Background(), Spec{Name: "x"}); err == nil {
		t.Fatal("missing binary must surface as an error, not a result")
	}
}
