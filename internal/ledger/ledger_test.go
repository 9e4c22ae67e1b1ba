package ledger

import (
	"math"
	"testing"

	"github.com/example/anvil/internal/runlog"
)

func tempDir(t *testing.T) runlog.Dir {
	t.Helper()
	dir, err := runlog.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAppend_TotalInvariant(t *testing.T) {
	l := New(tempDir(t))

	costs := []float64{2.00, 1.00, 0.25}
	sum := 0.0
	for i, c := range costs {
		if err := l.Append(Record{Name: "p", Cost: c, Turns: i}); err != nil {
			t.Fatal(err)
		}
		sum += c
		if math.Abs(l.Total-sum) > 1e-9 {
			t.Fatalf("Total = %f, want %f", l.Total, sum)
		}
	}
}

func TestLoad_RecomputesTotal(t *testing.T) {
	dir := tempDir(t)
	l := New(dir)
	if err := l.Append(Record{Name: "implement", Cost: 2}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(Record{Name: "verify", Cost: 1}); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Total != 3 {
		t.Fatalf("Total = %f, want 3", loaded.Total)
	}
	if len(loaded.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(loaded.Records))
	}
	// Appending after load keeps the invariant over the full record set.
	if err := loaded.Append(Record{Name: "ship", Cost: 0.5}); err != nil {
		t.Fatal(err)
	}
	if loaded.Total != 3.5 {
		t.Fatalf("Total after append = %f, want 3.5", loaded.Total)
	}
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	l, err := Load(tempDir(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Records) != 0 || l.Total != 0 {
		t.Fatalf("empty ledger: records=%d total=%f", len(l.Records), l.Total)
	}
	if l.Status != "running" {
		t.Fatalf("Status = %q, want running", l.Status)
	}
}

func TestCompleted(t *testing.T) {
	l := New(tempDir(t))
	if err := l.Append(Record{Name: "interrogate", Cost: 1}); err != nil {
		t.Fatal(err)
	}
	if !l.Completed("interrogate") {
		t.Fatal("interrogate should be completed")
	}
	if l.Completed("interrogate-attempt-2") {
		t.Fatal("attempt names are distinct invocations")
	}
	names := l.CompletedNames()
	if !names["interrogate"] || len(names) != 1 {
		t.Fatalf("CompletedNames = %v", names)
	}
}

func TestSetStatus_Persists(t *testing.T) {
	dir := tempDir(t)
	l := New(dir)
	if err := l.SetStatus("cost_exceeded"); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != "cost_exceeded" {
		t.Fatalf("Status = %q", loaded.Status)
	}
}
