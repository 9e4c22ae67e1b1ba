package runlog

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var runDirRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{4}-[0-9a-f]{8}$`)

func TestNew_NamePattern(t *testing.T) {
	base := t.TempDir()
	d, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(string(d))
	if !runDirRe.MatchString(name) {
		t.Fatalf("run dir name %q does not match pattern", name)
	}
	info, err := os.Stat(string(d))
	if err != nil || !info.IsDir() {
		t.Fatalf("run dir not created: %v", err)
	}
}

func TestNew_Unique(t *testing.T) {
	base := t.TempDir()
	a, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two runs got the same directory")
	}
}

func TestOpen(t *testing.T) {
	base := t.TempDir()
	d, err := New(base)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(string(d)); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(filepath.Join(base, "missing")); err == nil {
		t.Fatal("missing dir should error")
	}
	file := filepath.Join(base, "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(file); err == nil {
		t.Fatal("plain file should error")
	}
}

func TestNames(t *testing.T) {
	if got := AttemptName("implement-step-2", 3); got != "implement-step-2-attempt-3" {
		t.Fatalf("AttemptName = %q", got)
	}
	if got := PassName("doc-review", 2); got != "doc-review-pass2" {
		t.Fatalf("PassName = %q", got)
	}
}

func TestPaths(t *testing.T) {
	d := Dir("/runs/x")
	cases := []struct{ got, want string }{
		{d.CostsPath(), "/runs/x/costs.json"},
		{d.CheckpointPath(), "/runs/x/checkpoint.json"},
		{d.TimingPath(), "/runs/x/timing.json"},
		{d.ResultPath("verify-attempt-2"), "/runs/x/verify-attempt-2.json"},
		{d.LogPath("verify-attempt-2"), "/runs/x/verify-attempt-2.log"},
		{d.BlockReportPath("step-3"), "/runs/x/blocked-step-3.txt"},
		{d.FeedbackPath("implement"), "/runs/x/implement.feedback"},
		{d.ApprovalPath("ship"), "/runs/x/ship.human-approved"},
	}
	for _, tc := range cases {
		if tc.got != filepath.FromSlash(tc.want) {
			t.Fatalf("got %q, want %q", tc.got, tc.want)
		}
	}
}

func TestApproved(t *testing.T) {
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if d.Approved("ship") {
		t.Fatal("no marker yet")
	}
	if err := os.WriteFile(d.ApprovalPath("ship"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !d.Approved("ship") {
		t.Fatal("marker should approve the phase")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.json")
	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Fatalf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}
