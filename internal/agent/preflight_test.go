package agent

import (
	"strings"
	"testing"
)

func TestPreflight_AllPresent(t *testing.T) {
	if err := Preflight("sh"); err != nil {
		t.Fatalf("preflight with sh: %v", err)
	}
}

func TestPreflight_MissingAgent(t *testing.T) {
	err := Preflight("definitely-not-a-real-binary-4021")
	if err == nil {
		t.Fatal("expected error for missing agent binary")
	}
	if !strings.Contains(err.Error(), "definitely-not-a-real-binary-4021") {
		t.Fatalf("error should name the missing binary: %v", err)
	}
	if !strings.Contains(err.Error(), "required binaries not found in PATH") {
		t.Fatalf("unexpected message: %v", err)
	}
}
