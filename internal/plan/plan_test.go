package plan

import (
	"strings"
	"testing"
)

func TestParse_EmbeddedArray(t *testing.T) {
	text := "Here is the plan:\n\n```json\n" +
		`[{"id": "wire-codec", "title": "Wire codec", "description": "Frame reader"},
		  {"title": "Storage", "description": "Persist frames"}]` +
		"\n```\nEnd of plan."

	items := Parse(text, 0)
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != "wire-codec" {
		t.Fatalf("id[0] = %q", items[0].ID)
	}
	if items[1].ID != "step-2" {
		t.Fatalf("missing id should be positional, got %q", items[1].ID)
	}
}

func TestParse_Cap(t *testing.T) {
	text := `[{"title":"a","description":"a"},{"title":"b","description":"b"},{"title":"c","description":"c"}]`
	if got := len(Parse(text, 2)); got != 2 {
		t.Fatalf("capped len = %d, want 2", got)
	}
	if got := len(Parse(text, 0)); got != 3 {
		t.Fatalf("uncapped len = %d, want 3", got)
	}
}

func TestParse_DropsEmptyItems(t *testing.T) {
	text := `[{"title":"  ","description":""},{"id":"x","title":"real","description":"d"}]`
	items := Parse(text, 0)
	if len(items) != 1 || items[0].ID != "x" {
		t.Fatalf("got %+v", items)
	}
}

func TestParse_SanitizesIDs(t *testing.T) {
	text := `[{"id":"fix bug #7 (urgent)","title":"t","description":"d"}]`
	items := Parse(text, 0)
	if len(items) != 1 {
		t.Fatalf("len = %d", len(items))
	}
	if got := items[0].ID; got != "fix-bug-7-urgent-" {
		t.Fatalf("sanitized id = %q", got)
	}
}

func TestParse_NoArray(t *testing.T) {
	for _, text := range []string{"no plan here", "", "n/a", `{"id":"x"}`} {
		if items := Parse(text, 0); items != nil {
			t.Fatalf("Parse(%q) = %+v, want nil", text, items)
		}
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if items := Parse(`[{"title": broken}]`, 0); items != nil {
		t.Fatalf("got %+v, want nil", items)
	}
}

func TestFallback(t *testing.T) {
	it := Fallback("add retry logic")
	if !strings.HasPrefix(it.ID, "step-") || len(it.ID) != len("step-")+8 {
		t.Fatalf("fallback id = %q", it.ID)
	}
	if it.Title != "add retry logic" {
		t.Fatalf("title = %q", it.Title)
	}
	if Fallback("x").ID == it.ID {
		t.Fatal("fallback ids should be unique")
	}
}
