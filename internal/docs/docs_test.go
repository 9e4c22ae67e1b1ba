package docs

import (
	"strings"
	"testing"
)

func TestAll_WellFormed(t *testing.T) {
	topics := All()
	if len(topics) == 0 {
		t.Fatal("no topics")
	}
	seen := make(map[string]bool)
	for _, topic := range topics {
		if topic.Name == "" || topic.Title == "" || topic.Summary == "" || topic.Content == "" {
			t.Fatalf("incomplete topic %+v", topic)
		}
		if seen[topic.Name] {
			t.Fatalf("duplicate topic name %q", topic.Name)
		}
		seen[topic.Name] = true
		if strings.Contains(topic.Name, " ") {
			t.Fatalf("topic name %q is not a slug", topic.Name)
		}
	}
	for _, want := range []string{"quickstart", "config", "tiers", "gates", "budgets", "resume"} {
		if !seen[want] {
			t.Fatalf("missing topic %q", want)
		}
	}
}

func TestGet(t *testing.T) {
	topic, err := Get("tiers")
	if err != nil {
		t.Fatal(err)
	}
	if topic.Name != "tiers" {
		t.Fatalf("got %q", topic.Name)
	}
	if _, err := Get("nope"); err == nil {
		t.Fatal("unknown topic should error")
	}
}
