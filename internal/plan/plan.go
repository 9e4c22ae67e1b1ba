// Package plan extracts the ordered work item list from the planning
// phase's output.
package plan

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Item is one unit of implementation work.
type Item struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var arrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// Parse extracts a JSON array of work items from agent output. The array
// may be embedded in surrounding prose or markdown fences. Items with no id
// get a positional one; items beyond cap are dropped. Output that yields no
// items returns nil — the caller decides on a fallback.
func Parse(text string, maxItems int) []Item {
	m := arrayRe.FindString(text)
	if m == "" {
		return nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(m), &items); err != nil {
		return nil
	}

	kept := items[:0]
	for i, it := range items {
		if strings.TrimSpace(it.Title) == "" && strings.TrimSpace(it.Description) == "" {
			continue
		}
		if strings.TrimSpace(it.ID) == "" {
			it.ID = itemID(i + 1)
		}
		it.ID = sanitizeID(it.ID)
		kept = append(kept, it)
		if maxItems > 0 && len(kept) >= maxItems {
			break
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Fallback returns the single synthetic item used when planning yields
// nothing: the whole ticket becomes one unit of work.
func Fallback(ticket string) Item {
	return Item{
		ID:          "step-" + uuid.NewString()[:8],
		Title:       ticket,
		Description: "Implement the ticket as a single unit of work.",
	}
}

func itemID(n int) string {
	return "step-" + strconv.Itoa(n)
}

var idRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeID makes an item id safe for use in file names (block reports,
// per-attempt logs).
func sanitizeID(id string) string {
	return idRe.ReplaceAllString(id, "-")
}
