package agent

import (
	"fmt"
	"os/exec"
	"strings"
)

// Preflight checks that the binaries a run shells out to are available on
// PATH before any agent money is spent: the agent command itself, and git
// for the progress tracker.
func Preflight(agentCommand string) error {
	var missing []string
	for _, bin := range []string{agentCommand, "git"} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required binaries not found in PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
