// Package fileblocks extracts file-annotated fenced code blocks from agent
// output. The init flow asks the agent to emit whole files as:
//
//	```yaml file=.anvil/pipeline.yaml
//	...
//	```
//
// and this package turns that text back into (path, content) pairs.
package fileblocks

import (
	"regexp"
	"strings"
)

// FileBlock is one extracted file.
type FileBlock struct {
	Path    string
	Content string
}

var openRe = regexp.MustCompile("^```\\w*\\s*file=(\\S+)\\s*$")

// Parse returns the annotated blocks in order of appearance. Fences without
// a file= annotation are ignored, as is an unterminated final block.
func Parse(text string) []FileBlock {
	var (
		blocks  []FileBlock
		path    string
		content []string
		inside  bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inside {
			if m := openRe.FindStringSubmatch(trimmed); m != nil {
				path, content, inside = m[1], nil, true
			}
			continue
		}
		if trimmed == "```" {
			blocks = append(blocks, FileBlock{Path: path, Content: strings.Join(content, "\n")})
			inside = false
			continue
		}
		content = append(content, line)
	}
	return blocks
}
