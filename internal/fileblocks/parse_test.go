package fileblocks

import "testing"

func TestParse_MultipleBlocks(t *testing.T) {
	text := "Here are your files.\n\n" +
		"```yaml file=.anvil/pipeline.yaml\n" +
		"name: demo\n" +
		"phases: []\n" +
		"```\n\n" +
		"And the prompt:\n\n" +
		"```markdown file=.anvil/prompts/scan.md\n" +
		"Scan the project.\n" +
		"```\n"

	blocks := Parse(text)
	if len(blocks) != 2 {
		t.Fatalf("len = %d, want 2", len(blocks))
	}
	if blocks[0].Path != ".anvil/pipeline.yaml" || blocks[0].Content != "name: demo\nphases: []" {
		t.Fatalf("block 0 = %+v", blocks[0])
	}
	if blocks[1].Path != ".anvil/prompts/scan.md" || blocks[1].Content != "Scan the project." {
		t.Fatalf("block 1 = %+v", blocks[1])
	}
}

func TestParse_IgnoresPlainFences(t *testing.T) {
	text := "```yaml\nname: not extracted\n```\n" +
		"```sh file=run.sh\necho hi\n```\n"
	blocks := Parse(text)
	if len(blocks) != 1 || blocks[0].Path != "run.sh" {
		t.Fatalf("got %+v", blocks)
	}
}

func TestParse_FenceNoLanguage(t *testing.T) {
	blocks := Parse("``` file=a.txt\nbody\n```\n")
	if len(blocks) != 1 || blocks[0].Path != "a.txt" || blocks[0].Content != "body" {
		t.Fatalf("got %+v", blocks)
	}
}

func TestParse_UnterminatedBlockDropped(t *testing.T) {
	text := "```yaml file=ok.yaml\na: 1\n```\n```yaml file=cut.yaml\nb: 2\n"
	blocks := Parse(text)
	if len(blocks) != 1 || blocks[0].Path != "ok.yaml" {
		t.Fatalf("got %+v", blocks)
	}
}

func TestParse_PreservesInnerIndentation(t *testing.T) {
	text := "```yaml file=p.yaml\nphases:\n  - name: scan\n```\n"
	blocks := Parse(text)
	if len(blocks) != 1 || blocks[0].Content != "phases:\n  - name: scan" {
		t.Fatalf("got %+v", blocks)
	}
}

func TestParse_Empty(t *testing.T) {
	if blocks := Parse("no fences anywhere"); blocks != nil {
		t.Fatalf("got %+v, want nil", blocks)
	}
}
