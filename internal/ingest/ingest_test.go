package ingest

import (
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	if got := Split("  \n\n", DefaultOptions()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSplit_ShortDocument(t *testing.T) {
	got := Split("Prefer table-driven tests.", DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %d", len(got))
	}
	if got[0].Heading != "" || got[0].Text != "Prefer table-driven tests." {
		t.Errorf("unexpected section %+v", got[0])
	}
	if got[0].StartLine != 1 || got[0].EndLine != 1 {
		t.Errorf("lines = %d-%d, want 1-1", got[0].StartLine, got[0].EndLine)
	}
}

func TestSplit_HeadingsStartSections(t *testing.T) {
	doc := "# Build\n\nRun make.\n\n## Deploy\n\nUse the staging cluster first.\nThen prod."
	got := Split(doc, DefaultOptions())
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(got), got)
	}
	if got[0].Heading != "Build" || got[0].Text != "Run make." {
		t.Errorf("section 0 = %+v", got[0])
	}
	if got[1].Heading != "Deploy" || got[1].StartLine != 7 || got[1].EndLine != 8 {
		t.Errorf("section 1 = %+v", got[1])
	}
	if got[1].Content() != "Deploy\n\nUse the staging cluster first.\nThen prod." {
		t.Errorf("content = %q", got[1].Content())
	}
}

func TestSplit_MergesParagraphsUnderHeading(t *testing.T) {
	doc := "# Notes\n\nFirst point.\n\nSecond point.\n\nThird point."
	got := Split(doc, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 merged section, got %d", len(got))
	}
	if got[0].Text != "First point.\n\nSecond point.\n\nThird point." {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestSplit_RespectsTargetSize(t *testing.T) {
	para := strings.Repeat("word ", 30) // 150 runes
	doc := "# Long\n\n" + para + "\n\n" + para + "\n\n" + para
	got := Split(doc, Options{TargetSize: 320, MaxSize: 500})
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}
	for _, s := range got {
		if s.Heading != "Long" {
			t.Errorf("heading = %q", s.Heading)
		}
	}
}

func TestSplit_HardSplitsOversizedParagraph(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This is a line of text that is about fifty runes long.")
	}
	got := Split(strings.Join(lines, "\n"), Options{TargetSize: 200, MaxSize: 300})
	if len(got) < 4 {
		t.Fatalf("expected at least 4 sections, got %d", len(got))
	}
	for _, s := range got {
		if runeLen(s.Text) > 300 {
			t.Errorf("section of %d runes exceeds max", runeLen(s.Text))
		}
	}
	if got[0].StartLine != 1 || got[len(got)-1].EndLine != 20 {
		t.Errorf("line span = %d-%d", got[0].StartLine, got[len(got)-1].EndLine)
	}
}

func TestSplit_KeepsCodeFencesTogether(t *testing.T) {
	doc := "# Snippet\n\n```sh\n# not a heading\n\nmake test\n```"
	got := Split(doc, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 section, got %d: %+v", len(got), got)
	}
	if !strings.Contains(got[0].Text, "# not a heading\n\nmake test") {
		t.Errorf("fence was split: %q", got[0].Text)
	}
}

func TestHeadingText(t *testing.T) {
	cases := map[string]string{
		"# Title":      "Title",
		"### Deep ###": "Deep",
		"#":            "",
	}
	for in, want := range cases {
		got, ok := headingText(in)
		if !ok || got != want {
			t.Errorf("headingText(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"#hashtag", "####### seven", "plain"} {
		if _, ok := headingText(in); ok {
			t.Errorf("headingText(%q) should not be a heading", in)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Build & Deploy":  "build-deploy",
		"  Go 1.25 notes": "go-1-25-notes",
		"":                "",
		"Café":            "café",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
