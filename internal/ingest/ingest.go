// Package ingest splits a markdown notes document into memory-sized sections.
package ingest

import (
	"strings"
	"unicode"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 800
)

// Options configures splitting. Sizes are in runes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default splitting options.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, MaxSize: DefaultMaxSize}
}

// Section is one piece of a document and the heading it sits under.
type Section struct {
	Heading   string
	Text      string
	StartLine int
	EndLine   int
}

// Content renders the section as a memory body, heading first.
func (s Section) Content() string {
	if s.Heading == "" {
		return s.Text
	}
	return s.Heading + "\n\n" + s.Text
}

// Tag is a slug of the heading, or "" when the section has none.
func (s Section) Tag() string {
	return Slug(s.Heading)
}

// paragraph is a run of non-blank lines under one heading.
type paragraph struct {
	heading   string
	text      string
	startLine int
	endLine   int
}

// Split breaks doc into sections. Headings start a new section and are never
// merged across; paragraphs under one heading are merged up to TargetSize and
// paragraphs over MaxSize are split on line boundaries. Fenced code blocks
// are kept whole where they fit.
func Split(doc string, opts Options) []Section {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	if strings.TrimSpace(doc) == "" {
		return nil
	}

	var out []Section
	paras := paragraphs(doc)
	for i := 0; i < len(paras); {
		acc := paras[i]
		i++
		for i < len(paras) && paras[i].heading == acc.heading {
			combined := acc.text + "\n\n" + paras[i].text
			if runeLen(combined) > opts.TargetSize {
				break
			}
			acc.text = combined
			acc.endLine = paras[i].endLine
			i++
		}
		if runeLen(acc.text) > opts.MaxSize {
			out = append(out, hardSplit(acc, opts)...)
			continue
		}
		out = append(out, Section{Heading: acc.heading, Text: acc.text, StartLine: acc.startLine, EndLine: acc.endLine})
	}
	return out
}

func paragraphs(doc string) []paragraph {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	var (
		out     []paragraph
		current []string
		heading string
		start   int
		inFence bool
	)
	flush := func(end int) {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			out = append(out, paragraph{heading: heading, text: t, startLine: start, endLine: end})
		}
		current = nil
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		} else if !inFence {
			if h, ok := headingText(trimmed); ok {
				flush(lineNum - 1)
				heading = h
				continue
			}
			if trimmed == "" {
				flush(lineNum - 1)
				continue
			}
		}
		if len(current) == 0 {
			start = lineNum
		}
		current = append(current, line)
	}
	flush(len(lines))
	return out
}

// headingText returns the text of an ATX heading line.
func headingText(line string) (string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", false
	}
	rest := line[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#")), true
}

// hardSplit breaks an oversized paragraph on line boundaries near TargetSize.
func hardSplit(p paragraph, opts Options) []Section {
	lines := strings.Split(p.text, "\n")
	var (
		out      []Section
		current  []string
		curStart = p.startLine
		curLen   int
	)
	for i, line := range lines {
		n := runeLen(line)
		if curLen+n > opts.TargetSize && len(current) > 0 {
			if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
				out = append(out, Section{Heading: p.heading, Text: t, StartLine: curStart, EndLine: p.startLine + i - 1})
			}
			current = nil
			curStart = p.startLine + i
			curLen = 0
		}
		current = append(current, line)
		curLen += n + 1
	}
	if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
		out = append(out, Section{Heading: p.heading, Text: t, StartLine: curStart, EndLine: p.startLine + len(lines) - 1})
	}
	return out
}

// Slug lowercases s and joins its letter and digit runs with hyphens.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

func runeLen(s string) int { return len([]rune(s)) }
