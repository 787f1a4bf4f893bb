package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/brain-jar/internal/ingest"
	"github.com/rcliao/brain-jar/internal/model"
)

// DocumentParams holds a markdown document to store as a set of memories.
type DocumentParams struct {
	Text   string
	Name   string // recorded as a "doc:<slug>" tag when set
	Scope  string
	Tags   []string
	Source model.Source
	Split  ingest.Options
}

// AddDocument splits a markdown document into sections and stores each as its
// own memory, tagged with its heading. Sections already stored stay stored
// when a later one fails.
func (s *Service) AddDocument(ctx context.Context, p DocumentParams) ([]*AddResult, error) {
	sections := ingest.Split(p.Text, p.Split)
	if len(sections) == 0 {
		return nil, ErrEmptyContent
	}

	base := append([]string{}, p.Tags...)
	if slug := ingest.Slug(p.Name); slug != "" {
		base = append(base, "doc:"+slug)
	}
	src := p.Source
	if src.Action == "" {
		src.Action = "ingest"
	}

	out := make([]*AddResult, 0, len(sections))
	for i, sec := range sections {
		tags := append([]string{}, base...)
		if t := sec.Tag(); t != "" && !contains(tags, t) {
			tags = append(tags, t)
		}
		res, err := s.Add(ctx, AddParams{
			Content: sec.Content(),
			Scope:   p.Scope,
			Tags:    tags,
			Source:  src,
		})
		if err != nil {
			return out, fmt.Errorf("section %d (lines %d-%d): %w", i+1, sec.StartLine, sec.EndLine, err)
		}
		out = append(out, res)
	}
	s.log.Debug("document ingested", "name", p.Name, "sections", len(out))
	return out, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
