package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/rcliao/brain-jar/internal/model"
)

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	Scopes []string // empty means all scopes
	Query  string
	Budget int // max tokens in output (rough proxy: 1 token ≈ 4 chars)
}

// ContextMemory is a scored record for context output.
type ContextMemory struct {
	ID      string  `json:"id"`
	Scope   string  `json:"scope"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Excerpt bool    `json:"excerpt,omitempty"`
}

// ContextResult is the assembled context response.
type ContextResult struct {
	Budget   int             `json:"budget"`
	Used     int             `json:"used"`
	Memories []ContextMemory `json:"memories"`
}

const (
	minTermLen    = 4
	maxCandidates = 50
)

// Context assembles the records most relevant to a free-text query within a
// token budget. Each query word is searched separately, since whole questions
// rarely occur verbatim in stored content.
func (s *SQLiteStore) Context(ctx context.Context, p ContextParams) (*ContextResult, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = 1000
	}
	charBudget := budget * 4

	terms := queryTerms(p.Query)
	scopes := p.Scopes
	if len(scopes) == 0 {
		scopes = []string{""}
	}

	hits := map[string]int{}
	byID := map[string]model.MemoryRecord{}
	for _, term := range terms {
		for _, scope := range scopes {
			recs, err := s.Search(ctx, SearchParams{Query: term, Scope: scope, Limit: maxCandidates})
			if err != nil {
				return nil, err
			}
			for _, r := range recs {
				if _, ok := byID[r.ID]; !ok {
					byID[r.ID] = r
				}
				hits[r.ID]++
			}
		}
	}

	result := &ContextResult{Budget: budget, Memories: []ContextMemory{}}
	if len(byID) == 0 {
		return result, nil
	}

	now := s.now()
	type scored struct {
		rec   model.MemoryRecord
		score float64
	}
	candidates := make([]scored, 0, len(byID))
	for id, r := range byID {
		relevance := float64(hits[id]) / float64(len(terms)*len(scopes))
		if relevance > 1 {
			relevance = 1
		}
		// exponential decay, roughly a week's half-life
		age := now.Sub(r.CreatedAt).Hours() / 24.0
		recency := math.Exp(-0.1 * age)
		candidates = append(candidates, scored{rec: r, score: relevance*0.6 + recency*0.4})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rec.CreatedAt.After(candidates[j].rec.CreatedAt)
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	used := 0
	for _, c := range candidates {
		contentLen := len(c.rec.Content)
		if used+contentLen <= charBudget {
			result.Memories = append(result.Memories, ContextMemory{
				ID:      c.rec.ID,
				Scope:   c.rec.Scope,
				Content: c.rec.Content,
				Score:   math.Round(c.score*100) / 100,
			})
			used += contentLen
			continue
		}
		if remaining := charBudget - used; remaining >= 100 {
			excerpt := truncateRunes(c.rec.Content, remaining) + "..."
			result.Memories = append(result.Memories, ContextMemory{
				ID:      c.rec.ID,
				Scope:   c.rec.Scope,
				Content: excerpt,
				Score:   math.Round(c.score*100) / 100,
				Excerpt: true,
			})
			used += len(excerpt)
		}
		break
	}

	result.Used = used / 4
	return result, nil
}

// queryTerms splits q into distinct words long enough to be meaningful.
func queryTerms(q string) []string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	seen := map[string]bool{}
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) < minTermLen || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

func truncateRunes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}
