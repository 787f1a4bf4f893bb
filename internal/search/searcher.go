package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/remote"
	"github.com/rcliao/brain-jar/internal/store"
)

// ProfileLoader supplies the current user profile.
type ProfileLoader interface {
	Load(ctx context.Context) (*model.UserProfile, error)
}

// ContextSource packs relevant local memories into a budget.
type ContextSource interface {
	Context(ctx context.Context, p store.ContextParams) (*store.ContextResult, error)
}

// Options configures a Searcher. Everything but Completer may be nil.
type Options struct {
	Completer     Completer
	Profiles      ProfileLoader
	Memories      ContextSource
	Mirror        *remote.Mirror
	Dispatcher    *remote.Dispatcher
	RemoteTimeout time.Duration
	Logger        *logger.Logger
}

// Searcher runs enriched searches.
type Searcher struct {
	completer     Completer
	profiles      ProfileLoader
	memories      ContextSource
	mirror        *remote.Mirror
	dispatch      *remote.Dispatcher
	remoteTimeout time.Duration
	log           *logger.Logger
}

func NewSearcher(opts Options) *Searcher {
	s := &Searcher{
		completer:     opts.Completer,
		profiles:      opts.Profiles,
		memories:      opts.Memories,
		mirror:        opts.Mirror,
		dispatch:      opts.Dispatcher,
		remoteTimeout: opts.RemoteTimeout,
		log:           opts.Logger,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.remoteTimeout <= 0 {
		s.remoteTimeout = 5 * time.Second
	}
	return s
}

// Params describes one search.
type Params struct {
	Query          string
	IncludeProfile bool
	Scopes         []string
	// MemoryBudget is the token budget for local memories; 0 means 500, negative disables them
	MemoryBudget int
}

// Result is the answer and the prompt that produced it.
type Result struct {
	Answer   string                `json:"answer"`
	Prompt   string                `json:"prompt"`
	Memories []store.ContextMemory `json:"memories,omitempty"`
}

// Search builds the enriched prompt, asks the completer and records a short
// summary of the answer in the remote log in the background.
func (s *Searcher) Search(ctx context.Context, p Params) (*Result, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	res := &Result{}

	var b strings.Builder
	b.WriteString(query)

	if p.IncludeProfile && s.profiles != nil {
		prof, err := s.profiles.Load(ctx)
		if err != nil {
			s.log.Warn("profile unavailable for search context", "error", err)
		} else if cs := ContextString(prof); cs != "" {
			b.WriteString("\n\nUser context: ")
			b.WriteString(cs)
		}
	}

	if s.memories != nil && p.MemoryBudget >= 0 {
		budget := p.MemoryBudget
		if budget == 0 {
			budget = 500
		}
		packed, err := s.memories.Context(ctx, store.ContextParams{Scopes: p.Scopes, Query: query, Budget: budget})
		if err != nil {
			s.log.Warn("local memories unavailable for search context", "error", err)
		} else if len(packed.Memories) > 0 {
			res.Memories = packed.Memories
			b.WriteString("\n\nRelevant notes:")
			for _, m := range packed.Memories {
				b.WriteString("\n- ")
				b.WriteString(m.Content)
			}
		}
	}

	if p.IncludeProfile && s.mirror.Enabled() {
		rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
		past, err := s.mirror.SearchContext(rctx, query, 3)
		cancel()
		if err != nil {
			s.log.Warn("past searches unavailable", "error", err)
		} else if len(past) > 0 {
			b.WriteString("\n\nRelevant past searches:\n")
			b.WriteString(strings.Join(past, "\n"))
		}
	}

	res.Prompt = b.String()
	answer, err := s.completer.Complete(ctx, res.Prompt)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	res.Answer = answer

	if s.mirror.Enabled() && s.dispatch != nil {
		summary := SummarizeResult(answer)
		s.dispatch.Go("save search result", func(ctx context.Context) error {
			_, err := s.mirror.SaveSearchResult(ctx, query, summary)
			return err
		})
	}
	return res, nil
}

// ContextString renders the profile facts that help tailor an answer.
func ContextString(p *model.UserProfile) string {
	var parts []string
	if p.Identity.Role != "" {
		parts = append(parts, "Role: "+p.Identity.Role)
	}
	if len(p.Technical.Languages) > 0 {
		parts = append(parts, "Languages: "+strings.Join(p.Technical.Languages, ", "))
	}
	if len(p.Technical.Frameworks) > 0 {
		parts = append(parts, "Frameworks: "+strings.Join(p.Technical.Frameworks, ", "))
	}
	if v := p.WorkingStyle.Verbosity; v != "" && v != "adaptive" {
		parts = append(parts, "Prefers "+v+" explanations")
	}
	if len(p.Knowledge.Expert) > 0 {
		parts = append(parts, "Expert in: "+strings.Join(p.Knowledge.Expert, ", "))
	}
	if len(p.Knowledge.Learning) > 0 {
		parts = append(parts, "Currently learning: "+strings.Join(p.Knowledge.Learning, ", "))
	}
	return strings.Join(parts, "; ")
}

var newlines = regexp.MustCompile(`\n+`)

// SummarizeResult flattens an answer to one line of at most 100 characters.
func SummarizeResult(content string) string {
	cleaned := strings.TrimSpace(newlines.ReplaceAllString(content, " "))
	r := []rune(cleaned)
	if len(r) <= 100 {
		return cleaned
	}
	return string(r[:97]) + "..."
}
