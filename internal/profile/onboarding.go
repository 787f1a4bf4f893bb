package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

// Onboarding question categories, in the order they are asked.
const (
	CategoryIdentity     = "identity"
	CategoryTechnical    = "technical"
	CategoryWorkingStyle = "workingStyle"
	CategoryPersonal     = "personal"
)

// promptInterval is the minimum gap between two onboarding prompts.
const promptInterval = 3 * 24 * time.Hour

type question struct {
	model.OnboardingQuestion
	// unanswered reports whether the field still needs asking about
	unanswered func(p *model.UserProfile) bool
}

var questionBank = []question{
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryIdentity, Field: "identity.name",
			Question: "What name should I use for you?"},
		unanswered: func(p *model.UserProfile) bool { return p.Identity.Name == "" },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryIdentity, Field: "identity.timezone",
			Question: "What's your timezone?", FollowUp: "Helps me know when to wish you good morning!",
			Examples: []string{"America/New_York", "Europe/London", "Asia/Tokyo"}},
		unanswered: func(p *model.UserProfile) bool { return p.Identity.Timezone == "" },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryIdentity, Field: "identity.role",
			Question: "What's your primary role?",
			Examples: []string{"Developer", "Designer", "PM", "Founder", "Student"}},
		unanswered: func(p *model.UserProfile) bool { return p.Identity.Role == "" },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryTechnical, Field: "technical.languages",
			Question: "What programming languages do you use most?",
			Examples: []string{"TypeScript", "Python", "Go", "Rust"}, Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.Technical.Languages) == 0 },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryTechnical, Field: "technical.frameworks",
			Question: "Any frameworks you prefer?",
			Examples: []string{"React", "Next.js", "Django", "FastAPI"}, Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.Technical.Frameworks) == 0 },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryTechnical, Field: "technical.editors",
			Question: "What's your editor of choice?",
			Examples: []string{"VS Code", "Neovim", "JetBrains", "Cursor"}, Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.Technical.Editors) == 0 },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryWorkingStyle, Field: "workingStyle.verbosity",
			Question: "Do you prefer concise answers or detailed explanations?", Optional: true},
		unanswered: func(p *model.UserProfile) bool { return p.WorkingStyle.Verbosity == "adaptive" },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryWorkingStyle, Field: "workingStyle.priorities",
			Question: "What do you prioritize most in your work?",
			Examples: []string{"Code quality", "Speed", "Learning", "Maintainability"}, Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.WorkingStyle.Priorities) == 0 },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryPersonal, Field: "personal.goals",
			Question: "Any personal or professional goals you're working toward?",
			Examples: []string{"Learn Rust", "Ship my startup", "Get promoted"}, Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.Personal.Goals) == 0 },
	},
	{
		OnboardingQuestion: model.OnboardingQuestion{Category: CategoryPersonal, Field: "personal.interests",
			Question: "Any hobbies or interests outside of work?",
			FollowUp: "Feel free to skip if you'd rather not say", Optional: true},
		unanswered: func(p *model.UserProfile) bool { return len(p.Personal.Interests) == 0 },
	},
}

func categoryDone(p *model.UserProfile, category string) bool {
	prog := p.Meta.OnboardingProgress
	switch category {
	case CategoryIdentity:
		return prog.Identity
	case CategoryTechnical:
		return prog.Technical
	case CategoryWorkingStyle:
		return prog.WorkingStyle
	case CategoryPersonal:
		return prog.Personal
	}
	return true
}

// NextQuestions returns at most count questions for unanswered fields,
// walking categories in priority order and skipping completed ones.
func NextQuestions(p *model.UserProfile, count int) []model.OnboardingQuestion {
	if count <= 0 {
		count = 3
	}
	p.Normalize()
	out := []model.OnboardingQuestion{}
	for _, q := range questionBank {
		if len(out) == count {
			break
		}
		if categoryDone(p, q.Category) || !q.unanswered(p) {
			continue
		}
		out = append(out, q.OnboardingQuestion)
	}
	return out
}

// MarkCategoryComplete flags a category as done. Onboarding as a whole is
// complete once identity and technical are both done.
func (m *Manager) MarkCategoryComplete(ctx context.Context, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadLocked()
	if err != nil {
		return err
	}
	prog := p.Meta.OnboardingProgress
	switch category {
	case CategoryIdentity:
		prog.Identity = true
	case CategoryTechnical:
		prog.Technical = true
	case CategoryWorkingStyle:
		prog.WorkingStyle = true
	case CategoryPersonal:
		prog.Personal = true
	default:
		return fmt.Errorf("unknown onboarding category %q", category)
	}
	if prog.Identity && prog.Technical {
		p.Meta.OnboardingComplete = true
	}
	return m.saveLocked(ctx, p, false)
}

// RecordOnboardingPrompt stamps the time onboarding questions were last shown.
func (m *Manager) RecordOnboardingPrompt(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadLocked()
	if err != nil {
		return err
	}
	p.Meta.LastOnboardingPrompt = model.FormatISO(m.now())
	return m.saveLocked(ctx, p, false)
}

// ShouldPromptOnboarding reports whether onboarding is incomplete and the
// last prompt is more than three days old.
func (m *Manager) ShouldPromptOnboarding(p *model.UserProfile) bool {
	if p.Meta.OnboardingComplete {
		return false
	}
	if p.Meta.LastOnboardingPrompt == "" {
		return true
	}
	last, err := model.ParseISO(p.Meta.LastOnboardingPrompt)
	if err != nil {
		return true
	}
	return m.now().Sub(last) > promptInterval
}
