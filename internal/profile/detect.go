package profile

import (
	"context"
	"regexp"
	"strings"

	"github.com/rcliao/brain-jar/internal/model"
)

type textRule struct {
	field      Field
	re         *regexp.Regexp
	confidence string
	// split breaks a captured phrase into several values
	split bool
}

var textRules = []textRule{
	{field: TechnicalLanguages, confidence: "medium",
		re: regexp.MustCompile(`\b(TypeScript|JavaScript|Python|Java|Go|Rust|Ruby|PHP|Swift|Kotlin)\b|(C\+\+)`)},
	{field: TechnicalFrameworks, confidence: "medium",
		re: regexp.MustCompile(`\b(React|Vue|Angular|Express|Django|Flask|FastAPI|Rails|Spring|Next\.js|Nuxt|Svelte)\b`)},
	{field: TechnicalEditors, confidence: "medium",
		re: regexp.MustCompile(`\b(VS Code|Neovim|Vim|Emacs|JetBrains|Cursor|Zed)\b`)},
	{field: IdentityRole, confidence: "high",
		re: regexp.MustCompile(`(?i)\bI(?:'m| am) an? ((?:[a-z-]+ )?(?:developer|engineer|designer|manager|founder|student|researcher))\b`)},
	{field: KnowledgeLearning, confidence: "medium", split: true,
		re: regexp.MustCompile(`(?i)\b(?:want to learn|learning|studying)\s+([^.,!?\n]+)`)},
	{field: KnowledgeExpert, confidence: "low",
		re: regexp.MustCompile(`(?i)\b(?:expert|advanced)\s+(?:at|in|with)\s+([A-Za-z][\w.+#-]*)`)},
}

var andSplit = regexp.MustCompile(`\s+and\s+`)

// DetectFromText scans conversation text for preference statements and
// returns candidates for values the profile does not already hold.
// Scalar fields are only proposed while empty.
func DetectFromText(text string, p *model.UserProfile) []Candidate {
	seen := map[string]bool{}
	var out []Candidate
	for _, rule := range textRules {
		if !rule.field.IsList() && !rule.field.Read(p).Empty() {
			continue
		}
		for _, m := range rule.re.FindAllStringSubmatch(text, -1) {
			captured := firstGroup(m)
			values := []string{captured}
			if rule.split {
				values = andSplit.Split(captured, -1)
			}
			for _, v := range values {
				v = strings.TrimRight(strings.TrimSpace(v), ".")
				key := rule.field.String() + "\x00" + strings.ToLower(v)
				if v == "" || seen[key] || holds(rule.field, p, v) {
					continue
				}
				seen[key] = true
				out = append(out, Candidate{
					Field:      rule.field.String(),
					Value:      valueFor(rule.field, v),
					Confidence: rule.confidence,
					Evidence:   strings.TrimSpace(m[0]),
					Source:     "conversation",
				})
			}
		}
	}
	return out
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// holds reports whether the profile already carries v in field, ignoring case.
func holds(f Field, p *model.UserProfile, v string) bool {
	cur := f.Read(p)
	if !cur.IsList {
		return strings.EqualFold(cur.Scalar, v)
	}
	for _, have := range cur.List {
		if strings.EqualFold(have, v) {
			return true
		}
	}
	return false
}

func valueFor(f Field, v string) model.Value {
	if f.IsList() {
		return model.ListValue(v)
	}
	return model.StringValue(v)
}

// QueueCandidates adds candidates as pending inferences, skipping any whose
// field and value already have a pending inference.
func (m *Manager) QueueCandidates(ctx context.Context, cands []Candidate) ([]model.InferredPreference, error) {
	pending, err := m.PendingInferences(ctx)
	if err != nil {
		return nil, err
	}
	queued := map[string]bool{}
	for _, inf := range pending {
		queued[inf.Field+"\x00"+strings.ToLower(inf.Value.String())] = true
	}

	added := []model.InferredPreference{}
	for _, c := range cands {
		key := c.Field + "\x00" + strings.ToLower(c.Value.String())
		if queued[key] {
			continue
		}
		inf, err := m.AddInference(ctx, c)
		if err != nil {
			return added, err
		}
		queued[key] = true
		added = append(added, *inf)
	}
	return added, nil
}
