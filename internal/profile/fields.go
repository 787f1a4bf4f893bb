package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/brain-jar/internal/model"
)

var (
	// ErrUnknownField is returned for a dot path outside the profile schema.
	ErrUnknownField = errors.New("unknown profile field")
	// ErrFieldType is returned when a value does not fit the field's shape or domain.
	ErrFieldType = errors.New("invalid value for profile field")
)

// Field is one addressable profile path such as "technical.languages".
// The set is closed: only paths listed in fieldTable resolve.
type Field int

const (
	fieldInvalid Field = iota
	IdentityName
	IdentityPronouns
	IdentityTimezone
	IdentityLocation
	IdentityRole
	IdentityOrganization
	TechnicalLanguages
	TechnicalFrameworks
	TechnicalTools
	TechnicalEditors
	TechnicalPatterns
	TechnicalOperatingSystems
	WorkingStyleVerbosity
	WorkingStyleLearningPace
	WorkingStyleCommunicationStyle
	WorkingStylePriorities
	KnowledgeExpert
	KnowledgeProficient
	KnowledgeLearning
	KnowledgeInterests
	PersonalInterests
	PersonalGoals
	PersonalContext
)

type fieldSpec struct {
	path   string
	scalar func(*model.UserProfile) *string
	list   func(*model.UserProfile) *[]string
	// allowed restricts scalar values; nil means any string
	allowed []string
}

var fieldTable = map[Field]fieldSpec{
	IdentityName:         {path: "identity.name", scalar: func(p *model.UserProfile) *string { return &p.Identity.Name }},
	IdentityPronouns:     {path: "identity.pronouns", scalar: func(p *model.UserProfile) *string { return &p.Identity.Pronouns }},
	IdentityTimezone:     {path: "identity.timezone", scalar: func(p *model.UserProfile) *string { return &p.Identity.Timezone }},
	IdentityLocation:     {path: "identity.location", scalar: func(p *model.UserProfile) *string { return &p.Identity.Location }},
	IdentityRole:         {path: "identity.role", scalar: func(p *model.UserProfile) *string { return &p.Identity.Role }},
	IdentityOrganization: {path: "identity.organization", scalar: func(p *model.UserProfile) *string { return &p.Identity.Organization }},

	TechnicalLanguages:        {path: "technical.languages", list: func(p *model.UserProfile) *[]string { return &p.Technical.Languages }},
	TechnicalFrameworks:       {path: "technical.frameworks", list: func(p *model.UserProfile) *[]string { return &p.Technical.Frameworks }},
	TechnicalTools:            {path: "technical.tools", list: func(p *model.UserProfile) *[]string { return &p.Technical.Tools }},
	TechnicalEditors:          {path: "technical.editors", list: func(p *model.UserProfile) *[]string { return &p.Technical.Editors }},
	TechnicalPatterns:         {path: "technical.patterns", list: func(p *model.UserProfile) *[]string { return &p.Technical.Patterns }},
	TechnicalOperatingSystems: {path: "technical.operatingSystems", list: func(p *model.UserProfile) *[]string { return &p.Technical.OperatingSystems }},

	WorkingStyleVerbosity: {
		path:    "workingStyle.verbosity",
		scalar:  func(p *model.UserProfile) *string { return &p.WorkingStyle.Verbosity },
		allowed: []string{"concise", "detailed", "adaptive"},
	},
	WorkingStyleLearningPace: {
		path:    "workingStyle.learningPace",
		scalar:  func(p *model.UserProfile) *string { return &p.WorkingStyle.LearningPace },
		allowed: []string{"fast", "thorough", "adaptive"},
	},
	WorkingStyleCommunicationStyle: {path: "workingStyle.communicationStyle", scalar: func(p *model.UserProfile) *string { return &p.WorkingStyle.CommunicationStyle }},
	WorkingStylePriorities:         {path: "workingStyle.priorities", list: func(p *model.UserProfile) *[]string { return &p.WorkingStyle.Priorities }},

	KnowledgeExpert:     {path: "knowledge.expert", list: func(p *model.UserProfile) *[]string { return &p.Knowledge.Expert }},
	KnowledgeProficient: {path: "knowledge.proficient", list: func(p *model.UserProfile) *[]string { return &p.Knowledge.Proficient }},
	KnowledgeLearning:   {path: "knowledge.learning", list: func(p *model.UserProfile) *[]string { return &p.Knowledge.Learning }},
	KnowledgeInterests:  {path: "knowledge.interests", list: func(p *model.UserProfile) *[]string { return &p.Knowledge.Interests }},

	PersonalInterests: {path: "personal.interests", list: func(p *model.UserProfile) *[]string { return &p.Personal.Interests }},
	PersonalGoals:     {path: "personal.goals", list: func(p *model.UserProfile) *[]string { return &p.Personal.Goals }},
	PersonalContext:   {path: "personal.context", list: func(p *model.UserProfile) *[]string { return &p.Personal.Context }},
}

var fieldsByPath = func() map[string]Field {
	m := make(map[string]Field, len(fieldTable))
	for f, spec := range fieldTable {
		m[spec.path] = f
	}
	return m
}()

// ParseField resolves a dot path.
func ParseField(path string) (Field, error) {
	f, ok := fieldsByPath[strings.TrimSpace(path)]
	if !ok {
		return fieldInvalid, fmt.Errorf("%w: %q", ErrUnknownField, path)
	}
	return f, nil
}

// Fields lists every addressable path, sorted.
func Fields() []string {
	out := make([]string, 0, len(fieldTable))
	for _, spec := range fieldTable {
		out = append(out, spec.path)
	}
	sort.Strings(out)
	return out
}

func (f Field) String() string {
	if spec, ok := fieldTable[f]; ok {
		return spec.path
	}
	return "invalid"
}

// IsList reports whether the field holds a list of strings.
func (f Field) IsList() bool {
	return fieldTable[f].list != nil
}

// Read returns the field's current value in p.
func (f Field) Read(p *model.UserProfile) model.Value {
	p.Normalize()
	spec := fieldTable[f]
	if spec.list != nil {
		return model.ListValue(*spec.list(p)...)
	}
	if spec.scalar != nil {
		return model.StringValue(*spec.scalar(p))
	}
	return model.Value{}
}

// Write stores v into p. A scalar value written to a list field becomes a
// one-element list; a list written to a scalar field is rejected.
func (f Field) Write(p *model.UserProfile, v model.Value) error {
	p.Normalize()
	spec, ok := fieldTable[f]
	if !ok {
		return ErrUnknownField
	}
	if spec.list != nil {
		list := v.List
		if !v.IsList {
			list = []string{v.Scalar}
		}
		*spec.list(p) = append([]string{}, list...)
		return nil
	}
	if v.IsList {
		return fmt.Errorf("%w: %s takes a single value", ErrFieldType, spec.path)
	}
	if spec.allowed != nil && !contains(spec.allowed, v.Scalar) {
		return fmt.Errorf("%w: %s must be one of %s", ErrFieldType, spec.path, strings.Join(spec.allowed, ", "))
	}
	*spec.scalar(p) = v.Scalar
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
