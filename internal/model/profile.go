package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ProfileVersion is the schema version written into new profiles.
const ProfileVersion = "1.0.0"

type Identity struct {
	Name         string `json:"name,omitempty"`
	Pronouns     string `json:"pronouns,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	Location     string `json:"location,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
}

type Technical struct {
	Languages        []string `json:"languages"`
	Frameworks       []string `json:"frameworks"`
	Tools            []string `json:"tools"`
	Editors          []string `json:"editors"`
	Patterns         []string `json:"patterns"`
	OperatingSystems []string `json:"operatingSystems"`
}

type WorkingStyle struct {
	Verbosity          string   `json:"verbosity"`
	LearningPace       string   `json:"learningPace"`
	CommunicationStyle string   `json:"communicationStyle,omitempty"`
	Priorities         []string `json:"priorities"`
}

type Knowledge struct {
	Expert     []string `json:"expert"`
	Proficient []string `json:"proficient"`
	Learning   []string `json:"learning"`
	Interests  []string `json:"interests"`
}

type Personal struct {
	Interests []string `json:"interests"`
	Goals     []string `json:"goals"`
	Context   []string `json:"context"`
}

// OnboardingProgress holds one completion flag per question category.
type OnboardingProgress struct {
	Identity     bool `json:"identity"`
	Technical    bool `json:"technical"`
	WorkingStyle bool `json:"workingStyle"`
	Personal     bool `json:"personal"`
}

type ProfileMeta struct {
	OnboardingComplete   bool                `json:"onboardingComplete"`
	OnboardingProgress   *OnboardingProgress `json:"onboardingProgress"`
	LastUpdated          string              `json:"lastUpdated"`
	LastOnboardingPrompt string              `json:"lastOnboardingPrompt,omitempty"`
	CreatedAt            string              `json:"createdAt"`
}

// UserProfile is the single per-installation profile document.
type UserProfile struct {
	Version      string       `json:"version"`
	Identity     Identity     `json:"identity"`
	Technical    Technical    `json:"technical"`
	WorkingStyle WorkingStyle `json:"workingStyle"`
	Knowledge    Knowledge    `json:"knowledge"`
	Personal     *Personal    `json:"personal"`
	Meta         ProfileMeta  `json:"meta"`
}

// NewProfile returns the default profile stamped with now.
func NewProfile(now time.Time) *UserProfile {
	ts := FormatISO(now)
	p := &UserProfile{
		Version: ProfileVersion,
		WorkingStyle: WorkingStyle{
			Verbosity:    "adaptive",
			LearningPace: "adaptive",
		},
		Meta: ProfileMeta{
			OnboardingProgress: &OnboardingProgress{},
			LastUpdated:        ts,
			CreatedAt:          ts,
		},
	}
	p.Normalize()
	return p
}

// Normalize fills sections missing from older files and replaces nil lists
// with empty ones so the document always serializes the same shape.
func (p *UserProfile) Normalize() {
	if p.Meta.OnboardingProgress == nil {
		p.Meta.OnboardingProgress = &OnboardingProgress{}
	}
	if p.Personal == nil {
		p.Personal = &Personal{}
	}
	if p.Version == "" {
		p.Version = ProfileVersion
	}
	for _, l := range []*[]string{
		&p.Technical.Languages, &p.Technical.Frameworks, &p.Technical.Tools,
		&p.Technical.Editors, &p.Technical.Patterns, &p.Technical.OperatingSystems,
		&p.WorkingStyle.Priorities,
		&p.Knowledge.Expert, &p.Knowledge.Proficient, &p.Knowledge.Learning, &p.Knowledge.Interests,
		&p.Personal.Interests, &p.Personal.Goals, &p.Personal.Context,
	} {
		if *l == nil {
			*l = []string{}
		}
	}
	if p.WorkingStyle.Verbosity == "" {
		p.WorkingStyle.Verbosity = "adaptive"
	}
	if p.WorkingStyle.LearningPace == "" {
		p.WorkingStyle.LearningPace = "adaptive"
	}
}

// Clone returns a deep copy.
func (p *UserProfile) Clone() *UserProfile {
	b, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Errorf("clone profile: %w", err))
	}
	var out UserProfile
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Errorf("clone profile: %w", err))
	}
	return &out
}

// LastUpdatedTime parses meta.lastUpdated; unparseable values yield the zero time.
func (p *UserProfile) LastUpdatedTime() time.Time {
	t, err := ParseISO(p.Meta.LastUpdated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ProfileSnapshot is one immutable entry of the remote profile log.
type ProfileSnapshot struct {
	Profile   *UserProfile `json:"profile"`
	Timestamp string       `json:"timestamp"`
	RemoteID  string       `json:"remoteId"`
}

// Value is either a single string or a list of strings, matching the two
// shapes a profile field or an inference value can take.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

func StringValue(s string) Value { return Value{Scalar: s} }
func ListValue(l ...string) Value { return Value{List: append([]string{}, l...), IsList: true} }
func (v Value) Empty() bool { return (!v.IsList && v.Scalar == "") || (v.IsList && len(v.List) == 0) }
func (v Value) String() string {
	if v.IsList {
		return fmt.Sprint(v.List)
	}
	return v.Scalar
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var l []string
		if err := json.Unmarshal(b, &l); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = Value{List: l, IsList: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("value must be a string or list of strings: %w", err)
	}
	*v = Value{Scalar: s}
	return nil
}

// InferenceStatus is the one-way lifecycle of an inferred preference.
type InferenceStatus string

const (
	InferencePending   InferenceStatus = "pending"
	InferenceConfirmed InferenceStatus = "confirmed"
	InferenceRejected  InferenceStatus = "rejected"
)

// InferredPreference is a candidate profile update awaiting confirmation.
type InferredPreference struct {
	ID         string          `json:"id"`
	Field      string          `json:"field"`
	Value      Value           `json:"value"`
	Confidence string          `json:"confidence"`
	Evidence   string          `json:"evidence"`
	Source     string          `json:"source"`
	Status     InferenceStatus `json:"status"`
	CreatedAt  string          `json:"createdAt"`
}

// OnboardingQuestion asks the user to fill one empty profile field.
type OnboardingQuestion struct {
	Category string   `json:"category"`
	Field    string   `json:"field"`
	Question string   `json:"question"`
	FollowUp string   `json:"followUp,omitempty"`
	Examples []string `json:"examples,omitempty"`
	Optional bool     `json:"optional"`
}
