// Package model defines the core brain-jar data types.
package model

import (
	"strings"
	"time"
)

// GlobalScope is the scope shared by every project.
const GlobalScope = "global"

// Source records which agent produced a memory. It is provenance, not identity.
type Source struct {
	Agent  string `json:"agent"`
	Action string `json:"action,omitempty"`
}

// MemoryRecord is one atomic stored memory.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Scope     string    `json:"scope"`
	Tags      []string  `json:"tags"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether the record carries tag.
func (m MemoryRecord) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ActivitySummary is a compacted aggregate of the records in one scope over a period.
type ActivitySummary struct {
	Content     string    `json:"content"`
	Scope       string    `json:"scope"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	MemoryCount int       `json:"memoryCount"`
	Timestamp   time.Time `json:"timestamp"`
	RemoteID    string    `json:"remoteId,omitempty"`
}

// ProjectScope returns the scope name for a project.
func ProjectScope(name string) string {
	return "project:" + name
}

// ValidScope reports whether s is "global" or "project:<name>" with a non-empty name.
func ValidScope(s string) bool {
	if s == GlobalScope {
		return true
	}
	name, ok := strings.CutPrefix(s, "project:")
	return ok && strings.TrimSpace(name) != ""
}

// ISOLayout matches JavaScript's Date.toISOString, the format every persisted
// timestamp uses. Fixed width keeps lexicographic and chronological order equal.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO accepts ISOLayout and any RFC 3339 variant.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISOLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
