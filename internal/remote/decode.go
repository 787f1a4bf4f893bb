package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

// Kind discriminates the typed views of the remote log, keyed by metadata.type.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindMemory
	KindProfileSnapshot
	KindActivitySummary
	KindSearchResult
)

const (
	typeProfileSnapshot = "profile-snapshot"
	typeActivitySummary = "activity-summary"
	typeSearchResult    = "search-result"
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindProfileSnapshot:
		return typeProfileSnapshot
	case KindActivitySummary:
		return typeActivitySummary
	case KindSearchResult:
		return typeSearchResult
	default:
		return "unrecognized"
	}
}

// SearchRecord is a stored web search result summary.
type SearchRecord struct {
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
	RemoteID  string    `json:"remoteId,omitempty"`
}

// Entry is a decoded remote log item. Exactly one of Memory, Snapshot,
// Summary or Search is set, matching Kind; unrecognized entries carry only
// Type and Raw.
type Entry struct {
	Kind     Kind
	Type     string
	Memory   *model.MemoryRecord
	Snapshot *model.ProfileSnapshot
	Summary  *model.ActivitySummary
	Search   *SearchRecord
	// LocalID is the local record id a mirrored memory was written from, when known.
	LocalID string
	Raw     RawEntry
}

// memoryMeta is the metadata attached to a mirrored memory record.
type memoryMeta struct {
	Type         string   `json:"type,omitempty"`
	Scope        string   `json:"scope,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	SourceAgent  string   `json:"source_agent,omitempty"`
	SourceAction string   `json:"source_action,omitempty"`
	LocalID      string   `json:"local_id,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
}

type snapshotMeta struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Scope     string `json:"scope"`
}

type searchMeta struct {
	Type      string `json:"type"`
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
}

type summaryMeta struct {
	Type        string  `json:"type"`
	Scope       string  `json:"scope"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	MemoryCount float64 `json:"memory_count"`
	Timestamp   string  `json:"timestamp"`
}

// Decode parses a raw remote entry into its typed variant. An entry with no
// type is a plain memory; an unknown type is returned as KindUnrecognized.
// Malformed payloads of a known type are errors.
func Decode(raw RawEntry) (Entry, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if len(raw.Metadata) > 0 && string(raw.Metadata) != "null" {
		if err := json.Unmarshal(raw.Metadata, &disc); err != nil {
			return Entry{}, fmt.Errorf("decode metadata of %s: %w", raw.ID, err)
		}
	}

	e := Entry{Type: disc.Type, Raw: raw}
	switch disc.Type {
	case "":
		rec, localID, err := decodeMemory(raw)
		if err != nil {
			return Entry{}, err
		}
		e.Kind, e.Memory, e.LocalID = KindMemory, rec, localID
	case typeProfileSnapshot:
		snap, err := decodeSnapshot(raw)
		if err != nil {
			return Entry{}, err
		}
		e.Kind, e.Snapshot = KindProfileSnapshot, snap
	case typeActivitySummary:
		sum, err := decodeSummary(raw)
		if err != nil {
			return Entry{}, err
		}
		e.Kind, e.Summary = KindActivitySummary, sum
	case typeSearchResult:
		var meta searchMeta
		if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
			return Entry{}, fmt.Errorf("decode search metadata of %s: %w", raw.ID, err)
		}
		e.Kind = KindSearchResult
		e.Search = &SearchRecord{
			Query:     meta.Query,
			Summary:   raw.Memory,
			Timestamp: firstTime(meta.Timestamp, raw.CreatedAt),
			RemoteID:  raw.ID,
		}
	default:
		e.Kind = KindUnrecognized
	}
	return e, nil
}

func decodeMemory(raw RawEntry) (*model.MemoryRecord, string, error) {
	var meta memoryMeta
	if len(raw.Metadata) > 0 && string(raw.Metadata) != "null" {
		if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
			return nil, "", fmt.Errorf("decode memory metadata of %s: %w", raw.ID, err)
		}
	}

	rec := &model.MemoryRecord{
		ID:      raw.ID,
		Content: raw.Memory,
		Scope:   meta.Scope,
		Tags:    meta.Tags,
		Source:  model.Source{Agent: meta.SourceAgent, Action: meta.SourceAction},
	}
	if rec.Scope == "" {
		rec.Scope = model.GlobalScope
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.Source.Agent == "" {
		rec.Source.Agent = "unknown"
	}
	rec.CreatedAt = firstTime(meta.CreatedAt, raw.CreatedAt)
	rec.UpdatedAt = firstTime(raw.UpdatedAt, raw.CreatedAt)
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec, meta.LocalID, nil
}

func decodeSnapshot(raw RawEntry) (*model.ProfileSnapshot, error) {
	var meta snapshotMeta
	if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode snapshot metadata of %s: %w", raw.ID, err)
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(raw.Memory), &profile); err != nil {
		return nil, fmt.Errorf("decode profile snapshot %s: %w", raw.ID, err)
	}
	profile.Normalize()

	ts := meta.Timestamp
	if ts == "" {
		ts = raw.CreatedAt
	}
	return &model.ProfileSnapshot{Profile: &profile, Timestamp: ts, RemoteID: raw.ID}, nil
}

func decodeSummary(raw RawEntry) (*model.ActivitySummary, error) {
	var meta summaryMeta
	if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode summary metadata of %s: %w", raw.ID, err)
	}
	sum := &model.ActivitySummary{
		Content:     raw.Memory,
		Scope:       meta.Scope,
		PeriodStart: firstTime(meta.PeriodStart),
		PeriodEnd:   firstTime(meta.PeriodEnd),
		MemoryCount: int(meta.MemoryCount),
		Timestamp:   firstTime(meta.Timestamp, raw.CreatedAt),
		RemoteID:    raw.ID,
	}
	if sum.Scope == "" {
		sum.Scope = model.GlobalScope
	}
	return sum, nil
}

// firstTime parses the first non-empty, well-formed timestamp.
func firstTime(values ...string) time.Time {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if t, err := model.ParseISO(v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
