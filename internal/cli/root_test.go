package cli

import (
	"testing"
	"time"
)

func TestSplitList(t *testing.T) {
	got := splitList(" go, rust ,,zig ")
	want := []string{"go", "rust", "zig"}
	if len(got) != len(want) {
		t.Fatalf("splitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitList("") != nil {
		t.Error("splitList of empty string should be nil")
	}
}

func TestParseSince(t *testing.T) {
	zero, err := parseSince("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("parseSince(\"\") = %v, %v", zero, err)
	}

	before := time.Now().Add(-24 * time.Hour)
	rel, err := parseSince("24h")
	if err != nil {
		t.Fatal(err)
	}
	if rel.Before(before.Add(-time.Second)) || rel.After(time.Now()) {
		t.Errorf("parseSince(24h) = %v, want about %v", rel, before)
	}

	abs, err := parseSince("2026-01-02T03:04:05.000Z")
	if err != nil {
		t.Fatal(err)
	}
	if !abs.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("parseSince(abs) = %v", abs)
	}

	if _, err := parseSince("yesterday"); err == nil {
		t.Error("expected error for unparseable since")
	}
}
