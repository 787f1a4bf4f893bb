package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

// MemoryBackend is an in-process Backend. It keeps the log in a slice and is
// used for offline runs and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries []RawEntry
	seq     int
	now     func() time.Time
	failErr error
	adds    int
}

// NewMemoryBackend returns an empty in-process log.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{now: time.Now}
}

// Fail makes every subsequent call return err; nil restores normal operation.
func (b *MemoryBackend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

// AddCount reports how many Add calls succeeded.
func (b *MemoryBackend) AddCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adds
}

// Entries returns a copy of the log in insertion order.
func (b *MemoryBackend) Entries() []RawEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RawEntry(nil), b.entries...)
}

// Append stores an already-shaped entry, bypassing Add.
func (b *MemoryBackend) Append(e RawEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.ID == "" {
		b.seq++
		e.ID = fmt.Sprintf("mem-%d", b.seq)
	}
	b.entries = append(b.entries, e)
}

func (b *MemoryBackend) Add(_ context.Context, req AddRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return "", b.failErr
	}

	var meta json.RawMessage
	if req.Metadata != nil {
		m, err := json.Marshal(req.Metadata)
		if err != nil {
			return "", err
		}
		meta = m
	}
	b.seq++
	ts := model.FormatISO(b.now())
	e := RawEntry{
		ID:        fmt.Sprintf("mem-%d", b.seq),
		Memory:    req.Content,
		Metadata:  meta,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	b.entries = append(b.entries, e)
	b.adds++
	return e.ID, nil
}

func (b *MemoryBackend) Search(_ context.Context, query string, limit int) ([]RawEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}

	q := strings.ToLower(query)
	var out []RawEntry
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		if strings.Contains(strings.ToLower(e.Memory), q) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (b *MemoryBackend) GetAll(_ context.Context) ([]RawEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	return append([]RawEntry(nil), b.entries...), nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return false, b.failErr
	}
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
