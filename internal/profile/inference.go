package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rcliao/brain-jar/internal/jsonfile"
	"github.com/rcliao/brain-jar/internal/model"
)

// Candidate is an inference before it is queued.
type Candidate struct {
	Field      string      `json:"field"`
	Value      model.Value `json:"value"`
	Confidence string      `json:"confidence"`
	Evidence   string      `json:"evidence"`
	Source     string      `json:"source"`
}

var (
	confidences = []string{"high", "medium", "low"}
	sources     = []string{"codebase", "conversation", "config"}
)

func (m *Manager) loadInferencesLocked() ([]model.InferredPreference, error) {
	var list []model.InferredPreference
	if _, err := jsonfile.Read(m.inferencesPath, &list); err != nil {
		if !errors.Is(err, jsonfile.ErrCorrupt) {
			return nil, err
		}
		m.log.Warn("inferences file corrupted, starting empty", "path", m.inferencesPath, "error", err)
		list = nil
	}
	if list == nil {
		list = []model.InferredPreference{}
	}
	return list, nil
}

func (m *Manager) saveInferencesLocked(list []model.InferredPreference) error {
	if err := jsonfile.Write(m.inferencesPath, list); err != nil {
		return fmt.Errorf("save inferences: %w", err)
	}
	return nil
}

// AddInference queues a candidate as pending.
func (m *Manager) AddInference(ctx context.Context, c Candidate) (*model.InferredPreference, error) {
	f, err := ParseField(c.Field)
	if err != nil {
		return nil, err
	}
	if c.Value.Empty() {
		return nil, fmt.Errorf("%w: empty value for %s", ErrFieldType, f)
	}
	if c.Value.IsList && !f.IsList() {
		return nil, fmt.Errorf("%w: %s takes a single value", ErrFieldType, f)
	}
	if c.Confidence == "" {
		c.Confidence = "medium"
	}
	if c.Source == "" {
		c.Source = "conversation"
	}
	if !contains(confidences, c.Confidence) {
		return nil, fmt.Errorf("invalid confidence %q", c.Confidence)
	}
	if !contains(sources, c.Source) {
		return nil, fmt.Errorf("invalid source %q", c.Source)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.loadInferencesLocked()
	if err != nil {
		return nil, err
	}
	inf := model.InferredPreference{
		ID:         uuid.NewString(),
		Field:      f.String(),
		Value:      c.Value,
		Confidence: c.Confidence,
		Evidence:   c.Evidence,
		Source:     c.Source,
		Status:     model.InferencePending,
		CreatedAt:  model.FormatISO(m.now()),
	}
	list = append(list, inf)
	if err := m.saveInferencesLocked(list); err != nil {
		return nil, err
	}
	return &inf, nil
}

// ConfirmInference applies a pending inference to the profile and marks it
// confirmed. List fields are appended to without duplicates; scalar fields
// are overwritten. It returns false when the id is unknown or not pending.
func (m *Manager) ConfirmInference(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.loadInferencesLocked()
	if err != nil {
		return false, err
	}
	idx := findPending(list, id)
	if idx < 0 {
		return false, nil
	}
	inf := list[idx]

	f, err := ParseField(inf.Field)
	if err != nil {
		return false, err
	}
	if f.IsList() {
		values := inf.Value.List
		if !inf.Value.IsList {
			values = []string{inf.Value.Scalar}
		}
		err = m.addToArrayLocked(ctx, f, values)
	} else {
		err = m.setLocked(ctx, f, inf.Value)
	}
	if err != nil {
		return false, err
	}

	list[idx].Status = model.InferenceConfirmed
	if err := m.saveInferencesLocked(list); err != nil {
		return false, err
	}
	return true, nil
}

// RejectInference discards a pending inference. It returns false when the
// id is unknown or not pending.
func (m *Manager) RejectInference(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.loadInferencesLocked()
	if err != nil {
		return false, err
	}
	idx := findPending(list, id)
	if idx < 0 {
		return false, nil
	}
	list[idx].Status = model.InferenceRejected
	if err := m.saveInferencesLocked(list); err != nil {
		return false, err
	}
	return true, nil
}

// PendingInferences returns inferences awaiting a decision, oldest first.
func (m *Manager) PendingInferences(ctx context.Context) ([]model.InferredPreference, error) {
	all, err := m.Inferences(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.InferredPreference{}
	for _, inf := range all {
		if inf.Status == model.InferencePending {
			out = append(out, inf)
		}
	}
	return out, nil
}

// Inferences returns every inference regardless of status.
func (m *Manager) Inferences(ctx context.Context) ([]model.InferredPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadInferencesLocked()
}

func findPending(list []model.InferredPreference, id string) int {
	for i, inf := range list {
		if inf.ID == id {
			if inf.Status != model.InferencePending {
				return -1
			}
			return i
		}
	}
	return -1
}
