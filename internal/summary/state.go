package summary

import (
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

// State is the persisted per-scope trigger state.
type State struct {
	ActivityCounts  map[string]int    `json:"activityCounts"`
	LastSummaryTime map[string]string `json:"lastSummaryTime"`
}

func newState() *State {
	return &State{ActivityCounts: map[string]int{}, LastSummaryTime: map[string]string{}}
}

func (s *State) clone() State {
	out := State{
		ActivityCounts:  make(map[string]int, len(s.ActivityCounts)),
		LastSummaryTime: make(map[string]string, len(s.LastSummaryTime)),
	}
	for k, v := range s.ActivityCounts {
		out.ActivityCounts[k] = v
	}
	for k, v := range s.LastSummaryTime {
		out.LastSummaryTime[k] = v
	}
	return out
}

// lastSummary returns the scope's last summary time. Unparseable entries
// count as absent.
func (s *State) lastSummary(scope string) (time.Time, bool) {
	raw, ok := s.LastSummaryTime[scope]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := model.ParseISO(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
