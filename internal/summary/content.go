package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/brain-jar/internal/model"
)

const (
	maxThemes   = 5
	maxKeyItems = 5
	maxItemLen  = 100
)

// RenderContent builds the summary text for records ordered newest first.
// The output depends only on its arguments.
func RenderContent(scope string, records []model.MemoryRecord, periodStart, periodEnd time.Time) string {
	parts := []string{fmt.Sprintf("Activity summary for %s (%d memories, %s to %s)",
		scope, len(records), periodStart.UTC().Format("2006-01-02"), periodEnd.UTC().Format("2006-01-02"))}

	if themes := TopTags(records, maxThemes); len(themes) > 0 {
		parts = append(parts, "Top themes: "+strings.Join(themes, ", "))
	}

	n := len(records)
	if n > maxKeyItems {
		n = maxKeyItems
	}
	if n > 0 {
		items := make([]string, n)
		for i := 0; i < n; i++ {
			items[i] = "- " + truncate(records[i].Content, maxItemLen)
		}
		parts = append(parts, "\nKey items:\n"+strings.Join(items, "\n"))
	}

	return strings.Join(parts, "\n")
}

// TopTags returns up to n tags by descending frequency. Ties keep the order
// in which each tag was first seen.
func TopTags(records []model.MemoryRecord, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range records {
		for _, tag := range r.Tags {
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
