package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Run:   runList,
	}

	cmd.Flags().StringP("scope", "s", "", "Filter by scope")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated, all must match)")
	cmd.Flags().String("since", "", "Only memories newer than a duration (24h) or timestamp")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	tags, _ := cmd.Flags().GetString("tags")
	sinceStr, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")

	since, err := parseSince(sinceStr)
	if err != nil {
		exitErr("parse since", err)
	}

	a := mustOpenApp()
	defer a.Close()

	memories, err := a.memories.List(cmd.Context(), store.ListParams{
		Scope: scope,
		Tags:  splitList(tags),
		Since: since,
		Limit: limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		if len(memories) == 0 {
			fmt.Println("No memories found.")
			return
		}
		parts := make([]string, len(memories))
		for i, m := range memories {
			tagStr := strings.Join(m.Tags, ", ")
			if tagStr == "" {
				tagStr = "no tags"
			}
			parts[i] = fmt.Sprintf("[%s] (%s)\n%s", m.Scope, tagStr, m.Content)
		}
		fmt.Println(strings.Join(parts, "\n\n---\n\n"))
		return
	}
	printJSON(memories)
}

// parseSince accepts a duration relative to now or an absolute timestamp.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d), nil
	}
	return model.ParseISO(s)
}
