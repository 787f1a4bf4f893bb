package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories",
		Long:  "Case-sensitive substring search over local memories, topped up from the remote mirror when there are fewer hits than the limit.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("scope", "s", "", "Filter by scope (global memories are always included)")
	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	limit, _ := cmd.Flags().GetInt("limit")

	a := mustOpenApp()
	defer a.Close()

	hits, err := a.memories.Search(cmd.Context(), memory.SearchParams{
		Query: strings.Join(args, " "),
		Scope: scope,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		if len(hits) == 0 {
			fmt.Println("No memories found.")
			return
		}
		parts := make([]string, len(hits))
		for i, h := range hits {
			parts[i] = fmt.Sprintf("[%s] %s", h.Scope, h.Content)
		}
		fmt.Println(strings.Join(parts, "\n\n---\n\n"))
		return
	}
	printJSON(hits)
}
