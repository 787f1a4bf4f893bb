package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [description]",
		Short: "Assemble relevant memories for a task",
		Long:  "Search and score local memories, then greedily pack them into a token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().StringP("scopes", "s", "", "Limit to scopes (comma-separated)")
	cmd.Flags().IntP("budget", "b", 1000, "Max tokens in output")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	scopes, _ := cmd.Flags().GetString("scopes")
	budget, _ := cmd.Flags().GetInt("budget")

	a := mustOpenApp()
	defer a.Close()

	result, err := a.store.Context(cmd.Context(), store.ContextParams{
		Scopes: splitList(scopes),
		Query:  strings.Join(args, " "),
		Budget: budget,
	})
	if err != nil {
		exitErr("context", err)
	}
	printJSON(result)
}
