package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/memory"
	"github.com/rcliao/brain-jar/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory",
		Long:  "Store a memory locally, mirror it to the remote log in the background and update the scope's activity count.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAdd,
	}

	cmd.Flags().StringP("scope", "s", "", `Scope: "global" or "project:<name>" (default from config)`)
	cmd.Flags().StringP("tags", "t", "", "Tags (comma-separated)")
	cmd.Flags().String("agent", "", "Source agent (default claude-code)")
	cmd.Flags().String("action", "", "Source action (default explicit)")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	tags, _ := cmd.Flags().GetString("tags")
	agent, _ := cmd.Flags().GetString("agent")
	action, _ := cmd.Flags().GetString("action")

	a := mustOpenApp()
	defer a.Close()

	res, err := a.memories.Add(cmd.Context(), memory.AddParams{
		Content: strings.Join(args, " "),
		Scope:   scope,
		Tags:    splitList(tags),
		Source:  model.Source{Agent: agent, Action: action},
	})
	if err != nil {
		exitErr("add", err)
	}
	printJSON(res)
}
