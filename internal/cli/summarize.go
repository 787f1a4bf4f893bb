package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summarize [scope]",
		Short: "Generate an activity summary now",
		Long:  "Summarize a scope's memories since its last summary, ignoring the trigger policy. With --all, every scope holding memories is summarized.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runSummarize,
	}
	cmd.Flags().Bool("all", false, "Summarize every active scope")
	RootCmd.AddCommand(cmd)

	list := &cobra.Command{
		Use:   "summaries",
		Short: "List activity summaries from the remote log",
		Run:   runSummaries,
	}
	list.Flags().StringP("scope", "s", "", "Filter by scope")
	list.Flags().String("since", "", "Only summaries newer than a duration (168h) or timestamp")
	list.Flags().IntP("limit", "l", 10, "Max results")
	RootCmd.AddCommand(list)
}

func runSummarize(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	a := mustOpenApp()
	defer a.Close()

	var scopes []string
	switch {
	case all:
		active, err := a.store.ActiveScopes(cmd.Context())
		if err != nil {
			exitErr("list scopes", err)
		}
		scopes = active
	case len(args) == 1:
		scopes = args
	default:
		scopes = []string{a.cfg.DefaultScope}
	}

	type result struct {
		Scope   string `json:"scope"`
		Summary any    `json:"summary"`
	}
	out := []result{}
	for _, scope := range scopes {
		sum, err := a.summaries.TriggerSummary(cmd.Context(), scope)
		if err != nil {
			exitErr(fmt.Sprintf("summarize %s", scope), err)
		}
		if sum == nil {
			out = append(out, result{Scope: scope})
			continue
		}
		out = append(out, result{Scope: scope, Summary: sum})
	}
	printJSON(out)
}

func runSummaries(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	sinceStr, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")

	since, err := parseSince(sinceStr)
	if err != nil {
		exitErr("parse since", err)
	}

	a := mustOpenApp()
	defer a.Close()

	ctx := cmd.Context()
	sums, err := a.mirror.GetSummaries(ctx, scope, since, limit)
	if err != nil {
		exitErr("summaries", err)
	}
	if sums == nil {
		sums = []model.ActivitySummary{}
	}

	if formatFlag == "text" {
		for _, s := range sums {
			fmt.Printf("%s\n%s\n\n", s.Timestamp.Format(time.RFC3339), s.Content)
		}
		return
	}
	printJSON(sums)
}
