package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Web search enriched with your profile and memories",
		Long:  "Ask a Perplexity-compatible completion service. The prompt is enriched with profile facts, relevant local memories and past searches.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	cmd.Flags().Bool("no-profile", false, "Do not add profile context or past searches")
	cmd.Flags().StringP("scopes", "s", "", "Limit memory context to scopes (comma-separated)")
	cmd.Flags().IntP("budget", "b", 500, "Token budget for memory context (negative disables it)")

	RootCmd.AddCommand(cmd)
}

func newSearcher(a *app) (*search.Searcher, error) {
	if a.cfg.PerplexityAPIKey == "" {
		return nil, fmt.Errorf("perplexity_api_key is not configured")
	}
	return search.NewSearcher(search.Options{
		Completer:     search.NewPerplexityCompleter(a.cfg.PerplexityAPIKey, "", a.cfg.PerplexityModel, 0),
		Profiles:      a.profiles,
		Memories:      a.store,
		Mirror:        a.mirror,
		Dispatcher:    a.dispatch,
		RemoteTimeout: a.cfg.RemoteTimeout,
		Logger:        a.log.With("component", "search"),
	}), nil
}

func runAsk(cmd *cobra.Command, args []string) {
	noProfile, _ := cmd.Flags().GetBool("no-profile")
	scopes, _ := cmd.Flags().GetString("scopes")
	budget, _ := cmd.Flags().GetInt("budget")

	a := mustOpenApp()
	defer a.Close()

	s, err := newSearcher(a)
	if err != nil {
		exitErr("ask", err)
	}
	res, err := s.Search(cmd.Context(), search.Params{
		Query:          strings.Join(args, " "),
		IncludeProfile: !noProfile,
		Scopes:         splitList(scopes),
		MemoryBudget:   budget,
	})
	if err != nil {
		exitErr("ask", err)
	}

	if formatFlag == "text" {
		fmt.Println(res.Answer)
		return
	}
	printJSON(res)
}
