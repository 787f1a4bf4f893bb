package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/store"
	"github.com/rcliao/brain-jar/internal/summary"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database and summary statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	*store.Stats
	Remote  bool          `json:"remote"`
	Summary summary.State `json:"summary_state"`
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	printJSON(statsOutput{
		Stats:   stats,
		Remote:  a.mirror.Enabled(),
		Summary: a.summaries.Snapshot(),
	})
}
