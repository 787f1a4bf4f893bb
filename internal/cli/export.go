package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export local memories as a JSON array, oldest first. Filter by scope with -s.",
		Run:   runExport,
	}

	cmd.Flags().StringP("scope", "s", "", "Filter by scope")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")

	a := mustOpenApp()
	defer a.Close()

	memories, err := a.store.ExportAll(cmd.Context(), scope)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(memories)
}
