package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write the config file",
		Long:  "Create or update config.yaml in the config directory. Only flags that are set change the stored values.",
		Run:   runSetup,
	}

	cmd.Flags().String("mem0-key", "", "Mem0 API key (enables the remote mirror)")
	cmd.Flags().String("mem0-user", "", "Mem0 user id")
	cmd.Flags().String("perplexity-key", "", "Perplexity API key (enables ask)")
	cmd.Flags().String("default-scope", "", "Scope used when add is given none")
	cmd.Flags().Bool("auto-summarize", true, "Generate summaries automatically")

	RootCmd.AddCommand(cmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("mem0-key") {
		cfg.Mem0APIKey, _ = flags.GetString("mem0-key")
	}
	if flags.Changed("mem0-user") {
		cfg.Mem0UserID, _ = flags.GetString("mem0-user")
	}
	if flags.Changed("perplexity-key") {
		cfg.PerplexityAPIKey, _ = flags.GetString("perplexity-key")
	}
	if flags.Changed("default-scope") {
		cfg.DefaultScope, _ = flags.GetString("default-scope")
	}
	if flags.Changed("auto-summarize") {
		cfg.AutoSummarize, _ = flags.GetBool("auto-summarize")
	}
	if err := cfg.Validate(); err != nil {
		exitErr("setup", err)
	}

	path, err := cfg.Save()
	if err != nil {
		exitErr("save config", err)
	}
	printJSON(map[string]any{"ok": true, "path": path, "remote": cfg.RemoteEnabled()})
}
