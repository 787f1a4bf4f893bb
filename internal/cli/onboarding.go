package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/profile"
)

func init() {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Show the next onboarding questions for empty profile fields",
		Run:   runOnboarding,
	}
	cmd.Flags().IntP("count", "c", 3, "Max questions")
	cmd.Flags().Bool("force", false, "Show questions even if prompted recently")

	complete := &cobra.Command{
		Use:   "complete [category]",
		Short: "Mark a category done: identity, technical, workingStyle or personal",
		Args:  cobra.ExactArgs(1),
		Run:   runOnboardingComplete,
	}

	cmd.AddCommand(complete)
	RootCmd.AddCommand(cmd)
}

func runOnboarding(cmd *cobra.Command, args []string) {
	count, _ := cmd.Flags().GetInt("count")
	force, _ := cmd.Flags().GetBool("force")

	a := mustOpenApp()
	defer a.Close()

	p, err := a.profiles.Load(cmd.Context())
	if err != nil {
		exitErr("load profile", err)
	}

	out := map[string]any{"complete": p.Meta.OnboardingComplete}
	if !force && !a.profiles.ShouldPromptOnboarding(p) {
		out["questions"] = []any{}
		printJSON(out)
		return
	}

	qs := profile.NextQuestions(p, count)
	if len(qs) > 0 {
		if err := a.profiles.RecordOnboardingPrompt(cmd.Context()); err != nil {
			exitErr("record prompt", err)
		}
	}
	out["questions"] = qs
	printJSON(out)
}

func runOnboardingComplete(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	if err := a.profiles.MarkCategoryComplete(cmd.Context(), args[0]); err != nil {
		exitErr("onboarding complete", err)
	}
	p, err := a.profiles.Load(cmd.Context())
	if err != nil {
		exitErr("load profile", err)
	}
	printJSON(p.Meta)
}
