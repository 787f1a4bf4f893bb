package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/profile"
)

func init() {
	cmd := &cobra.Command{
		Use:   "inference",
		Short: "Manage inferred profile preferences awaiting confirmation",
		Run:   runInferenceList,
	}
	cmd.Flags().Bool("all", false, "Include confirmed and rejected inferences")

	add := &cobra.Command{
		Use:   "add [field] [value]",
		Short: "Queue an inferred preference",
		Args:  cobra.MinimumNArgs(2),
		Run:   runInferenceAdd,
	}
	add.Flags().String("confidence", "medium", "high, medium or low")
	add.Flags().String("evidence", "", "What the inference is based on")
	add.Flags().String("source", "conversation", "codebase, conversation or config")

	confirm := &cobra.Command{
		Use:   "confirm [id]",
		Short: "Apply a pending inference to the profile",
		Args:  cobra.ExactArgs(1),
		Run:   runInferenceConfirm,
	}
	reject := &cobra.Command{
		Use:   "reject [id]",
		Short: "Discard a pending inference",
		Args:  cobra.ExactArgs(1),
		Run:   runInferenceReject,
	}
	detect := &cobra.Command{
		Use:   "detect",
		Short: "Detect preferences from text (stdin or --text) or a project directory",
		Run:   runInferenceDetect,
	}
	detect.Flags().String("text", "", "Text to scan; - reads stdin")
	detect.Flags().String("dir", "", "Project directory to scan for manifests")
	detect.Flags().Bool("queue", false, "Queue detected candidates as pending inferences")

	cmd.AddCommand(add, confirm, reject, detect)
	RootCmd.AddCommand(cmd)
}

func runInferenceList(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	a := mustOpenApp()
	defer a.Close()

	var (
		list []model.InferredPreference
		err  error
	)
	if all {
		list, err = a.profiles.Inferences(cmd.Context())
	} else {
		list, err = a.profiles.PendingInferences(cmd.Context())
	}
	if err != nil {
		exitErr("list inferences", err)
	}
	printJSON(list)
}

func runInferenceAdd(cmd *cobra.Command, args []string) {
	confidence, _ := cmd.Flags().GetString("confidence")
	evidence, _ := cmd.Flags().GetString("evidence")
	source, _ := cmd.Flags().GetString("source")

	f, err := profile.ParseField(args[0])
	if err != nil {
		exitErr("inference add", err)
	}
	raw := strings.Join(args[1:], " ")
	v := model.StringValue(raw)
	if f.IsList() {
		v = model.ListValue(splitList(raw)...)
	}

	a := mustOpenApp()
	defer a.Close()

	inf, err := a.profiles.AddInference(cmd.Context(), profile.Candidate{
		Field:      f.String(),
		Value:      v,
		Confidence: confidence,
		Evidence:   evidence,
		Source:     source,
	})
	if err != nil {
		exitErr("inference add", err)
	}
	printJSON(inf)
}

func runInferenceConfirm(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	ok, err := a.profiles.ConfirmInference(cmd.Context(), args[0])
	if err != nil {
		exitErr("inference confirm", err)
	}
	fmt.Printf(`{"ok":%t,"id":%q}`+"\n", ok, args[0])
}

func runInferenceReject(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	ok, err := a.profiles.RejectInference(cmd.Context(), args[0])
	if err != nil {
		exitErr("inference reject", err)
	}
	fmt.Printf(`{"ok":%t,"id":%q}`+"\n", ok, args[0])
}

func runInferenceDetect(cmd *cobra.Command, args []string) {
	text, _ := cmd.Flags().GetString("text")
	dir, _ := cmd.Flags().GetString("dir")
	queue, _ := cmd.Flags().GetBool("queue")

	if text == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		text = string(b)
	}
	if text == "" && dir == "" {
		exitErr("inference detect", fmt.Errorf("one of --text or --dir is required"))
	}

	a := mustOpenApp()
	defer a.Close()

	p, err := a.profiles.Load(cmd.Context())
	if err != nil {
		exitErr("load profile", err)
	}

	cands := []profile.Candidate{}
	if text != "" {
		cands = append(cands, profile.DetectFromText(text, p)...)
	}
	if dir != "" {
		found, err := profile.DetectFromCodebase(dir, p)
		if err != nil {
			exitErr("scan codebase", err)
		}
		cands = append(cands, found...)
	}

	if !queue {
		printJSON(cands)
		return
	}
	added, err := a.profiles.QueueCandidates(cmd.Context(), cands)
	if err != nil {
		exitErr("queue inferences", err)
	}
	printJSON(added)
}
