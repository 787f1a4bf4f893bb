package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/ingest"
	"github.com/rcliao/brain-jar/internal/memory"
	"github.com/rcliao/brain-jar/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Store a markdown document as memories",
		Long:  "Split a markdown document (file or stdin) on headings and paragraphs and store each section as a memory tagged with its heading.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().StringP("scope", "s", "", `Scope: "global" or "project:<name>" (default from config)`)
	cmd.Flags().StringP("tags", "t", "", "Extra tags for every section (comma-separated)")
	cmd.Flags().String("name", "", "Document name recorded as a doc:<name> tag (default file name)")
	cmd.Flags().Int("target-size", ingest.DefaultTargetSize, "Preferred section size in characters")
	cmd.Flags().Int("max-size", ingest.DefaultMaxSize, "Sections longer than this are split")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	scope, _ := cmd.Flags().GetString("scope")
	tags, _ := cmd.Flags().GetString("tags")
	name, _ := cmd.Flags().GetString("name")
	target, _ := cmd.Flags().GetInt("target-size")
	maxSize, _ := cmd.Flags().GetInt("max-size")

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
		if name == "" {
			name = filepath.Base(args[0])
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	a := mustOpenApp()
	defer a.Close()

	results, err := a.memories.AddDocument(cmd.Context(), memory.DocumentParams{
		Text:   string(data),
		Name:   name,
		Scope:  scope,
		Tags:   splitList(tags),
		Source: model.Source{Action: "ingest"},
		Split:  ingest.Options{TargetSize: target, MaxSize: maxSize},
	})
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(results)
}
