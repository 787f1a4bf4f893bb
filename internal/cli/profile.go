package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/model"
	"github.com/rcliao/brain-jar/internal/profile"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the user profile",
		Run:   runProfileShow,
	}

	get := &cobra.Command{
		Use:   "get [field]",
		Short: "Read one field, e.g. technical.languages",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileGet,
	}
	set := &cobra.Command{
		Use:   "set [field] [value]",
		Short: "Replace a field; list fields take comma-separated values",
		Args:  cobra.MinimumNArgs(2),
		Run:   runProfileSet,
	}
	add := &cobra.Command{
		Use:   "add [field] [values...]",
		Short: "Append values to a list field, skipping duplicates",
		Args:  cobra.MinimumNArgs(2),
		Run:   runProfileAdd,
	}
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local profile with the newest remote snapshot",
		Run:   runProfileSync,
	}
	history := &cobra.Command{
		Use:   "history",
		Short: "List remote profile snapshots, newest first",
		Run:   runProfileHistory,
	}
	history.Flags().String("since", "", "Only snapshots newer than a duration (720h) or timestamp")
	history.Flags().IntP("limit", "l", 10, "Max results")
	fields := &cobra.Command{
		Use:   "fields",
		Short: "List the editable field paths",
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(profile.Fields())
		},
	}

	cmd.AddCommand(get, set, add, sync, history, fields)
	RootCmd.AddCommand(cmd)
}

func runProfileShow(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	p, err := a.profiles.Load(cmd.Context())
	if err != nil {
		exitErr("load profile", err)
	}
	printJSON(p)
}

func runProfileGet(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	v, err := a.profiles.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("profile get", err)
	}
	printJSON(v)
}

func runProfileSet(cmd *cobra.Command, args []string) {
	f, err := profile.ParseField(args[0])
	if err != nil {
		exitErr("profile set", err)
	}
	raw := strings.Join(args[1:], " ")
	v := model.StringValue(raw)
	if f.IsList() {
		v = model.ListValue(splitList(raw)...)
	}

	a := mustOpenApp()
	defer a.Close()

	if err := a.profiles.Set(cmd.Context(), f.String(), v); err != nil {
		exitErr("profile set", err)
	}
	printJSON(map[string]any{"ok": true, "field": f.String(), "value": v})
}

func runProfileAdd(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	if err := a.profiles.AddToArray(cmd.Context(), args[0], args[1:]...); err != nil {
		exitErr("profile add", err)
	}
	v, err := a.profiles.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("profile add", err)
	}
	printJSON(map[string]any{"ok": true, "field": args[0], "value": v})
}

func runProfileSync(cmd *cobra.Command, args []string) {
	a := mustOpenApp()
	defer a.Close()

	res, err := a.profiles.Sync(cmd.Context())
	if err != nil {
		exitErr("profile sync", err)
	}
	printJSON(res)
}

func runProfileHistory(cmd *cobra.Command, args []string) {
	sinceStr, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	since, err := parseSince(sinceStr)
	if err != nil {
		exitErr("parse since", err)
	}

	a := mustOpenApp()
	defer a.Close()

	snaps, err := a.profiles.History(cmd.Context(), since, limit)
	if err != nil {
		exitErr("profile history", err)
	}
	if snaps == nil {
		snaps = []model.ProfileSnapshot{}
	}
	printJSON(snaps)
}
