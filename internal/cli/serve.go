package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/api"
	"github.com/rcliao/brain-jar/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")

	a := mustOpenApp()
	defer a.Close()
	if addr == "" {
		addr = a.cfg.ListenAddr
	}

	var searcher *search.Searcher
	if s, err := newSearcher(a); err == nil {
		searcher = s
	} else {
		a.log.Info("ask endpoint disabled", "reason", err)
	}

	// reconcile the profile once at startup
	if res, err := a.profiles.Sync(cmd.Context()); err != nil {
		a.log.Warn("startup profile sync failed", "error", err)
	} else {
		a.log.Info("startup profile sync", "action", res.Action)
	}

	srv := api.NewServer(api.Deps{
		Memories:  a.memories,
		Store:     a.store,
		Summaries: a.summaries,
		Mirror:    a.mirror,
		Profiles:  a.profiles,
		Searcher:  searcher,
		Logger:    a.log.With("component", "api"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitErr("serve", err)
	}
}
