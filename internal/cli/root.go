// Package cli implements the brain-jar CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brain-jar/internal/config"
	"github.com/rcliao/brain-jar/internal/logger"
	"github.com/rcliao/brain-jar/internal/memory"
	"github.com/rcliao/brain-jar/internal/profile"
	"github.com/rcliao/brain-jar/internal/remote"
	"github.com/rcliao/brain-jar/internal/store"
	"github.com/rcliao/brain-jar/internal/summary"
)

var (
	dirFlag    string
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "brain-jar",
	Short: "Shared memory for coding agents",
	Long: "Local-first memory shared across agents and machines. Records live in SQLite, " +
		"are mirrored to Mem0 when configured, and are rolled up into activity summaries.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Config directory (default: $BRAIN_JAR_DIR or ~/.config/brain-jar)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: <dir>/local.db or $BRAIN_JAR_DB)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// app holds the components one command invocation works with.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *store.SQLiteStore
	mirror    *remote.Mirror
	dispatch  *remote.Dispatcher
	summaries *summary.Engine
	profiles  *profile.Manager
	memories  *memory.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(dirFlag)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var mirror *remote.Mirror
	if cfg.RemoteEnabled() {
		backend := remote.NewMem0Backend(cfg.Mem0BaseURL, cfg.Mem0APIKey, cfg.Mem0UserID, cfg.RemoteTimeout)
		mirror = remote.NewMirror(backend, log.With("component", "mirror"))
	}
	dispatch := remote.NewDispatcher(0, cfg.RemoteTimeout, log.With("component", "dispatch"))

	engine := summary.NewEngine(summary.Options{
		Store:         s,
		Mirror:        mirror,
		Policy:        cfg.Summary,
		AutoSummarize: cfg.AutoSummarize,
		StatePath:     cfg.StatePath,
		RemoteTimeout: cfg.RemoteTimeout,
		Logger:        log.With("component", "summary"),
	})
	profiles := profile.NewManager(profile.Options{
		ProfilePath:    cfg.ProfilePath,
		InferencesPath: cfg.InferencesPath,
		Mirror:         mirror,
		RemoteTimeout:  cfg.RemoteTimeout,
		Logger:         log.With("component", "profile"),
	})
	memories := memory.NewService(memory.Options{
		Store:        s,
		Mirror:       mirror,
		Dispatcher:   dispatch,
		Summaries:    engine,
		DefaultScope: cfg.DefaultScope,
		Logger:       log,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		store:     s,
		mirror:    mirror,
		dispatch:  dispatch,
		summaries: engine,
		profiles:  profiles,
		memories:  memories,
	}, nil
}

// Close waits for background remote writes, then releases the store.
func (a *app) Close() {
	a.dispatch.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
	a.log.Sync()
}

func mustOpenApp() *app {
	a, err := openApp()
	if err != nil {
		exitErr("open", err)
	}
	return a
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
