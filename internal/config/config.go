// Package config builds the explicit configuration object shared by every
// brain-jar component. It is loaded once at process start and passed down;
// nothing reads configuration from ambient globals.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	yamlFile   = "config.yaml"
	legacyFile = "config.json"
)

// SummaryConfig tunes the summarization trigger policy.
type SummaryConfig struct {
	ActivityThreshold int           `yaml:"activity_threshold"`
	MinInterval       time.Duration `yaml:"min_interval"`
	MaxInterval       time.Duration `yaml:"max_interval"`
	DefaultLookback   time.Duration `yaml:"default_lookback"`
	// MaxLookback caps how far back a summary period may reach. Zero disables the cap.
	MaxLookback time.Duration `yaml:"max_lookback"`
}

// Config is the process-wide configuration.
type Config struct {
	Dir string `yaml:"-"`

	DBPath         string `yaml:"db_path,omitempty"`
	StatePath      string `yaml:"state_path,omitempty"`
	ProfilePath    string `yaml:"profile_path,omitempty"`
	InferencesPath string `yaml:"inferences_path,omitempty"`

	Mem0APIKey  string `yaml:"mem0_api_key"`
	Mem0BaseURL string `yaml:"mem0_base_url,omitempty"`
	Mem0UserID  string `yaml:"mem0_user_id,omitempty"`

	DefaultScope  string `yaml:"default_scope"`
	AutoSummarize bool   `yaml:"auto_summarize"`

	PerplexityAPIKey string `yaml:"perplexity_api_key,omitempty"`
	PerplexityModel  string `yaml:"perplexity_model,omitempty"`

	RemoteTimeout time.Duration `yaml:"remote_timeout,omitempty"`
	LogMode       string        `yaml:"log_mode,omitempty"`
	ListenAddr    string        `yaml:"listen_addr,omitempty"`

	Summary SummaryConfig `yaml:"summary"`

	// path of the file the config was read from, empty when none existed
	source string
}

// Default returns the configuration used when no file or env overrides exist.
func Default(dir string) *Config {
	return &Config{
		Dir:             dir,
		Mem0BaseURL:     "https://api.mem0.ai",
		Mem0UserID:      "default",
		DefaultScope:    "global",
		AutoSummarize:   true,
		PerplexityModel: "sonar",
		RemoteTimeout:   5 * time.Second,
		LogMode:         "dev",
		ListenAddr:      "127.0.0.1:7420",
		Summary: SummaryConfig{
			ActivityThreshold: 12,
			MinInterval:       24 * time.Hour,
			MaxInterval:       7 * 24 * time.Hour,
			DefaultLookback:   7 * 24 * time.Hour,
			MaxLookback:       90 * 24 * time.Hour,
		},
	}
}

// DefaultDir is ~/.config/brain-jar, or $BRAIN_JAR_DIR when set.
func DefaultDir() string {
	if env := strings.TrimSpace(os.Getenv("BRAIN_JAR_DIR")); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "brain-jar")
}

// Load reads config.yaml (or the legacy config.json) from dir, then applies
// environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	cfg := Default(dir)

	for _, name := range []string{yamlFile, legacyFile} {
		path := filepath.Join(dir, name)
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// yaml.v3 also parses the JSON written by older installs.
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.source = path
		break
	}

	cfg.applyEnv()
	cfg.fillPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Mem0APIKey = envString("MEM0_API_KEY", c.Mem0APIKey)
	c.Mem0BaseURL = envString("MEM0_BASE_URL", c.Mem0BaseURL)
	c.Mem0UserID = envString("MEM0_USER_ID", c.Mem0UserID)
	c.PerplexityAPIKey = envString("PERPLEXITY_API_KEY", c.PerplexityAPIKey)
	c.LogMode = envString("BRAIN_JAR_LOG", c.LogMode)
	c.ListenAddr = envString("BRAIN_JAR_ADDR", c.ListenAddr)
	c.DBPath = envString("BRAIN_JAR_DB", c.DBPath)
	c.RemoteTimeout = envDuration("BRAIN_JAR_REMOTE_TIMEOUT", c.RemoteTimeout)
	c.AutoSummarize = envBool("BRAIN_JAR_AUTO_SUMMARIZE", c.AutoSummarize)
}

func (c *Config) fillPaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.Dir, "local.db")
	}
	if c.StatePath == "" {
		c.StatePath = filepath.Join(c.Dir, "summary-state.json")
	}
	if c.ProfilePath == "" {
		c.ProfilePath = filepath.Join(c.Dir, "user-profile.json")
	}
	if c.InferencesPath == "" {
		c.InferencesPath = filepath.Join(c.Dir, "pending-inferences.json")
	}
}

// Validate rejects settings the components cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DefaultScope) == "" {
		return fmt.Errorf("config: default_scope must not be empty")
	}
	s := c.Summary
	if s.ActivityThreshold < 1 {
		return fmt.Errorf("config: summary.activity_threshold must be >= 1, got %d", s.ActivityThreshold)
	}
	if s.MinInterval < 0 || s.MaxInterval <= 0 || s.DefaultLookback <= 0 || s.MaxLookback < 0 {
		return fmt.Errorf("config: summary intervals must be positive")
	}
	if s.MinInterval > s.MaxInterval {
		return fmt.Errorf("config: summary.min_interval (%s) exceeds max_interval (%s)", s.MinInterval, s.MaxInterval)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("config: remote_timeout must be positive")
	}
	return nil
}

// RemoteEnabled reports whether a remote mirror is configured.
func (c *Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.Mem0APIKey) != ""
}

// Source is the file the config was read from, or "" if defaults were used.
func (c *Config) Source() string { return c.source }

// Save writes the config as YAML to <dir>/config.yaml via a temp file and rename.
func (c *Config) Save() (string, error) {
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	// derived paths are not persisted so the file stays portable across dirs
	out := *c
	def := Default(c.Dir)
	def.fillPaths()
	if out.DBPath == def.DBPath {
		out.DBPath = ""
	}
	if out.StatePath == def.StatePath {
		out.StatePath = ""
	}
	if out.ProfilePath == def.ProfilePath {
		out.ProfilePath = ""
	}
	if out.InferencesPath == def.InferencesPath {
		out.InferencesPath = ""
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(c.Dir, yamlFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename config: %w", err)
	}
	c.source = path
	return path, nil
}

func envString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
