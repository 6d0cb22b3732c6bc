package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds Atlassian connection settings plus sync and reporting defaults.
type Config struct {
	URL     string `yaml:"url"     mapstructure:"url"`
	Email   string `yaml:"email"   mapstructure:"email"`
	Token   string `yaml:"token"   mapstructure:"token"`
	Project string `yaml:"project" mapstructure:"project"`
	Space   string `yaml:"space"   mapstructure:"space"`

	Jira      JiraConfig      `yaml:"jira"      mapstructure:"jira"`
	Sync      SyncConfig      `yaml:"sync"      mapstructure:"sync"`
	Log       LogConfig       `yaml:"log"       mapstructure:"log"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
}

// JiraConfig describes how issues are classified. Type names are configurable
// because Jira localizes them per site.
type JiraConfig struct {
	StoryPointsField string   `yaml:"story_points_field" mapstructure:"story_points_field"`
	EpicType         string   `yaml:"epic_type"          mapstructure:"epic_type"`
	StoryType        string   `yaml:"story_type"         mapstructure:"story_type"`
	SubtaskType      string   `yaml:"subtask_type"       mapstructure:"subtask_type"`
	BlockedStatuses  []string `yaml:"blocked_statuses"   mapstructure:"blocked_statuses"`
	DoneStatuses     []string `yaml:"done_statuses"      mapstructure:"done_statuses"`
	FlaggedField     string   `yaml:"flagged_field"      mapstructure:"flagged_field"`
	FlaggedIsBlocked bool     `yaml:"flagged_is_blocked" mapstructure:"flagged_is_blocked"`
}

// SyncConfig controls the Jira → Confluence sync.
type SyncConfig struct {
	StoryPageLimit int    `yaml:"story_page_limit" mapstructure:"story_page_limit"`
	Concurrency    int    `yaml:"concurrency"      mapstructure:"concurrency"`
	Label          string `yaml:"label"            mapstructure:"label"`
}

// LogConfig controls diagnostic logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"        mapstructure:"level"`
	File       string `yaml:"file"         mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"  mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"  mapstructure:"max_backups"`
}

// DashboardConfig configures the HTTP dashboard.
type DashboardConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultPath returns the default config file path (~/.atlsync.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".atlsync.yaml"
	}
	return filepath.Join(home, ".atlsync.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jira.story_points_field", "customfield_10016")
	v.SetDefault("jira.epic_type", "Epic")
	v.SetDefault("jira.story_type", "Story")
	v.SetDefault("jira.subtask_type", "Subtask")
	v.SetDefault("jira.blocked_statuses", []string{"Blocked"})
	v.SetDefault("jira.done_statuses", []string{"Done"})
	v.SetDefault("jira.flagged_field", "customfield_10021")
	v.SetDefault("jira.flagged_is_blocked", true)
	v.SetDefault("sync.story_page_limit", 25)
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.label", "jira-sync")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("dashboard.addr", ":8000")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// Env var overrides; the first variable that is set wins.
	v.BindEnv("url", "ATLASSIAN_SITE", "JIRA_URL")
	v.BindEnv("email", "ATLASSIAN_USER_EMAIL", "JIRA_EMAIL")
	v.BindEnv("token", "ATLASSIAN_API_TOKEN", "JIRA_TOKEN")
	v.BindEnv("project", "ATLSYNC_PROJECT")
	v.BindEnv("space", "ATLSYNC_SPACE")
	v.BindEnv("log.level", "ATLSYNC_LOG_LEVEL")

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.URL = NormalizeURL(cfg.URL)

	return cfg, nil
}

// NormalizeURL trims trailing slashes and adds https:// to a bare site name.
func NormalizeURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw != "" && !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("Atlassian site URL is required (set in config file or ATLASSIAN_SITE env var)")
	}
	if c.Email == "" {
		return fmt.Errorf("Atlassian email is required (set in config file or ATLASSIAN_USER_EMAIL env var)")
	}
	if c.Token == "" {
		return fmt.Errorf("Atlassian API token is required (set in config file or ATLASSIAN_API_TOKEN env var)")
	}
	if c.Sync.StoryPageLimit < 0 {
		return fmt.Errorf("sync.story_page_limit must not be negative")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be at least 1")
	}
	return nil
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
