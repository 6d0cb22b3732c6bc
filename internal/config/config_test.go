package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ATLASSIAN_SITE", "JIRA_URL",
		"ATLASSIAN_USER_EMAIL", "JIRA_EMAIL",
		"ATLASSIAN_API_TOKEN", "JIRA_TOKEN",
		"ATLSYNC_PROJECT", "ATLSYNC_SPACE", "ATLSYNC_LOG_LEVEL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Jira.StoryPointsField != "customfield_10016" {
		t.Errorf("StoryPointsField = %q", cfg.Jira.StoryPointsField)
	}
	if cfg.Jira.EpicType != "Epic" || cfg.Jira.StoryType != "Story" {
		t.Errorf("issue types = %q/%q", cfg.Jira.EpicType, cfg.Jira.StoryType)
	}
	if diff := cmp.Diff([]string{"Done"}, cfg.Jira.DoneStatuses); diff != "" {
		t.Errorf("DoneStatuses (-want +got):\n%s", diff)
	}
	if cfg.Sync.StoryPageLimit != 25 || cfg.Sync.Concurrency != 1 {
		t.Errorf("sync defaults = %+v", cfg.Sync)
	}
	if cfg.Dashboard.Addr != ":8000" {
		t.Errorf("Dashboard.Addr = %q", cfg.Dashboard.Addr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATLASSIAN_SITE", "example.atlassian.net/")
	t.Setenv("JIRA_EMAIL", "dev@example.com")
	t.Setenv("ATLASSIAN_API_TOKEN", "secret")
	t.Setenv("ATLSYNC_PROJECT", "DIN")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.URL != "https://example.atlassian.net" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Email != "dev@example.com" {
		t.Errorf("Email = %q", cfg.Email)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.Project != "DIN" {
		t.Errorf("Project = %q", cfg.Project)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "atlsync.yaml")

	want := Config{
		URL:     "https://example.atlassian.net",
		Email:   "dev@example.com",
		Token:   "secret",
		Project: "DIN",
		Space:   "DOCS",
		Jira: JiraConfig{
			StoryPointsField: "customfield_10028",
			EpicType:         "에픽",
			StoryType:        "스토리",
			SubtaskType:      "하위 작업",
			BlockedStatuses:  []string{"Blocked", "On Hold"},
			DoneStatuses:     []string{"Done", "Closed"},
			FlaggedField:     "customfield_10021",
			FlaggedIsBlocked: false,
		},
		Sync:      SyncConfig{StoryPageLimit: 5, Concurrency: 4, Label: "docs"},
		Log:       LogConfig{Level: "debug", MaxSizeMB: 10, MaxBackups: 3},
		Dashboard: DashboardConfig{Addr: ":9000"},
	}

	if err := Save(want, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("url: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		URL:   "https://example.atlassian.net",
		Email: "dev@example.com",
		Token: "secret",
		Sync:  SyncConfig{StoryPageLimit: 25, Concurrency: 1},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"missing email", func(c *Config) { c.Email = "" }, true},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"negative limit", func(c *Config) { c.Sync.StoryPageLimit = -1 }, true},
		{"zero concurrency", func(c *Config) { c.Sync.Concurrency = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"":                               "",
		"example.atlassian.net":          "https://example.atlassian.net",
		"https://example.atlassian.net/": "https://example.atlassian.net",
		"http://localhost:8080":          "http://localhost:8080",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
