package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "submitto.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Scheduler.SubmitSchedule != "*/10 * * * * *" {
		t.Errorf("submit schedule = %q", config.Scheduler.SubmitSchedule)
	}
	if !config.Scheduler.Enabled {
		t.Error("scheduler disabled by default")
	}
	if config.Sitemap.MaxDepth != 5 {
		t.Errorf("sitemap max depth = %d, want 5", config.Sitemap.MaxDepth)
	}
	if config.Browser.LoginAttempts != 2 {
		t.Errorf("login attempts = %d, want 2", config.Browser.LoginAttempts)
	}
	if !config.Browser.Headless {
		t.Error("browser not headless by default")
	}
	if config.Providers.Google.BatchSize != 3 {
		t.Errorf("google batch size = %d, want 3", config.Providers.Google.BatchSize)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment = "production"

[logging]
level = "debug"

[scheduler]
enabled = true
submit_schedule = "*/5 * * * * *"

[sitemap]
fetch_timeout = "45s"

[browser]
submit_timeout = "25s"
manual_login_wait = "5m"

[captcha]
poll_interval = "500ms"

[providers.google]
batch_delay = "2s"

[providers.bing]
enabled = true
api_key = "bing-key"

[providers.naver]
enabled = true
login_id = "someone"
password = "secret"
headless = false

[[sites]]
id = "blog"
base_url = "https://blog.example.com"
providers = ["google", "naver"]
`)

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("environment = %q", config.Environment)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("log level = %q", config.Logging.Level)
	}
	if config.Scheduler.SubmitSchedule != "*/5 * * * * *" {
		t.Errorf("submit schedule = %q", config.Scheduler.SubmitSchedule)
	}
	// untouched sections keep their defaults
	if config.Scheduler.SitemapSchedule != "0 * * * * *" {
		t.Errorf("sitemap schedule = %q, want default", config.Scheduler.SitemapSchedule)
	}
	if config.Browser.LoginTimeout != Duration(60*time.Second) {
		t.Errorf("login timeout = %v, want default", config.Browser.LoginTimeout)
	}

	// duration strings decode through the Duration text unmarshaler
	if config.Sitemap.FetchTimeout != Duration(45*time.Second) {
		t.Errorf("fetch timeout = %v, want 45s", time.Duration(config.Sitemap.FetchTimeout))
	}
	if config.Browser.SubmitTimeout != Duration(25*time.Second) {
		t.Errorf("submit timeout = %v, want 25s", time.Duration(config.Browser.SubmitTimeout))
	}
	if config.Browser.ManualLoginWait != Duration(5*time.Minute) {
		t.Errorf("manual login wait = %v, want 5m", time.Duration(config.Browser.ManualLoginWait))
	}
	if config.Captcha.PollInterval != Duration(500*time.Millisecond) {
		t.Errorf("poll interval = %v, want 500ms", time.Duration(config.Captcha.PollInterval))
	}
	if config.Providers.Google.BatchDelay != Duration(2*time.Second) {
		t.Errorf("batch delay = %v, want 2s", time.Duration(config.Providers.Google.BatchDelay))
	}

	if !config.Providers.Bing.Enabled || config.Providers.Bing.APIKey != "bing-key" {
		t.Error("bing section not applied")
	}
	naver := config.Providers.ConsoleFor("naver")
	if naver == nil || naver.LoginID != "someone" {
		t.Fatal("naver section not applied")
	}
	if naver.Headless == nil || *naver.Headless {
		t.Error("per-provider headless override not applied")
	}

	if len(config.Sites) != 1 || config.Sites[0].ID != "blog" {
		t.Fatalf("sites = %+v", config.Sites)
	}
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	base := writeConfigFile(t, `
[logging]
level = "warn"

[storage.badger]
path = "/tmp/base"
`)
	local := writeConfigFile(t, `
[storage.badger]
path = "/tmp/local"
`)

	config, err := LoadFromFiles(base, local)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if config.Storage.Badger.Path != "/tmp/local" {
		t.Errorf("badger path = %q, want later file to win", config.Storage.Badger.Path)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("log level = %q, want value from earlier file", config.Logging.Level)
	}
}

func TestLoadFromFilesRejectsBadInput(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}

	bad := writeConfigFile(t, `[scheduler`)
	if _, err := LoadFromFiles(bad); err == nil {
		t.Error("malformed toml accepted")
	}

	badSchedule := writeConfigFile(t, `
[scheduler]
submit_schedule = "not a schedule"
`)
	if _, err := LoadFromFiles(badSchedule); err == nil {
		t.Error("invalid cron schedule accepted")
	}

	badDuration := writeConfigFile(t, `
[sitemap]
fetch_timeout = "thirty seconds"
`)
	if _, err := LoadFromFiles(badDuration); err == nil {
		t.Error("malformed duration string accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SUBMITTO_LOG_LEVEL", "error")
	t.Setenv("SUBMITTO_BADGER_PATH", "/tmp/env-badger")
	t.Setenv("SUBMITTO_BING_API_KEY", "env-key")
	t.Setenv("SUBMITTO_BROWSER_HEADLESS", "false")

	path := writeConfigFile(t, `
[logging]
level = "info"
`)
	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if config.Logging.Level != "error" {
		t.Errorf("log level = %q, want env override", config.Logging.Level)
	}
	if config.Storage.Badger.Path != "/tmp/env-badger" {
		t.Errorf("badger path = %q, want env override", config.Storage.Badger.Path)
	}
	if config.Providers.Bing.APIKey != "env-key" {
		t.Errorf("bing key = %q, want env override", config.Providers.Bing.APIKey)
	}
	if config.Browser.Headless {
		t.Error("headless env override not applied")
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"*/10 * * * * *", true},
		{"0 * * * * *", true},
		{"0 30 2 * * 1", true},
		{"* * * * *", false}, // 5 fields, seconds required
		{"", false},
		{"every 10s", false},
	}

	for _, tt := range tests {
		err := ValidateSchedule(tt.schedule)
		if tt.valid && err != nil {
			t.Errorf("ValidateSchedule(%q) = %v, want nil", tt.schedule, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateSchedule(%q) accepted", tt.schedule)
		}
	}
}

func TestConsoleFor(t *testing.T) {
	providers := &ProvidersConfig{
		Naver: ConsoleConfig{LoginID: "n"},
		Daum:  ConsoleConfig{LoginID: "d"},
	}

	if c := providers.ConsoleFor("naver"); c == nil || c.LoginID != "n" {
		t.Error("naver console not resolved")
	}
	if c := providers.ConsoleFor("daum"); c == nil || c.LoginID != "d" {
		t.Error("daum console not resolved")
	}
	if providers.ConsoleFor("google") != nil {
		t.Error("google resolved to a console config")
	}
}
