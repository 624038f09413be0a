package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Duration is a time.Duration that decodes from TOML duration strings such
// as "30s" or "3m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Sitemap     SitemapConfig   `toml:"sitemap"`
	Browser     BrowserConfig   `toml:"browser"`
	Captcha     CaptchaConfig   `toml:"captcha"`
	Providers   ProvidersConfig `toml:"providers"`
	Sites       []SiteConfig    `toml:"sites"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SchedulerConfig controls the single-flight submit loop and the sitemap
// discovery loop. Schedules use 6-field cron expressions (with seconds).
type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	SubmitSchedule  string `toml:"submit_schedule"`  // default: every 10s
	SitemapSchedule string `toml:"sitemap_schedule"` // default: every 1m
}

// SitemapConfig bounds recursive sitemap-index resolution.
type SitemapConfig struct {
	MaxDepth       int      `toml:"max_depth"`
	FetchTimeout   Duration `toml:"fetch_timeout"`
	UserAgent      string   `toml:"user_agent"`
	MaxURLsPerPass int      `toml:"max_urls_per_pass"` // 0 = unlimited
}

// BrowserConfig controls chromedp session launches.
type BrowserConfig struct {
	Headless        bool     `toml:"headless"`
	ExecPath        string   `toml:"exec_path"` // optional Chrome binary path
	SubmitTimeout   Duration `toml:"submit_timeout"`
	LoginTimeout    Duration `toml:"login_timeout"`
	ManualLoginWait Duration `toml:"manual_login_wait"`
	LoginAttempts   int      `toml:"login_attempts"`
}

// CaptchaConfig selects and configures the captcha solving backend.
type CaptchaConfig struct {
	Backend      string   `toml:"backend" validate:"omitempty,oneof=taskqueue gemini claude"`
	Endpoint     string   `toml:"endpoint"` // taskqueue base URL
	APIKey       string   `toml:"api_key"`
	Model        string   `toml:"model"`
	PollInterval Duration `toml:"poll_interval"`
	PollAttempts int      `toml:"poll_attempts"`
}

type ProvidersConfig struct {
	Google GoogleConfig  `toml:"google"`
	Bing   BingConfig    `toml:"bing"`
	Naver  ConsoleConfig `toml:"naver"`
	Daum   ConsoleConfig `toml:"daum"`
}

// GoogleConfig configures the Indexing API strategy.
type GoogleConfig struct {
	Enabled            bool     `toml:"enabled"`
	ServiceAccountFile string   `toml:"service_account_file"`
	Endpoint           string   `toml:"endpoint"`
	BatchSize          int      `toml:"batch_size"`  // concurrent requests per window
	BatchDelay         Duration `toml:"batch_delay"` // delay between windows
}

// BingConfig configures the Bing URL submission API strategy.
type BingConfig struct {
	Enabled  bool   `toml:"enabled"`
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`
}

// ConsoleConfig configures a browser-automation provider (Naver, Daum).
type ConsoleConfig struct {
	Enabled  bool   `toml:"enabled"`
	LoginID  string `toml:"login_id"`
	Password string `toml:"password"`
	Headless *bool  `toml:"headless"` // overrides browser.headless when set
}

// SiteConfig seeds a site into storage at startup.
type SiteConfig struct {
	ID        string   `toml:"id" validate:"required"`
	Name      string   `toml:"name"`
	BaseURL   string   `toml:"base_url" validate:"required,url"`
	Providers []string `toml:"providers"`
	Sitemaps  []string `toml:"sitemaps"` // sitemap types, default ["sitemap.xml"]
}

// NewDefaultConfig returns the built-in defaults applied before any file or
// environment override.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/submitto"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			SubmitSchedule:  "*/10 * * * * *",
			SitemapSchedule: "0 * * * * *",
		},
		Sitemap: SitemapConfig{
			MaxDepth:     5,
			FetchTimeout: Duration(30 * time.Second),
			UserAgent:    "submitto/1.0 (+https://github.com/submitto/submitto)",
		},
		Browser: BrowserConfig{
			Headless:        true,
			SubmitTimeout:   Duration(20 * time.Second),
			LoginTimeout:    Duration(60 * time.Second),
			ManualLoginWait: Duration(3 * time.Minute),
			LoginAttempts:   2,
		},
		Captcha: CaptchaConfig{
			Backend:      "taskqueue",
			PollInterval: Duration(2 * time.Second),
			PollAttempts: 20,
		},
		Providers: ProvidersConfig{
			Google: GoogleConfig{
				Endpoint:   "https://indexing.googleapis.com/v3/urlNotifications:publish",
				BatchSize:  3,
				BatchDelay: Duration(time.Second),
			},
			Bing: BingConfig{
				Endpoint: "https://ssl.bing.com/webmaster/api.svc/json/SubmitUrlbatch",
			},
		},
	}
}

// LoadFromFiles loads configuration: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones; environment variables override files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies SUBMITTO_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SUBMITTO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SUBMITTO_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("SUBMITTO_GOOGLE_SERVICE_ACCOUNT_FILE"); v != "" {
		config.Providers.Google.ServiceAccountFile = v
	}
	if v := os.Getenv("SUBMITTO_BING_API_KEY"); v != "" {
		config.Providers.Bing.APIKey = v
	}
	if v := os.Getenv("SUBMITTO_CAPTCHA_API_KEY"); v != "" {
		config.Captcha.APIKey = v
	}
	if v := os.Getenv("SUBMITTO_BROWSER_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = headless
		}
	}
	if v := os.Getenv("SUBMITTO_NAVER_LOGIN_ID"); v != "" {
		config.Providers.Naver.LoginID = v
	}
	if v := os.Getenv("SUBMITTO_NAVER_PASSWORD"); v != "" {
		config.Providers.Naver.Password = v
	}
	if v := os.Getenv("SUBMITTO_DAUM_LOGIN_ID"); v != "" {
		config.Providers.Daum.LoginID = v
	}
	if v := os.Getenv("SUBMITTO_DAUM_PASSWORD"); v != "" {
		config.Providers.Daum.Password = v
	}
}

// Validate checks struct constraints and cron schedules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ValidateSchedule(c.Scheduler.SubmitSchedule); err != nil {
		return fmt.Errorf("invalid submit_schedule: %w", err)
	}
	if err := ValidateSchedule(c.Scheduler.SitemapSchedule); err != nil {
		return fmt.Errorf("invalid sitemap_schedule: %w", err)
	}
	return nil
}

// ValidateSchedule verifies a 6-field (seconds-resolution) cron expression.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule is empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// ConsoleFor returns the console configuration for a browser-based provider.
func (p *ProvidersConfig) ConsoleFor(provider string) *ConsoleConfig {
	switch provider {
	case "naver":
		return &p.Naver
	case "daum":
		return &p.Daum
	default:
		return nil
	}
}
