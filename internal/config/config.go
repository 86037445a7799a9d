package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultBaseURL is the deployment smoke runs target when APP_URL is unset.
	DefaultBaseURL    = "http://35.153.144.16:8081"
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultNavTimeout = 10 * time.Second
	// DefaultPageLoadTimeout bounds a single navigation. It is longer than the
	// 10 s load budget so a slow page fails only the load-time check.
	DefaultPageLoadTimeout = 60 * time.Second
	DefaultSchedule        = "@every 5m"
	DefaultJob             = "blog_smoke"
	DefaultScreenDir       = "test-results/screenshots"
)

// Config holds everything a smoke run needs. It is not modified once a run starts.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	Headless   bool          `mapstructure:"headless"`
	WindowSize WindowSize    `mapstructure:"window_size"`
	NavTimeout time.Duration `mapstructure:"nav_timeout"`
	// PageLoadTimeout bounds navigation; NavTimeout bounds explicit waits.
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
	Screenshots     bool          `mapstructure:"screenshots"`
	ScreenshotDir   string        `mapstructure:"screenshot_dir"`
	Extended        bool          `mapstructure:"extended"`
	SkipInstall     bool          `mapstructure:"skip_install"`
	Report          ReportConfig  `mapstructure:"report"`
	Metrics         MetricsConfig `mapstructure:"metrics"`
	Watch           WatchConfig   `mapstructure:"watch"`
}

type WindowSize struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type ReportConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

var (
	dotEnvOnce sync.Once
	logger     = log.New(os.Stdout, "[smoke-config] ", log.LstdFlags)
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Headless: true,
		WindowSize: WindowSize{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		NavTimeout:      DefaultNavTimeout,
		PageLoadTimeout: DefaultPageLoadTimeout,
		ScreenshotDir:   DefaultScreenDir,
		Report: ReportConfig{
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: DefaultJob,
		},
		Watch: WatchConfig{
			Schedule: DefaultSchedule,
		},
	}
}

// ResolveBaseURL returns APP_URL when set and non-empty, else DefaultBaseURL.
func ResolveBaseURL(getenv func(string) string) string {
	if u := strings.TrimSpace(getenv("APP_URL")); u != "" {
		return u
	}
	return DefaultBaseURL
}

// Resolve builds a Config from environment lookups only. It touches no
// process state, so tests can pass a map-backed getenv.
func Resolve(getenv func(string) string) Config {
	cfg := Default()
	cfg.BaseURL = ResolveBaseURL(getenv)
	cfg.Headless = getenv("HEADLESS") != "false"
	cfg.Screenshots = getenv("SCREENSHOTS") == "true"
	if dir := getenv("SCREENSHOT_DIR"); dir != "" {
		cfg.ScreenshotDir = dir
	}
	cfg.Extended = getenv("SMOKE_EXTENDED") == "true"
	cfg.SkipInstall = getenv("PLAYWRIGHT_PREINSTALLED") == "1"
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default .env).
// Variables already present in the environment are left alone.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Printf("ignoring %s: %v", p, err)
		}
	}
}

// FromEnv resolves the configuration from the process environment after a
// one-time .env preload.
func FromEnv() Config {
	dotEnvOnce.Do(func() { LoadDotEnv() })
	cfg := Resolve(os.Getenv)
	logger.Printf("Resolved BaseURL=%s (APP_URL=%q)", cfg.BaseURL, os.Getenv("APP_URL"))
	return cfg
}

// NewViper prepares a viper instance for layered loading. An explicit
// configFile must exist; otherwise smoke.yaml in the working directory is
// read when present.
func NewViper(configFile string) (*viper.Viper, error) {
	dotEnvOnce.Do(func() { LoadDotEnv() })

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Resolve(os.Getenv))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("smoke")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Environment beats the config file; APP_URL keeps its historical name.
	// A blank APP_URL counts as unset, so it is only bound when it has text.
	v.SetEnvPrefix("SMOKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if strings.TrimSpace(os.Getenv("APP_URL")) != "" {
		_ = v.BindEnv("base_url", "SMOKE_BASE_URL", "APP_URL")
	}

	return v, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("headless", cfg.Headless)
	v.SetDefault("window_size.width", cfg.WindowSize.Width)
	v.SetDefault("window_size.height", cfg.WindowSize.Height)
	v.SetDefault("nav_timeout", cfg.NavTimeout)
	v.SetDefault("page_load_timeout", cfg.PageLoadTimeout)
	v.SetDefault("screenshots", cfg.Screenshots)
	v.SetDefault("screenshot_dir", cfg.ScreenshotDir)
	v.SetDefault("extended", cfg.Extended)
	v.SetDefault("skip_install", cfg.SkipInstall)
	v.SetDefault("report.format", cfg.Report.Format)
	v.SetDefault("report.path", cfg.Report.Path)
	v.SetDefault("metrics.pushgateway_url", cfg.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", cfg.Metrics.Job)
	v.SetDefault("watch.schedule", cfg.Watch.Schedule)
}

// Load unmarshals and validates the layered configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Store hands out the latest configuration and swaps it when the config
// file changes on disk.
type Store struct {
	mu        sync.RWMutex
	cfg       Config
	listeners []func(old, cur Config)
}

func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Get returns the current configuration (thread-safe)
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// OnChange registers fn to be called after every reload with the previous
// and the new configuration.
func (s *Store) OnChange(fn func(old, cur Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) set(cfg Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	listeners := append([]func(old, cur Config){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
}

// Watch reloads s whenever the file behind v changes. Invalid edits are
// logged and the previous configuration is kept.
func (s *Store) Watch(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Printf("Config file changed: %s", e.Name)
		cfg, err := Load(v)
		if err != nil {
			logger.Printf("Failed to reload config: %v", err)
			return
		}
		s.set(cfg)
		logger.Println("Configuration reloaded successfully")
	})
	v.WatchConfig()
}

// URLFor joins path onto the base URL; an empty path yields the base URL itself.
func (c Config) URLFor(path string) string {
	if path == "" {
		return c.BaseURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
