package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when no YouTube credential is configured.
// Nothing useful can run without one, so callers should fail before analysis.
var ErrMissingCredential = errors.New("missing YouTube credential")

// scheduleParser matches the seconds-first format the scheduler runs with.
var scheduleParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

//go:embed sources.yaml
var defaultSourcesYAML []byte

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Search     SearchConfig     `yaml:"search"`
	Sources    []Source         `yaml:"sources"`
	Comparator ComparatorConfig `yaml:"comparator"`
	AI         AIConfig         `yaml:"ai"`
	Email      EmailConfig      `yaml:"email"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	APIKey       string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

// UsesOAuth reports whether the client should authenticate as a user rather
// than with a developer key.
func (y YouTubeConfig) UsesOAuth() bool {
	return y.APIKey == "" && y.ClientID != "" && y.ClientSecret != ""
}

type SearchConfig struct {
	Keyword    string `yaml:"keyword" env:"SEARCH_KEYWORD"`
	MaxResults int64  `yaml:"max_results" env:"MAX_RESULTS"`
}

// Source is one entry of the reference-source registry.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type ComparatorConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

func (a AIConfig) Enabled() bool {
	return a.GeminiAPIKey != ""
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != "" && e.Username != ""
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	// Runs older than this are pruned from history. Zero keeps everything.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

// DefaultSources returns the built-in reference-source registry.
func DefaultSources() ([]Source, error) {
	var sources []Source
	if err := yaml.Unmarshal(defaultSourcesYAML, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse built-in source registry: %w", err)
	}
	return sources, nil
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	explicit := configFile != ""
	if !explicit {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.YouTube.ClientID == "" {
		c.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.ClientSecret == "" {
		c.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Email.Username == "" {
		c.Email.Username = os.Getenv("EMAIL_USERNAME")
	}
	if c.Email.Password == "" {
		c.Email.Password = os.Getenv("EMAIL_PASSWORD")
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = os.Getenv("DATA_DIR")
	}
	if v := os.Getenv("SEARCH_KEYWORD"); v != "" {
		c.Search.Keyword = v
	}
	if v := os.Getenv("MAX_RESULTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_RESULTS %q: %w", v, err)
		}
		c.Search.MaxResults = n
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 10
	}
	if len(c.Sources) == 0 {
		sources, err := DefaultSources()
		if err != nil {
			return err
		}
		c.Sources = sources
	}
	if c.Comparator.Timeout == 0 {
		c.Comparator.Timeout = 10 * time.Second
	}
	if c.Comparator.Concurrency == 0 {
		c.Comparator.Concurrency = 4
	}
	if c.Comparator.RequestsPerSecond == 0 {
		c.Comparator.RequestsPerSecond = 5
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 0 9 * * *" // Daily at 9 AM (cron runs with seconds)
	}
	return nil
}

func (c *Config) validate() error {
	if c.YouTube.APIKey == "" && (c.YouTube.ClientID == "" || c.YouTube.ClientSecret == "") {
		return fmt.Errorf("%w: set YOUTUBE_API_KEY or youtube.api_key (or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET for OAuth)", ErrMissingCredential)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 50 {
		return fmt.Errorf("search.max_results must be between 1 and 50, got %d", c.Search.MaxResults)
	}
	for i, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("source %d must have both a name and a url", i)
		}
	}
	if _, err := scheduleParser.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	if c.Comparator.Concurrency < 1 {
		return fmt.Errorf("comparator.concurrency must be positive, got %d", c.Comparator.Concurrency)
	}
	if c.Email.Enabled() {
		if c.Email.Password == "" {
			return fmt.Errorf("Email password is required when email is configured (set EMAIL_PASSWORD or email.password)")
		}
		if c.Email.ToEmail == "" || c.Email.FromEmail == "" {
			return fmt.Errorf("email.from_email and email.to_email are required when email is configured")
		}
	}
	return nil
}
