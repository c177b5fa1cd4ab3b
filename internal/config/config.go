package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Language describes one translation target. A language with
// SkipTranslation set receives the original English text verbatim.
type Language struct {
	Code            string `yaml:"code"`
	Name            string `yaml:"name"`
	FeedName        string `yaml:"feed_name"`
	SkipTranslation bool   `yaml:"skip_translation"`
}

// Config holds all settings for one pipeline run.
type Config struct {
	General     GeneralConfig     `yaml:"general"`
	Filtering   FilteringConfig   `yaml:"filtering"`
	Scraping    ScrapingConfig    `yaml:"scraping"`
	Summarize   SummarizeConfig   `yaml:"summarization"`
	Translation TranslationConfig `yaml:"translation"`
	Comments    CommentsConfig    `yaml:"comments"`
	Output      OutputConfig      `yaml:"output"`
	Notify      NotifyConfig      `yaml:"notify"`

	// Secrets come from the environment, never from the file.
	GeminiAPIKey   string `yaml:"-"`
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"-"`
	Debug          bool   `yaml:"-"`
}

type GeneralConfig struct {
	SourceFeed string `yaml:"source_feed"`
	CacheDir   string `yaml:"cache_dir"`
}

type FilteringConfig struct {
	MaxItems    int  `yaml:"max_items"`
	MaxAgeHours int  `yaml:"max_age_hours"`
	SkipJobs    bool `yaml:"skip_jobs"`
}

type ScrapingConfig struct {
	Workers          int    `yaml:"workers"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxContentLength int    `yaml:"max_content_length"`
	UserAgent        string `yaml:"user_agent"`
}

type SummarizeConfig struct {
	Model            string `yaml:"model"`
	MaxSentences     int    `yaml:"max_sentences"`
	MinContentLength int    `yaml:"min_content_length"`
}

type TranslationConfig struct {
	Provider           string     `yaml:"provider"`
	SourceLanguage     string     `yaml:"source_language"`
	RateLimitPerSecond float64    `yaml:"rate_limit_per_second"`
	TargetLanguages    []Language `yaml:"target_languages"`
}

type CommentsConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxPerItem int  `yaml:"max_per_item"`
	Workers    int  `yaml:"workers"`
}

type OutputConfig struct {
	BaseURL       string `yaml:"base_url"`
	Directory     string `yaml:"directory"`
	KeepDays      int    `yaml:"keep_days"`
	GenerateIndex bool   `yaml:"generate_index"`
}

type NotifyConfig struct {
	Telegram TelegramNotifyConfig `yaml:"telegram"`
}

type TelegramNotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the YAML config file, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			SourceFeed: "https://news.ycombinator.com/rss",
			CacheDir:   "cache",
		},
		Filtering: FilteringConfig{
			MaxItems:    30,
			MaxAgeHours: 24,
			SkipJobs:    true,
		},
		Scraping: ScrapingConfig{
			Workers:          5,
			TimeoutSeconds:   10,
			MaxContentLength: 5000,
		},
		Summarize: SummarizeConfig{
			Model:            "gemini-1.5-flash",
			MaxSentences:     3,
			MinContentLength: 50,
		},
		Translation: TranslationConfig{
			Provider:           "google",
			SourceLanguage:     "en",
			RateLimitPerSecond: 2.0,
		},
		Comments: CommentsConfig{
			Enabled:    false,
			MaxPerItem: 5,
			Workers:    3,
		},
		Output: OutputConfig{
			Directory:     "output",
			KeepDays:      7,
			GenerateIndex: true,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	c.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if os.Getenv("DEBUG") == "true" {
		c.Debug = true
	}
	if v := os.Getenv("MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Filtering.MaxItems = n
		}
	}
	if v := os.Getenv("KEEP_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Output.KeepDays = n
		}
	}
	if v := os.Getenv("SOURCE_FEED"); v != "" {
		c.General.SourceFeed = v
	}
}

func (c *Config) Validate() error {
	if c.General.SourceFeed == "" {
		return fmt.Errorf("general.source_feed is required")
	}
	if c.Output.BaseURL == "" {
		return fmt.Errorf("output.base_url is required")
	}
	if c.Output.KeepDays <= 0 {
		return fmt.Errorf("output.keep_days must be positive")
	}
	if len(c.Translation.TargetLanguages) == 0 {
		return fmt.Errorf("translation.target_languages must not be empty")
	}
	for _, lang := range c.Translation.TargetLanguages {
		if lang.Code == "" || lang.FeedName == "" {
			return fmt.Errorf("every target language needs code and feed_name (got code=%q feed_name=%q)", lang.Code, lang.FeedName)
		}
	}
	if c.Notify.Telegram.Enabled && (c.TelegramToken == "" || c.TelegramChatID == "") {
		return fmt.Errorf("telegram notify enabled but TELEGRAM_TOKEN/TELEGRAM_CHAT_ID not set")
	}
	return nil
}
