package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	App struct {
		Name          string `yaml:"name"`
		DefaultUserID string `yaml:"default_user_id"`
		LogLevel      string `yaml:"log_level"`
		LogFile       string `yaml:"log_file"`
	} `yaml:"app"`
	LLM struct {
		OpenAIKey       string `yaml:"openai_api_key" validate:"required"`
		Model           string `yaml:"model"`
		TracingDisabled bool   `yaml:"tracing_disabled"`
	} `yaml:"llm"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	DataSource struct {
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond int           `yaml:"requests_per_second"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
	} `yaml:"data_source"`
	Retry struct {
		Attempts     int           `yaml:"attempts" validate:"gte=0"`
		ExpBase      float64       `yaml:"exp_base" validate:"gte=1"`
		InitialDelay time.Duration `yaml:"initial_delay"`
		HTTPStatuses []int         `yaml:"http_statuses"`
	} `yaml:"retry"`
	Session struct {
		DBPath             string `yaml:"db_path"`
		CompactionInterval int    `yaml:"compaction_interval" validate:"gt=0"`
		CompactionOverlap  int    `yaml:"compaction_overlap" validate:"gte=0,ltfield=CompactionInterval"`
	} `yaml:"session"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Output struct {
		ReportDir   string `yaml:"report_dir"`
		SnapshotDir string `yaml:"snapshot_dir"`
	} `yaml:"output"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		WatchlistCron string   `yaml:"watchlist_cron"`
		Watchlist     []string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file at path, then applies environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIKey = v
	}
	if v := os.Getenv("RESEARCH_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.App.LogFile = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("SESSION_DB_PATH"); v != "" {
		c.Session.DBPath = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		c.Output.ReportDir = v
	}
	if v := os.Getenv("CRON_WATCHLIST"); v != "" {
		c.Schedule.WatchlistCron = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Schedule.Watchlist = splitList(v)
	}
	if v := os.Getenv("TRACING_DISABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LLM.TracingDisabled = b
		}
	}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "financial_research_agent"
	}
	if c.App.DefaultUserID == "" {
		c.App.DefaultUserID = "default_user"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash-lite"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 5
	}
	if c.DataSource.CacheTTL == 0 {
		c.DataSource.CacheTTL = 5 * time.Minute
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 5
	}
	if c.Retry.ExpBase == 0 {
		c.Retry.ExpBase = 7
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = time.Second
	}
	if len(c.Retry.HTTPStatuses) == 0 {
		c.Retry.HTTPStatuses = []int{429, 500, 503, 504}
	}
	if c.Session.DBPath == "" {
		c.Session.DBPath = "data/sessions.db"
	}
	if c.Session.CompactionInterval == 0 {
		c.Session.CompactionInterval = 5
	}
	if c.Session.CompactionOverlap == 0 {
		c.Session.CompactionOverlap = 2
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/research.db"
	}
	if c.Output.ReportDir == "" {
		c.Output.ReportDir = "reports"
	}
	if c.Output.SnapshotDir == "" {
		c.Output.SnapshotDir = "charts"
	}
	if c.Schedule.WatchlistCron == "" {
		c.Schedule.WatchlistCron = "0 30 22 * * 1-5"
	}
}

// MaxRetryDelay is the wait before the last retry attempt:
// initial_delay * exp_base^(attempts-1).
func (c *Config) MaxRetryDelay() time.Duration {
	d := float64(c.Retry.InitialDelay)
	for i := 1; i < c.Retry.Attempts; i++ {
		d *= c.Retry.ExpBase
	}
	return time.Duration(d)
}

// HistoryLimit is the number of session items replayed to the planner.
func (c *Config) HistoryLimit() int {
	return 2 * (c.Session.CompactionInterval + c.Session.CompactionOverlap)
}

// Validate checks the fields every run mode needs against the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateBot checks the extra fields needed by the Telegram daemon.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
