package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/service"
)

// Config represents application configuration
type Config struct {
	Feishu     FeishuConfig
	Store      StoreConfig
	Membership MembershipConfig
	Reconcile  ReconcileConfig
	Dispatch   DispatchConfig
	API        APIConfig
	LLM        LLMConfig

	// Reply templates and prompts file, defaults are used when unset
	MessagesPath string `env:"MESSAGES_CONFIG_PATH"`
	Messages     *MessagesConfig

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	Debug    bool   `env:"DEBUG" env-default:"false"`
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string `env:"FEISHU_APP_ID"`
	AppSecret string `env:"FEISHU_APP_SECRET"`
}

// StoreConfig contains convention store configuration
type StoreConfig struct {
	DBPath   string `env:"INVITOR_DB_PATH"`
	PageSize int    `env:"STORE_PAGE_SIZE" env-default:"100"`
}

// MembershipConfig contains workspace API pacing
type MembershipConfig struct {
	DirectoryPageDelay time.Duration `env:"DIRECTORY_PAGE_DELAY" env-default:"1s"`
	ChannelPageDelay   time.Duration `env:"CHANNEL_PAGE_DELAY" env-default:"500ms"`
	SystemAccountID    string        `env:"SYSTEM_ACCOUNT_ID"`
}

// ReconcileConfig contains reconciliation configuration
type ReconcileConfig struct {
	InviteDelay time.Duration `env:"INVITE_DELAY" env-default:"500ms"`
	// Periodic re-queue of every convention, 0 disables it
	SweepInterval time.Duration `env:"RECONCILE_SWEEP_INTERVAL" env-default:"0"`
}

// DispatchConfig contains reconcile dispatcher configuration
type DispatchConfig struct {
	Workers    int           `env:"DISPATCH_WORKERS" env-default:"2"`
	QueueSize  int           `env:"DISPATCH_QUEUE_SIZE" env-default:"64"`
	JobTimeout time.Duration `env:"DISPATCH_JOB_TIMEOUT" env-default:"30m"`
}

// APIConfig contains admin HTTP API configuration
type APIConfig struct {
	Addr string `env:"API_ADDR" env-default:"127.0.0.1:9876"`
	// Base URL the MCP relay calls, derived from Addr when empty
	URL string `env:"INVITOR_API_URL"`
}

// BaseURL returns the admin API base URL
func (c APIConfig) BaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	return "http://" + c.Addr
}

// LLMConfig contains the optional recommender model configuration
type LLMConfig struct {
	APIKey  string `env:"LLM_API_KEY"`
	Model   string `env:"LLM_MODEL"`
	BaseURL string `env:"LLM_BASE_URL"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.Store.DBPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.Store.DBPath = filepath.Join(homeDir, ".feishu-invitor", "conventions.db")
	}

	messages, err := LoadMessagesConfig(cfg.MessagesPath)
	if err != nil {
		return nil, err
	}
	cfg.Messages = messages

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Store.PageSize <= 0 {
		return &ConfigError{Field: "STORE_PAGE_SIZE", Message: "must be positive"}
	}
	if c.Dispatch.Workers <= 0 || c.Dispatch.QueueSize <= 0 {
		return &ConfigError{Field: "DISPATCH_WORKERS/DISPATCH_QUEUE_SIZE", Message: "must be positive"}
	}
	for field, d := range map[string]time.Duration{
		"DIRECTORY_PAGE_DELAY":     c.Membership.DirectoryPageDelay,
		"CHANNEL_PAGE_DELAY":       c.Membership.ChannelPageDelay,
		"INVITE_DELAY":             c.Reconcile.InviteDelay,
		"RECONCILE_SWEEP_INTERVAL": c.Reconcile.SweepInterval,
	} {
		if d < 0 {
			return &ConfigError{Field: field, Message: "must not be negative"}
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "LOG_LEVEL", Message: err.Error()}
	}
	return nil
}

// Level returns the configured log level, debug when DEBUG is set
func (c *Config) Level() log.Level {
	if c.Debug {
		return log.DebugLevel
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// ToMembershipConfig converts to data membership configuration
func (c *Config) ToMembershipConfig() data.MembershipConfig {
	return data.MembershipConfig{
		DirectoryPageDelay: c.Membership.DirectoryPageDelay,
		ChannelPageDelay:   c.Membership.ChannelPageDelay,
		SystemAccountID:    c.Membership.SystemAccountID,
	}
}

// ToReconcileConfig converts to usecase reconcile configuration
func (c *Config) ToReconcileConfig() usecase.ReconcileConfig {
	return usecase.ReconcileConfig{InviteDelay: c.Reconcile.InviteDelay}
}

// ToDispatcherConfig converts to service dispatcher configuration
func (c *Config) ToDispatcherConfig() service.DispatcherConfig {
	return service.DispatcherConfig{
		Workers:    c.Dispatch.Workers,
		QueueSize:  c.Dispatch.QueueSize,
		JobTimeout: c.Dispatch.JobTimeout,
	}
}

// ToDataOptions converts to repository options
func (c *Config) ToDataOptions() data.Options {
	return data.Options{
		DBPath:        c.Store.DBPath,
		StorePageSize: c.Store.PageSize,
		Membership:    c.ToMembershipConfig(),
		Prompts:       c.Messages.ToRecommendPrompts(),
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
