package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Keywords   KeywordsConfig   `yaml:"keywords" mapstructure:"keywords"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourceConfig configures where documents are read from.
type SourceConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	FTPURL         string `yaml:"ftp_url" mapstructure:"ftp_url"`
	FTPTimeoutSecs int    `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	MaxFileMB      int    `yaml:"max_file_mb" mapstructure:"max_file_mb"`
}

// KeywordsConfig points at an optional keyword table override.
type KeywordsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RulesConfig tunes the task rules.
type RulesConfig struct {
	PensionRequiresMention bool `yaml:"pension_requires_mention" mapstructure:"pension_requires_mention"`
	LOAGateMaxMissing      int  `yaml:"loa_gate_max_missing" mapstructure:"loa_gate_max_missing"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// RetryConfig configures retries against remote sources and webhooks.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	MaxUploadMB     int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// MonitoringConfig configures the background backlog checker.
type MonitoringConfig struct {
	Enabled             bool   `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs   int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int    `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	EscalationThreshold int    `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	FailureThreshold    int    `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHASER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "chaser.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("source.dir", "data/source_docs")
	v.SetDefault("source.ftp_url", "")
	v.SetDefault("source.ftp_timeout_secs", 30)
	v.SetDefault("source.max_file_mb", 32)
	v.SetDefault("keywords.path", "")
	v.SetDefault("rules.pension_requires_mention", true)
	v.SetDefault("rules.loa_gate_max_missing", 3)
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.rate_limit_per_sec", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 900)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.escalation_threshold", 1)
	v.SetDefault("monitoring.failure_threshold", 3)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports every problem in cfg at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Source.FTPURL != "" && !strings.HasPrefix(c.Source.FTPURL, "ftp://") {
		errs = append(errs, "source.ftp_url must start with ftp://")
	}
	if c.Batch.MaxConcurrentDocuments < 1 {
		errs = append(errs, "batch.max_concurrent_documents must be at least 1")
	}
	if c.Rules.LOAGateMaxMissing < 0 {
		errs = append(errs, "rules.loa_gate_max_missing must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.RateLimitPerSec < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "server rate limits must not be negative")
	}
	if c.Monitoring.Enabled && c.Monitoring.LookbackWindowHours < 1 {
		errs = append(errs, "monitoring.lookback_window_hours must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level is not a valid level")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
