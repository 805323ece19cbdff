package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider    string        `yaml:"provider"` // yahoo | alphavantage | mock
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		RateLimit   int           `yaml:"rate_limit"` // requests per minute
		CacheTTL    time.Duration `yaml:"cache_ttl"`
		CacheSize   int           `yaml:"cache_size"`
		SnapshotDir string        `yaml:"snapshot_dir"`
	} `yaml:"data_source"`
	Schedule struct {
		EvaluateCron string `yaml:"evaluate_cron"`
		ReportCron   string `yaml:"report_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		Driver     string `yaml:"driver"` // sqlite | mysql | none
		SQLitePath string `yaml:"sqlite_path"`
		MySQLDSN   string `yaml:"mysql_dsn"`
	} `yaml:"database"`
	Watchlist  []string `yaml:"watchlist"`
	HistoryDir string   `yaml:"history_dir"`
	Server     struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Report struct {
		XLSXPath string `yaml:"xlsx_path"`
	} `yaml:"report"`
	// ReferenceIndexes overrides the benchmark per cap tier, keyed SMALL/MID/LARGE.
	ReferenceIndexes map[string]string `yaml:"reference_indexes"`
	Proxy            string            `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults.
func Load(path string) (*Config, error) {
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

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.DataSource.Provider, "DATA_PROVIDER")
	setString(&cfg.DataSource.APIKey, "ALPHAVANTAGE_API_KEY")
	setString(&cfg.DataSource.BaseURL, "DATA_BASE_URL")
	setString(&cfg.DataSource.SnapshotDir, "SNAPSHOT_DIR")
	setString(&cfg.Schedule.EvaluateCron, "CRON_EVALUATE")
	setString(&cfg.Schedule.ReportCron, "CRON_REPORT")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Database.MySQLDSN, "MYSQL_DSN")
	setString(&cfg.HistoryDir, "HISTORY_DIR")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Report.XLSXPath, "REPORT_XLSX_PATH")
	setString(&cfg.Proxy, "HTTPS_PROXY")

	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist = nil
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Watchlist = append(cfg.Watchlist, id)
			}
		}
	}
	if v := os.Getenv("DATA_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DataSource.RateLimit = n
		}
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Pretty = b
		}
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Schedule.RunOnStart = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.RateLimit == 0 {
		cfg.DataSource.RateLimit = 5
	}
	if cfg.DataSource.CacheTTL == 0 {
		cfg.DataSource.CacheTTL = 6 * time.Hour
	}
	if cfg.DataSource.CacheSize == 0 {
		cfg.DataSource.CacheSize = 200
	}
	if cfg.DataSource.SnapshotDir == "" {
		cfg.DataSource.SnapshotDir = "data/snapshots"
	}
	if cfg.Schedule.EvaluateCron == "" {
		cfg.Schedule.EvaluateCron = "0 0 19 * * 1-5"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 8 * * 1"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stock_sentinel.db"
	}
	if cfg.HistoryDir == "" {
		cfg.HistoryDir = "data/history"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Report.XLSXPath == "" {
		cfg.Report.XLSXPath = "data/levermann.xlsx"
	}
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// CapIndexes converts ReferenceIndexes into cap tiers.
func (c *Config) CapIndexes() (map[model.CapType]string, error) {
	out := make(map[model.CapType]string, len(c.ReferenceIndexes))
	for k, v := range c.ReferenceIndexes {
		var ct model.CapType
		if err := ct.UnmarshalText([]byte(k)); err != nil || ct == model.CapUnknown {
			return nil, fmt.Errorf("reference_indexes: unknown cap tier %q", k)
		}
		out[ct] = v
	}
	return out, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alphavantage":
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for alphavantage")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "mysql":
		if c.Database.MySQLDSN == "" {
			return fmt.Errorf("database.mysql_dsn is required for mysql")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.DataSource.RateLimit < 0 {
		return fmt.Errorf("data_source.rate_limit must not be negative")
	}
	if _, err := c.CapIndexes(); err != nil {
		return err
	}
	return nil
}
