package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Watch is one symbol/interval series scanned on a schedule.
type Watch struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Interval string `yaml:"interval" default:"1h" validate:"required"`
	Cron     string `yaml:"cron" default:"5 0 * * * *"`
	Limit    int    `yaml:"limit" default:"300" validate:"gte=52,lte=1000"`
	Stream   bool   `yaml:"stream"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string `yaml:"provider" default:"binance" validate:"oneof=binance yahoo vstrader mock"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		WSURL    string `yaml:"ws_url"`
	} `yaml:"data_source"`
	Watches      []Watch `yaml:"watches" validate:"dive"`
	Confirmation struct {
		Enabled     bool          `yaml:"enabled"`
		BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"gpt-4o-mini"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
		ContextBars int           `yaml:"context_bars" default:"30" validate:"gte=1,lte=200"`
		MaxRetries  int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
	} `yaml:"confirmation"`
	State struct {
		File string `yaml:"file" default:"data/signal_state.json"`
	} `yaml:"state"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/reversal_sentinel.db"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load reads config from a YAML file, then applies environment variable
// overrides and struct-tag defaults. A missing file is not an error.
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

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(cfg.Watches) == 0 {
		w := Watch{Symbol: "BTCUSDT"}
		if err := defaults.Set(&w); err != nil {
			return nil, fmt.Errorf("apply defaults: %w", err)
		}
		cfg.Watches = []Watch{w}
	}
	for i := range cfg.Watches {
		if err := defaults.Set(&cfg.Watches[i]); err != nil {
			return nil, fmt.Errorf("apply watch defaults: %w", err)
		}
		cfg.Watches[i].Symbol = strings.ToUpper(cfg.Watches[i].Symbol)
	}

	return cfg, nil
}

// Environment variable overrides
func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Confirmation.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.Confirmation.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Confirmation.Model = v
	}
	if v := os.Getenv("CONFIRMATION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Confirmation.Enabled = b
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("WATCH_SYMBOLS"); v != "" {
		cfg.Watches = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Watches = append(cfg.Watches, Watch{Symbol: s})
			}
		}
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("config: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if (c.DataSource.Provider == "vstrader") && c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required for vstrader")
	}
	if c.Confirmation.Enabled && c.Confirmation.APIKey == "" {
		return fmt.Errorf("confirmation.api_key is required when confirmation is enabled")
	}
	seen := make(map[string]bool)
	for _, w := range c.Watches {
		key := w.Symbol + "@" + w.Interval
		if seen[key] {
			return fmt.Errorf("duplicate watch %s", key)
		}
		seen[key] = true
	}
	return nil
}

// TelegramEnabled reports whether both telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
