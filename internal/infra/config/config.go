package config

// Configuration loading
// Priority (lowest to highest): defaults, config.yaml, .env / environment, command line flags
// Env aliases keep the deployment variables of the hosted bot working (BOT_TOKEN, PORT, ...)

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	App       AppConfig       `mapstructure:"app" yaml:"app"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Keepalive KeepaliveConfig `mapstructure:"keepalive" yaml:"keepalive"`
	Sources   []SourceConfig  `mapstructure:"sources" yaml:"sources"`
}

type TelegramConfig struct {
	BotToken          string  `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID            string  `mapstructure:"chat_id" yaml:"chat_id"`
	Commands          bool    `mapstructure:"commands" yaml:"commands"`               // answer /start, /status, ... in ChatID
	StartupMessage    bool    `mapstructure:"startup_message" yaml:"startup_message"` // announce startup in ChatID
	MessagesPerSecond float64 `mapstructure:"messages_per_second" yaml:"messages_per_second"`
	SendRetries       int     `mapstructure:"send_retries" yaml:"send_retries"`
}

type AppConfig struct {
	PollInterval    int    `mapstructure:"poll_interval" yaml:"poll_interval"`     // seconds
	RequestTimeout  int    `mapstructure:"request_timeout" yaml:"request_timeout"` // seconds
	MaxResponseSize int64  `mapstructure:"max_response_size" yaml:"max_response_size"`
	SeedOnFirstPoll bool   `mapstructure:"seed_on_first_poll" yaml:"seed_on_first_poll"`
	BreakerFailures int    `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  int    `mapstructure:"breaker_timeout" yaml:"breaker_timeout"` // seconds
	SourceNames     string `mapstructure:"source_names" yaml:"source_names"`       // presets used when no sources block is configured
	LogDir          string `mapstructure:"log_dir" yaml:"log_dir"`
	Debug           bool   `mapstructure:"debug" yaml:"debug"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"` // memory | file | postgres
	Path        string `mapstructure:"path" yaml:"path"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

type KeepaliveConfig struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Interval int    `mapstructure:"interval" yaml:"interval"` // seconds
}

// SourceConfig describes one listing site. Preset fills every empty field.
type SourceConfig struct {
	Name             string `mapstructure:"name" yaml:"name"`
	Title            string `mapstructure:"title" yaml:"title,omitempty"`
	Preset           string `mapstructure:"preset" yaml:"preset,omitempty"`
	URL              string `mapstructure:"url" yaml:"url,omitempty"`
	Enabled          *bool  `mapstructure:"enabled" yaml:"enabled,omitempty"`
	ListPath         string `mapstructure:"list_path" yaml:"list_path,omitempty"`
	IDField          string `mapstructure:"id_field" yaml:"id_field,omitempty"`
	CurrencyField    string `mapstructure:"currency_field" yaml:"currency_field,omitempty"`
	IssuerField      string `mapstructure:"issuer_field" yaml:"issuer_field,omitempty"`
	NameField        string `mapstructure:"name_field" yaml:"name_field,omitempty"`
	DescriptionField string `mapstructure:"description_field" yaml:"description_field,omitempty"`
	CreatedField     string `mapstructure:"created_field" yaml:"created_field,omitempty"`
	LinkTemplate     string `mapstructure:"link_template" yaml:"link_template,omitempty"`
}

func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

const DefaultSourceNames = "firstledger,xrplto,xpmarket"

// RegisterFlags adds the flags LoadConfig understands to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (default ./config.yaml)")
	fs.Int("poll-interval", 30, "Seconds between listing polls (env: POLL_INTERVAL)")
	fs.String("storage", "file", "Seen token store: memory, file or postgres (env: STORAGE_DRIVER)")
	fs.String("storage-path", "data_out/seen_tokens.json", "JSON file used by the file store (env: STORAGE_PATH)")
	fs.String("sources", DefaultSourceNames, "Comma-separated source presets when config.yaml has no sources block (env: SOURCES)")
	fs.Int("port", 5000, "Health check port (env: PORT)")
	fs.String("log-dir", "logs", "Directory for app.log (env: LOG_DIR)")
	fs.Bool("debug", false, "Write debug lines to app.log (env: DEBUG)")
}

var flagKeys = map[string]string{
	"poll-interval": "app.poll_interval",
	"storage":       "storage.driver",
	"storage-path":  "storage.path",
	"sources":       "app.source_names",
	"port":          "http.port",
	"log-dir":       "app.log_dir",
	"debug":         "app.debug",
}

// LoadConfig builds the configuration. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("XLB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)

	if fs != nil {
		for name, key := range flagKeys {
			// only flags the user actually set may override lower layers
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = sourcesFromNames(cfg.App.SourceNames)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnvAliases(v *viper.Viper) {
	// Telegram
	_ = v.BindEnv("telegram.bot_token", "BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "ADMIN_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("telegram.commands", "TELEGRAM_COMMANDS")
	_ = v.BindEnv("telegram.startup_message", "STARTUP_MESSAGE")
	_ = v.BindEnv("telegram.messages_per_second", "TELEGRAM_MESSAGES_PER_SECOND")

	// App
	_ = v.BindEnv("app.poll_interval", "POLL_INTERVAL")
	_ = v.BindEnv("app.request_timeout", "REQUEST_TIMEOUT")
	_ = v.BindEnv("app.seed_on_first_poll", "SEED_ON_FIRST_POLL")
	_ = v.BindEnv("app.source_names", "SOURCES")
	_ = v.BindEnv("app.log_dir", "LOG_DIR")
	_ = v.BindEnv("app.debug", "DEBUG")

	// Storage
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("storage.path", "STORAGE_PATH")
	_ = v.BindEnv("storage.database_url", "DATABASE_URL")

	// HTTP / keep-alive
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("http.enabled", "HTTP_ENABLED")
	_ = v.BindEnv("keepalive.url", "KEEPALIVE_URL", "RENDER_EXTERNAL_URL")
	_ = v.BindEnv("keepalive.interval", "KEEPALIVE_INTERVAL")
}

func setDefaults(v *viper.Viper) {
	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.commands", true)
	v.SetDefault("telegram.startup_message", false)
	v.SetDefault("telegram.messages_per_second", 1.0) // Telegram allows ~1 msg/s per chat
	v.SetDefault("telegram.send_retries", 3)

	// App
	v.SetDefault("app.poll_interval", 30)
	v.SetDefault("app.request_timeout", 10)
	v.SetDefault("app.max_response_size", 10*1024*1024) // 10MB
	v.SetDefault("app.seed_on_first_poll", false)
	v.SetDefault("app.breaker_failures", 5)
	v.SetDefault("app.breaker_timeout", 300)
	v.SetDefault("app.source_names", DefaultSourceNames)
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.debug", false)

	// Storage
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "data_out/seen_tokens.json")
	v.SetDefault("storage.database_url", "")

	// HTTP / keep-alive
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 5000)
	v.SetDefault("keepalive.url", "")
	v.SetDefault("keepalive.interval", 600)
}

func sourcesFromNames(names string) []SourceConfig {
	var out []SourceConfig
	seen := make(map[string]bool)
	for _, name := range strings.Split(names, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, SourceConfig{Name: name, Preset: name})
	}
	return out
}

// Validate checks everything every command needs. Telegram settings are checked by ValidateTelegram.
func (c *Config) Validate() error {
	if c.App.PollInterval <= 0 {
		return fmt.Errorf("app.poll_interval must be positive, got %d", c.App.PollInterval)
	}

	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file store")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url (DATABASE_URL) is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q: want memory, file or postgres", c.Storage.Driver)
	}

	enabled := 0
	names := make(map[string]bool)
	for i, s := range c.Sources {
		name := s.Name
		if name == "" {
			name = s.Preset
		}
		if name == "" {
			return fmt.Errorf("sources[%d]: name or preset is required", i)
		}
		if names[name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, name)
		}
		names[name] = true
		if s.IsEnabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one enabled source is required")
	}
	return nil
}

func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token (BOT_TOKEN) is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id (ADMIN_CHAT_ID) is required")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.App.PollInterval) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.App.RequestTimeout) * time.Second
}

func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.App.BreakerTimeout) * time.Second
}

func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.Keepalive.Interval) * time.Second
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Telegram.BotToken != "" {
		c.Telegram.BotToken = "***"
	}
	if c.Storage.DatabaseURL != "" {
		c.Storage.DatabaseURL = "***"
	}
	return c
}
