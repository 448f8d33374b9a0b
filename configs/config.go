package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config struct
type Config struct {
	App       `mapstructure:"app"`
	Database  `mapstructure:"database"`
	LLM       `mapstructure:"llm"`
	Docs      `mapstructure:"docs"`
	RateLimit `mapstructure:"rate_limit"`
	Redis     `mapstructure:"redis"`
	Line      `mapstructure:"line"`
}

// App struct
type App struct {
	Debug     bool   `mapstructure:"debug"`
	Env       string `mapstructure:"env"`
	Port      string `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// Database struct - driver is one of sqlite, postgres or memory
type Database struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"database"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

// LLM struct
type LLM struct {
	Mode          string        `mapstructure:"mode"`
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature"`
	HistoryWindow int           `mapstructure:"history_window"`
}

// Docs struct
type Docs struct {
	Path string `mapstructure:"path"`
}

// RateLimit struct
type RateLimit struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

// Redis struct - limiter state lives in memory when Addr is empty
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Line struct
type Line struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
}

// IsDevelopment reports whether error details may be shown to clients
func (a App) IsDevelopment() bool {
	return strings.EqualFold(a.Env, "development")
}

// LineEnabled reports whether both LINE credentials are configured
func (l Line) LineEnabled() bool {
	return l.ChannelSecret != "" && l.ChannelToken != ""
}

var config Config

// InitViper func - Loads the configuration into the package config and watches the file for changes
func InitViper(path, env string) error {
	v, cfg, err := load(path, env)
	if err != nil {
		return err
	}
	config = *cfg

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			logrus.Infof("Config file has changed: %s (restart to apply)", e.Name)
		})
		v.WatchConfig()
	}
	return nil
}

// GetViper func
func GetViper() *Config {
	return &config
}

// Load func - Reads configuration without touching the package config
func Load(path, env string) (*Config, error) {
	_, cfg, err := load(path, env)
	return cfg, err
}

func load(path, env string) (*viper.Viper, *Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, err
		}
		logrus.Warnf("No config file in %s, using defaults and environment", path)
	}

	if env != "" {
		envFile := filepath.Join(path, "config."+env+".yaml")
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			if err := v.MergeInConfig(); err != nil {
				return nil, nil, err
			}
		}
		// -env names the environment unless a file or APP_ENV already does
		if !v.InConfig("app.env") && os.Getenv("APP_ENV") == "" {
			v.Set("app.env", env)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}
	return v, &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", "3001")
	v.SetDefault("app.static_dir", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/chat.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "support_desk")
	v.SetDefault("database.sslmode", false)

	v.SetDefault("llm.mode", "auto")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.history_window", 10)

	v.SetDefault("docs.path", "./docs.json")

	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.max", 100)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("line.channel_secret", "")
	v.SetDefault("line.channel_token", "")
}
