// Package config loads roundtable configuration.
//
// Priority: defaults → YAML file → environment variables. Environment keys
// are derived from the env struct tags below the prefix, e.g.
// ROUNDTABLE_CHAT_TURNS or ROUNDTABLE_OPENAI_API_KEY:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("roundtable.yaml").
//	    WithValidator(config.Validate).
//	    Load()
//
// Provider keys additionally fall back to the conventional OPENAI_API_KEY,
// ANTHROPIC_API_KEY and GOOGLE_API_KEY variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "ROUNDTABLE"

// ErrNoCredentials is returned by Validate when no provider key is set.
var ErrNoCredentials = errors.New("no API key configured for any provider")

// Config is the complete configuration.
type Config struct {
	Chat      ChatConfig     `yaml:"chat" env:"CHAT"`
	OpenAI    ProviderConfig `yaml:"openai" env:"OPENAI"`
	Anthropic ProviderConfig `yaml:"anthropic" env:"ANTHROPIC"`
	Gemini    ProviderConfig `yaml:"gemini" env:"GEMINI"`
	Store     StoreConfig    `yaml:"store" env:"STORE"`
	Log       LogConfig      `yaml:"log" env:"LOG"`
	Server    ServerConfig   `yaml:"server" env:"SERVER"`
}

// ChatConfig controls conversation runs.
type ChatConfig struct {
	// Default number of turns when a request omits it.
	Turns int `yaml:"turns" env:"TURNS"`
	// Pacing delay between backend calls.
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// Trailing turns shown to each speaker.
	HistoryWindow int `yaml:"history_window" env:"HISTORY_WINDOW"`
	// Generation budget of opening and middle turns.
	MaxTokens int64 `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Generation budget of the conclusion.
	FinalMaxTokens int64 `yaml:"final_max_tokens" env:"FINAL_MAX_TOKENS"`
}

// ProviderConfig configures one model backend.
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// StoreConfig selects the transcript backend.
type StoreConfig struct {
	// Driver: file, sqlite, postgres, redis, memory.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Directory of the file driver.
	Dir string `yaml:"dir" env:"DIR"`
	// DSN of the sqlite and postgres drivers.
	DSN   string      `yaml:"dsn" env:"DSN"`
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Backend: slog or zap.
	Backend string `yaml:"backend" env:"BACKEND"`
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, text (slog) or console (zap).
	Format string `yaml:"format" env:"FORMAT"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			Turns:          10,
			Interval:       time.Second,
			HistoryWindow:  5,
			MaxTokens:      500,
			FinalMaxTokens: 1000,
		},
		OpenAI: ProviderConfig{
			Model:       "gpt-4-turbo-preview",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Anthropic: ProviderConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Gemini: ProviderConfig{
			Model:       "gemini-2.0-flash-exp",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Store: StoreConfig{
			Driver: "file",
			Dir:    "chat",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "roundtable:",
			},
		},
		Log: LogConfig{
			Backend: "slog",
			Level:   "info",
			Format:  "text",
		},
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// HasAnyCredentials reports whether at least one provider key is set.
func (c *Config) HasAnyCredentials() bool {
	return c.OpenAI.APIKey != "" || c.Anthropic.APIKey != "" || c.Gemini.APIKey != ""
}

// Validate rejects configurations that cannot run a conversation.
func Validate(c *Config) error {
	if !c.HasAnyCredentials() {
		return ErrNoCredentials
	}
	return nil
}

// ValidateStore checks the store section.
func ValidateStore(c *Config) error {
	switch strings.ToLower(c.Store.Driver) {
	case "file", "memory", "redis", "sqlite":
		return nil
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
}

// Loader loads configuration (builder style).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a Loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath sets the YAML file. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validator run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	applyKeyFallbacks(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func applyKeyFallbacks(cfg *Config) {
	fallback := func(dst *string, keys ...string) {
		for _, k := range keys {
			if *dst != "" {
				return
			}
			*dst = os.Getenv(k)
		}
	}
	fallback(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	fallback(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fallback(&cfg.Gemini.APIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag
		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	}
	return nil
}
