// Package config loads settings from defaults, an optional YAML file, a
// .env file, SLEEPTRACKER_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/sleeptracker/internal/llm"
	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. SLEEPTRACKER_LOG_LEVEL.
const EnvPrefix = "SLEEPTRACKER"

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Log     LogConfig     `mapstructure:"log"`
	Watch   WatchConfig   `mapstructure:"watch"`
	LLM     LLMConfig     `mapstructure:"llm"`
	History HistoryConfig `mapstructure:"history"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// WatchConfig controls reacting to writes made by other processes.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	// Limit caps the nights printed by `nights`; 0 means all.
	Limit int `mapstructure:"limit"`
}

// Options tells Load where to look. Zero values use the defaults.
type Options struct {
	// ConfigFile overrides SLEEPTRACKER_CONFIG and the XDG location.
	ConfigFile string
	// EnvFiles are loaded with godotenv; missing files are skipped.
	EnvFiles []string
	// Flags, when set, are bound to their keys (see FlagKeys).
	Flags *pflag.FlagSet
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"db":        "db.path",
	"log-level": "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", defaultDBPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", logging.DefaultLogPath())
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", store.DefaultWatchDebounce)
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", llm.DefaultTimeout)
	v.SetDefault("history.limit", 0)
}

// defaultDBPath is empty when no home directory can be found; Validate
// reports it.
func defaultDBPath() string {
	p, err := store.DefaultDBPath()
	if err != nil {
		return ""
	}
	return p
}

// Load builds the effective configuration.
func Load(opts Options) (Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = DefaultEnvFiles()
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	explicit := opts.ConfigFile
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values no command could work with.
func (c Config) Validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path must not be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}
	if c.History.Limit < 0 {
		return errors.New("history.limit must not be negative")
	}
	return nil
}

// LLMProvider converts the llm section into a resolved llm.Config.
func (c Config) LLMProvider() llm.Config {
	return llm.Config{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
		Timeout:  c.LLM.Timeout,
	}.Resolve()
}

// Dir is $XDG_CONFIG_HOME/sleeptracker, or ~/.config/sleeptracker.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sleeptracker")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "sleeptracker")
}

// DefaultEnvFiles are ./.env and the .env next to the config file.
func DefaultEnvFiles() []string {
	return []string{".env", filepath.Join(Dir(), ".env")}
}
