package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pantry/internal/inventory"
	"pantry/internal/storage"
)

type Config struct {
	LogLevel         string        `mapstructure:"log_level"`
	ExpiryWindowDays int           `mapstructure:"expiry_window_days"`
	Storage          StorageConfig `mapstructure:"storage"`
	Voice            VoiceConfig   `mapstructure:"voice"`
	OpenAI           OpenAIConfig  `mapstructure:"openai"`
	Proxy            string        `mapstructure:"proxy"`
	Socket           string        `mapstructure:"socket"`
	Bus              BusConfig     `mapstructure:"bus"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type VoiceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AutoStart     bool          `mapstructure:"auto_start"`
	Engine        string        `mapstructure:"engine"`
	ModelPath     string        `mapstructure:"model_path"`
	Language      string        `mapstructure:"language"`
	Rate          int           `mapstructure:"rate"`
	ListenTimeout time.Duration `mapstructure:"listen_timeout"`
	PhraseLimit   time.Duration `mapstructure:"phrase_limit"`
	CuePath       string        `mapstructure:"cue_path"`
	Duck          bool          `mapstructure:"duck"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type BusConfig struct {
	URL   string `mapstructure:"url"`
	Shard string `mapstructure:"shard"`
}

const (
	EngineWhisper = "whisper"
	EngineOpenAI  = "openai"
)

var defaults = map[string]any{
	"log_level":              "info",
	"expiry_window_days":     inventory.DefaultExpiryWindow,
	"storage.backend":        string(storage.BackendFile),
	"storage.path":           "",
	"storage.redis.addr":     "localhost:6379",
	"storage.redis.password": "",
	"storage.redis.key":      storage.DefaultRedisKey,
	"storage.redis.db":       0,
	"voice.enabled":          true,
	"voice.auto_start":       false,
	"voice.engine":           EngineWhisper,
	"voice.model_path":       "models/ggml-base.en.bin",
	"voice.language":         "en",
	"voice.rate":             150,
	"voice.listen_timeout":   5 * time.Second,
	"voice.phrase_limit":     5 * time.Second,
	"voice.cue_path":         "",
	"voice.duck":             false,
	"proxy":                  "",
	"socket":                 "",
	"bus.url":                "ws://localhost:8092/ws",
	"bus.shard":              "PANTRY",
}

// flagKeys maps command line flag names to config keys. Only flags present
// in the parsed set are bound.
var flagKeys = map[string]string{
	"log":      "log_level",
	"days":     "expiry_window_days",
	"storage":  "storage.backend",
	"data":     "storage.path",
	"redis":    "storage.redis.addr",
	"voice":    "voice.enabled",
	"listen":   "voice.auto_start",
	"engine":   "voice.engine",
	"model":    "voice.model_path",
	"language": "voice.language",
	"cue":      "voice.cue_path",
	"duck":     "voice.duck",
	"proxy":    "proxy",
	"socket":   "socket",
	"url":      "bus.url",
	"shard":    "bus.shard",
}

// Load merges, from lowest to highest priority: defaults, the config file,
// PANTRY_* environment variables and flags that were set on fs. file may be
// empty, in which case pantry.yaml is looked up in the working directory and
// the user config dir.
func Load(fs *cli.FlagSet, file string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pantry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pantry"))
		}
	}

	v.SetEnvPrefix("PANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai.api_key", "PANTRY_OPENAI_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch storage.Backend(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendRedis:
	default:
		return fmt.Errorf("config: storage.backend %q is not one of file, sqlite, redis", c.Storage.Backend)
	}
	switch c.Voice.Engine {
	case EngineWhisper, EngineOpenAI:
	default:
		return fmt.Errorf("config: voice.engine %q is not one of whisper, openai", c.Voice.Engine)
	}
	if c.ExpiryWindowDays < 0 {
		return fmt.Errorf("config: expiry_window_days must not be negative, got %d", c.ExpiryWindowDays)
	}
	if c.Voice.ListenTimeout <= 0 || c.Voice.PhraseLimit <= 0 {
		return errors.New("config: voice.listen_timeout and voice.phrase_limit must be positive")
	}
	return nil
}

// StorageOptions fills in the per backend default path.
func (c *Config) StorageOptions() storage.Options {
	opt := storage.Options{
		Backend: storage.Backend(c.Storage.Backend),
		Path:    c.Storage.Path,
		Redis: storage.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Key:      c.Storage.Redis.Key,
		},
	}
	if opt.Path == "" {
		switch opt.Backend {
		case storage.BackendSQLite:
			opt.Path = storage.DefaultSQLitePath
		case storage.BackendFile:
			opt.Path = storage.DefaultPath
		}
	}
	return opt
}
