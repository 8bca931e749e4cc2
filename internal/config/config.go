package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Breaker   BreakerConfig   `mapstructure:"breaker" yaml:"breaker"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Gateway   GatewayConfig   `mapstructure:"gateway" yaml:"gateway"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Currency  string          `mapstructure:"currency" yaml:"currency"`
}

type APIConfig struct {
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests" yaml:"max_requests"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests" yaml:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio" yaml:"failure_ratio"`
}

type AuthConfig struct {
	Store     string        `mapstructure:"store" yaml:"store"`
	TokenFile string        `mapstructure:"token_file" yaml:"token_file"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisKey  string        `mapstructure:"redis_key" yaml:"redis_key"`
}

type GatewayConfig struct {
	Key          string `mapstructure:"key" yaml:"key"`
	ScriptURL    string `mapstructure:"script_url" yaml:"script_url"`
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	StoreName    string `mapstructure:"store_name" yaml:"store_name"`
	ThemeColor   string `mapstructure:"theme_color" yaml:"theme_color"`
	PrefillEmail string `mapstructure:"prefill_email" yaml:"prefill_email"`
}

type ReconcileConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

const (
	StoreFile  = "file"
	StoreRedis = "redis"

	envPrefix = "GYMCART"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads defaults, then the YAML file at path (or the default location
// when path is empty and the file exists), then GYMCART_* environment
// variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if p := DefaultPath(); fileExists(p) {
			path = p
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	}
	switch c.Auth.Store {
	case StoreFile:
		if c.Auth.TokenFile == "" {
			return fmt.Errorf("%w: auth.token_file is empty", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.Auth.RedisAddr == "" {
			return fmt.Errorf("%w: auth.redis_addr is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: auth.store must be %q or %q, got %q", ErrInvalidConfig, StoreFile, StoreRedis, c.Auth.Store)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("%w: breaker.failure_ratio must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Dir is the per-user directory holding the config file and token.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gymcart"
	}
	return filepath.Join(home, ".gymcart")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
