// Package config loads the session settings: defaults, then an optional YAML file, then the environment
// (including a .env file when present). Environment always wins.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robotomize/kawase/label"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	ProviderFrankfurter = "frankfurter"
	ProviderECB         = "ecb"
	ProviderCAE         = "cae"

	DigestSQLite = "sqlite"
	DigestRedis  = "redis"
)

const envPrefix = "KAWASE_"

var ErrConfigNotValid = errors.New("config is not valid")

type Provider struct {
	Name       string        `yaml:"name"`
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryNum   uint64        `yaml:"retry_num"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type Session struct {
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
	StartingCurrency string        `yaml:"starting_currency"`
	StartingAmount   string        `yaml:"starting_amount"`
}

type Storage struct {
	SQLitePath    string `yaml:"sqlite_path"`
	DigestBackend string `yaml:"digest_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Provider Provider `yaml:"provider"`
	Session  Session  `yaml:"session"`
	Storage  Storage  `yaml:"storage"`
	Logging  Logging  `yaml:"logging"`
}

// Default returns the settings used when nothing else is given
func Default() Config {
	return Config{
		Provider: Provider{
			Name:       ProviderFrankfurter,
			Timeout:    10 * time.Second,
			RetryNum:   1,
			RetryDelay: 5 * time.Second,
		},
		Session: Session{
			RefreshInterval:  5 * time.Second,
			StartingCurrency: label.EUR.String(),
			StartingAmount:   "1000",
		},
		Storage: Storage{
			SQLitePath:    "kawase.db",
			DigestBackend: DigestSQLite,
			RedisAddr:     "localhost:6379",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the config from the defaults, the YAML file at path (skipped when path is empty) and the
// environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("yaml unmarshal: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := overrideWithEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// StartingCurrency returns the parsed starting currency
func (c Config) StartingCurrency() (label.Symbol, error) {
	return label.Parse(c.Session.StartingCurrency)
}

// StartingAmount returns the parsed starting amount
func (c Config) StartingAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(c.Session.StartingAmount))
}

func (c Config) Validate() error {
	switch c.Provider.Name {
	case ProviderFrankfurter, ProviderECB, ProviderCAE:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfigNotValid, c.Provider.Name)
	}

	switch c.Storage.DigestBackend {
	case DigestSQLite, DigestRedis:
	default:
		return fmt.Errorf("%w: unknown digest backend %q", ErrConfigNotValid, c.Storage.DigestBackend)
	}

	if c.Session.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", ErrConfigNotValid)
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", ErrConfigNotValid)
	}

	if _, err := c.StartingCurrency(); err != nil {
		return fmt.Errorf("%w: starting currency: %v", ErrConfigNotValid, err)
	}

	amount, err := c.StartingAmount()
	if err != nil {
		return fmt.Errorf("%w: starting amount: %v", ErrConfigNotValid, err)
	}

	if amount.IsNegative() {
		return fmt.Errorf("%w: starting amount must not be negative", ErrConfigNotValid)
	}

	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite path is empty", ErrConfigNotValid)
	}

	return nil
}

type lookupFunc func(key string) (string, bool)

func overrideWithEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return nil
		}

		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrConfigNotValid, envPrefix, key, err)
		}
		*dst = d

		return nil
	}

	str("PROVIDER", &cfg.Provider.Name)
	str("PROVIDER_URL", &cfg.Provider.URL)
	str("STARTING_CURRENCY", &cfg.Session.StartingCurrency)
	str("STARTING_AMOUNT", &cfg.Session.StartingAmount)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("DIGEST_BACKEND", &cfg.Storage.DigestBackend)
	str("REDIS_ADDR", &cfg.Storage.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Storage.RedisPassword)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	for key, dst := range map[string]*time.Duration{
		"PROVIDER_TIMEOUT": &cfg.Provider.Timeout,
		"RETRY_DELAY":      &cfg.Provider.RetryDelay,
		"REFRESH_INTERVAL": &cfg.Session.RefreshInterval,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(envPrefix + "RETRY_NUM"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sRETRY_NUM: %v", ErrConfigNotValid, envPrefix, err)
		}
		cfg.Provider.RetryNum = n
	}

	if v, ok := lookup(envPrefix + "REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB: %v", ErrConfigNotValid, envPrefix, err)
		}
		cfg.Storage.RedisDB = n
	}

	return nil
}
