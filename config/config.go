package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given; a missing file there is not an error.
const DefaultPath = "conf/leadtrack.yaml"

type Config struct {
	Addr     string   `yaml:"addr"`
	Log      Log      `yaml:"log"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Provider Provider `yaml:"provider"`
	SendRate SendRate `yaml:"send_rate"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type Database struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

// Redis enables the read-through cache when Addr is set.
type Redis struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type Provider struct {
	Name                  string `yaml:"name"` // twilio | http
	AccountSID            string `yaml:"account_sid"`
	AuthToken             string `yaml:"auth_token"`
	FromNumber            string `yaml:"from_number"`
	URL                   string `yaml:"url"` // http provider only
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

type SendRate struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Addr: ":5000",
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Database: Database{
			Driver: "sqlite",
			DSN:    "leads.db",
		},
		Redis: Redis{
			CacheTTLSeconds: 7 * 24 * 60 * 60,
		},
		Provider: Provider{
			Name:                  "twilio",
			TimeoutSeconds:        15,
			ConnectTimeoutSeconds: 5,
		},
		SendRate: SendRate{
			PerSecond: 5,
			Burst:     10,
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path means DefaultPath, which may be absent.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	applyEnv(&cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := map[string]*string{
		"TWILIO_ACCOUNT_SID":   &cfg.Provider.AccountSID,
		"TWILIO_AUTH_TOKEN":    &cfg.Provider.AuthToken,
		"TWILIO_PHONE_NUMBER":  &cfg.Provider.FromNumber,
		"LEADTRACK_ADDR":       &cfg.Addr,
		"LEADTRACK_DB_DRIVER":  &cfg.Database.Driver,
		"LEADTRACK_DB_DSN":     &cfg.Database.DSN,
		"LEADTRACK_REDIS_ADDR": &cfg.Redis.Addr,
		"LEADTRACK_LOG_LEVEL":  &cfg.Log.Level,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
}

// Validate checks structural values. Provider credentials may be empty; the first send reports it.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr is required")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		problems = append(problems, "database.dsn is required")
	}
	if c.Redis.CacheTTLSeconds < 0 {
		problems = append(problems, "redis.cache_ttl_seconds must not be negative")
	}
	switch c.Provider.Name {
	case "twilio":
	case "http":
		if strings.TrimSpace(c.Provider.URL) == "" {
			problems = append(problems, "provider.url is required for the http provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("provider.name %q must be twilio or http", c.Provider.Name))
	}
	if c.Provider.TimeoutSeconds < 0 || c.Provider.ConnectTimeoutSeconds < 0 {
		problems = append(problems, "provider timeouts must not be negative")
	}
	if c.SendRate.PerSecond < 0 || c.SendRate.Burst < 0 {
		problems = append(problems, "send_rate values must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p Provider) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutSeconds) * time.Second
}
