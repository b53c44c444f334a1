// Package config loads runtime settings from defaults, an optional config
// file and INKPOST_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "INKPOST"

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Uploads UploadsConfig `mapstructure:"uploads"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Rate    RateConfig    `mapstructure:"rate"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	CORSOrigin        string        `mapstructure:"cors_origin"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RateConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with every key defaulted and environment
// lookups enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.cors_origin", "http://localhost:3000")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.driver", DriverBadger)
	v.SetDefault("store.path", "data/inkpost")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("auth.jwt_secret", "dev-jwt-secret")
	v.SetDefault("rate.auth_per_minute", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when it is non-empty and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverBadger, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverBadger, DriverSQLite, c.Store.Driver))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Rate.AuthPerMinute < 0 {
		errs = append(errs, errors.New("rate.auth_per_minute must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
