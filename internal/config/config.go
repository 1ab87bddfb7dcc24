// Package config loads the server configuration of the analytics service.
//
// Precedence, lowest first: built-in defaults, YAML file, .env file,
// environment variables (ANALYTICS_*), command-line flags (applied by main).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP       HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	LogLevel   string         `yaml:"log_level" env:"LOG_LEVEL"`
	Dev        bool           `yaml:"dev" env:"DEV"`
	Stream     StreamConfig   `yaml:"stream" envPrefix:"STREAM_"`
	Recorder   RecorderConfig `yaml:"recorder" envPrefix:"RECORDER_"`
	PTZ        PTZConfig      `yaml:"ptz" envPrefix:"PTZ_"`
	ConfigFile string         `yaml:"config_file" env:"CONFIG_FILE"` // analytics configuration JSON
}

type HTTPConfig struct {
	Host           string   `yaml:"host" env:"HOST"`
	Port           int      `yaml:"port" env:"PORT"`
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
}

type StreamConfig struct {
	Driver       string        `yaml:"driver" env:"DRIVER"` // "redis" | "nats"
	RedisAddr    string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB      int           `yaml:"redis_db" env:"REDIS_DB"`
	RedisStream  string        `yaml:"redis_stream" env:"REDIS_STREAM"`
	NATSURL      string        `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject  string        `yaml:"nats_subject" env:"NATS_SUBJECT"`
	BlockTimeout time.Duration `yaml:"block_timeout" env:"BLOCK_TIMEOUT"`
}

type RecorderConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type PTZConfig struct {
	Driver            string        `yaml:"driver" env:"DRIVER"` // "http" | "onvif"
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ONVIFUser         string        `yaml:"onvif_user" env:"ONVIF_USER"`
	ONVIFPassword     string        `yaml:"onvif_password" env:"ONVIF_PASSWORD"`
	ONVIFProfileToken string        `yaml:"onvif_profile_token" env:"ONVIF_PROFILE_TOKEN"`
	ONVIFMaxZoom      float64       `yaml:"onvif_max_zoom" env:"ONVIF_MAX_ZOOM"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Host: "127.0.0.1", Port: 5040, TrustedProxies: []string{"127.0.0.1"}},
		LogLevel: "debug",
		Stream: StreamConfig{
			Driver:       "redis",
			RedisAddr:    "localhost:6379",
			RedisStream:  "detection",
			NATSURL:      "nats://127.0.0.1:4222",
			NATSSubject:  "detection",
			BlockTimeout: 5 * time.Second,
		},
		Recorder: RecorderConfig{Timeout: 5 * time.Second},
		PTZ:      PTZConfig{Driver: "http", Timeout: 5 * time.Second, ONVIFMaxZoom: 10},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "ANALYTICS_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	switch c.Stream.Driver {
	case "redis", "nats":
	default:
		errs = append(errs, fmt.Errorf("stream.driver %q: want redis or nats", c.Stream.Driver))
	}
	switch c.PTZ.Driver {
	case "http", "onvif":
	default:
		errs = append(errs, fmt.Errorf("ptz.driver %q: want http or onvif", c.PTZ.Driver))
	}
	if c.Stream.BlockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stream.block_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}
