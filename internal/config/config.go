// Package config holds the defaults shared by the hfsm commands.
// Values come from an optional YAML file, then HFSM_* environment variables;
// command-line flags are applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk and environment configuration.
type Config struct {
	Graph      string `yaml:"graph"`
	EntryPoint string `yaml:"entry_point"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	HTTP       HTTP   `yaml:"http"`
	Redis      Redis  `yaml:"redis"`
}

// HTTP configures the serve command.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Redis configures the shared state store. An empty Addr means in-memory.
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Graph:      "graph.yaml",
		EntryPoint: "default",
		LogLevel:   "info",
		LogFormat:  "text",
		HTTP:       HTTP{Addr: ":8080"},
		Redis:      Redis{Prefix: "hfsm:machine:"},
	}
}

// Load reads path over the defaults and applies the environment.
// A missing file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode strictly unmarshals YAML into cfg, keeping fields it does not set.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from HFSM_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HFSM_GRAPH":          &c.Graph,
		"HFSM_ENTRY_POINT":    &c.EntryPoint,
		"HFSM_LOG_LEVEL":      &c.LogLevel,
		"HFSM_LOG_FORMAT":     &c.LogFormat,
		"HFSM_HTTP_ADDR":      &c.HTTP.Addr,
		"HFSM_REDIS_ADDR":     &c.Redis.Addr,
		"HFSM_REDIS_PASSWORD": &c.Redis.Password,
		"HFSM_REDIS_PREFIX":   &c.Redis.Prefix,
	}
	for key, field := range str {
		if v, ok := lookup(key); ok {
			*field = v
		}
	}

	if v, ok := lookup("HFSM_REDIS_DB"); ok {
		if err := yaml.Unmarshal([]byte(v), &c.Redis.DB); err != nil {
			return fmt.Errorf("HFSM_REDIS_DB: %w", err)
		}
	}
	if v, ok := lookup("HFSM_REDIS_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HFSM_REDIS_TTL: %w", err)
		}
		c.Redis.TTL = ttl
	}
	return nil
}
