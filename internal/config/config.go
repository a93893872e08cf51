// Package config loads uavpath settings from defaults, an optional YAML
// file and the environment, in that order of precedence (env wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"uavpath/internal/course"
)

// Config is the full runtime configuration shared by the CLI and the API.
type Config struct {
	UAV       course.Params `yaml:"uav"`
	Workers   int           `yaml:"workers"`
	Numbering string        `yaml:"numbering"` // visited | full
	HTTP      HTTP          `yaml:"http"`
	Store     Store         `yaml:"store"`
	RedisURL  string        `yaml:"redisUrl"`
}

type HTTP struct {
	Addr      string  `yaml:"addr"`
	RateRPS   float64 `yaml:"rateRps"` // 0 disables limiting
	RateBurst int     `yaml:"rateBurst"`
}

type Store struct {
	DatabaseURL string `yaml:"databaseUrl"` // empty selects the in-memory store
	Migrate     bool   `yaml:"migrate"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		UAV:       course.DefaultParams(),
		Numbering: "visited",
		HTTP:      HTTP{Addr: ":8080", RateRPS: 50, RateBurst: 100},
		Store:     Store{Migrate: true},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty)
// and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"UAV_SPEED", &c.UAV.Speed},
		{"UAV_WAIT_TIME", &c.UAV.WaitTime},
		{"RATE_RPS", &c.HTTP.RateRPS},
	}
	for _, f := range floats {
		if v := strings.TrimSpace(getenv(f.key)); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("config: %s=%q: %w", f.key, v, err)
			}
			*f.dst = n
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"UAV_WORKERS", &c.Workers},
		{"RATE_BURST", &c.HTTP.RateBurst},
	}
	for _, f := range ints {
		if v := strings.TrimSpace(getenv(f.key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s=%q: %w", f.key, v, err)
			}
			*f.dst = n
		}
	}
	if v := getenv("UAV_NUMBERING"); v != "" {
		c.Numbering = v
	}
	if v := getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if getenv("DB_MIGRATE") == "false" {
		c.Store.Migrate = false
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	return nil
}
