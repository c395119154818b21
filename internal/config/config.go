// Package config loads service configuration from an optional YAML file with
// environment variable overrides. Environment always wins, so deployments can
// patch a single knob without editing the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`

	Monitor struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"monitor"`

	Routing struct {
		SpeedKmh       float64 `yaml:"speed_kmh"`
		BaseServiceMin float64 `yaml:"base_service_min"`
		PerPercentMin  float64 `yaml:"per_percent_min"`
	} `yaml:"routing"`

	Solver struct {
		URL        string        `yaml:"url"`
		Timeout    time.Duration `yaml:"timeout"`
		RatePerSec float64       `yaml:"rate_per_sec"`
	} `yaml:"solver"`

	Directions struct {
		URL        string        `yaml:"url"`
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout"`
		RatePerSec float64       `yaml:"rate_per_sec"`
	} `yaml:"directions"`

	Notify struct {
		MaxAttempts int `yaml:"max_attempts"`
	} `yaml:"notify"`
}

// Default returns the configuration the service ships with.
func Default() Config {
	var c Config
	c.ListenAddr = ":8080"
	c.Monitor.Interval = 15 * time.Minute
	c.Routing.SpeedKmh = 10
	c.Routing.BaseServiceMin = 5
	c.Routing.PerPercentMin = 0.02
	c.Solver.Timeout = 10 * time.Second
	c.Solver.RatePerSec = 5
	c.Directions.Timeout = 10 * time.Second
	c.Directions.RatePerSec = 5
	c.Notify.MaxAttempts = 10
	return c
}

// Load builds the effective configuration: defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment overrides.
func Load() (Config, error) {
	c := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	envStr("LISTEN_ADDR", &c.ListenAddr)
	envStr("DATABASE_URL", &c.DatabaseURL)
	envStr("REDIS_URL", &c.RedisURL)
	envDur("MONITOR_INTERVAL", &c.Monitor.Interval)
	envFloat("ROUTE_SPEED_KMH", &c.Routing.SpeedKmh)
	envFloat("ROUTE_BASE_SERVICE_MIN", &c.Routing.BaseServiceMin)
	envFloat("ROUTE_PER_PERCENT_MIN", &c.Routing.PerPercentMin)
	envStr("SOLVER_URL", &c.Solver.URL)
	envDur("SOLVER_TIMEOUT", &c.Solver.Timeout)
	envFloat("SOLVER_RATE_PER_SEC", &c.Solver.RatePerSec)
	envStr("DIRECTIONS_URL", &c.Directions.URL)
	envStr("DIRECTIONS_API_KEY", &c.Directions.APIKey)
	envDur("DIRECTIONS_TIMEOUT", &c.Directions.Timeout)
	envFloat("DIRECTIONS_RATE_PER_SEC", &c.Directions.RatePerSec)
	envInt("NOTIFY_MAX_ATTEMPTS", &c.Notify.MaxAttempts)
}

func (c *Config) validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: monitor interval must be positive, got %v", c.Monitor.Interval)
	}
	if c.Routing.SpeedKmh <= 0 {
		return fmt.Errorf("config: routing speed must be positive, got %v", c.Routing.SpeedKmh)
	}
	return nil
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDur(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
