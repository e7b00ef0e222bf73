package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvAppEnv       = "APP_ENV"
	EnvMetricsSock  = "AI_METRICS_SOCK"
	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvLogLevel     = "LOG_LEVEL"

	defaultEnv         = "development"
	defaultMetricsSock = "/var/run/apminsight/metrics.sock"
	defaultLogLevel    = "info"
)

// Config is the process level setup shared by every request profiler and
// the publisher.
type Config struct {
	// Env is merged into every item as the "env" tag.
	Env          string   `yaml:"env"`
	MetricsSock  string   `yaml:"metrics_sock"`
	MetricPrefix string   `yaml:"metric_prefix"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	RedisAddr    string   `yaml:"redis_addr"`
	LogLevel     string   `yaml:"log_level"`
	DumpMode     string   `yaml:"dump_mode"`
}

func Default() Config {
	return Config{
		Env:         defaultEnv,
		MetricsSock: defaultMetricsSock,
		LogLevel:    defaultLogLevel,
		DumpMode:    "medium",
	}
}

// FromEnv returns the defaults overridden by environment variables.
func FromEnv() Config {
	c := Default()
	c.applyEnv()
	return c
}

// LoadFile reads a YAML file on top of the defaults; environment variables
// still win over the file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyEnv()
	return c, nil
}

func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAppEnv); v != "" {
		c.Env = v
	}
	if v := os.Getenv(EnvMetricsSock); v != "" {
		c.MetricsSock = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func splitList(s string) []string {
	var ret []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
