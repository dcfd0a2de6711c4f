package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from an optional YAML file with
// environment variable overrides on top.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Outbox struct {
		PollIntervalMs int `yaml:"poll_interval_ms"`
		BatchSize      int `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", defaultString(config.Server.Port, "8080"))
	config.NATS.URL = getEnv("NATS_URL", defaultString(config.NATS.URL, "nats://localhost:4222"))
	config.NATS.Stream = defaultString(config.NATS.Stream, "DRAFT_CHANGES")
	config.NATS.SubjectPrefix = defaultString(config.NATS.SubjectPrefix, "draft.changes")
	config.Auth.Secret = getEnv("AUTH_SECRET", config.Auth.Secret)
	if config.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required (AUTH_SECRET or config file)")
	}
	config.Outbox.PollIntervalMs = getEnvAsInt("OUTBOX_POLL_INTERVAL_MS", config.Outbox.PollIntervalMs)
	config.Outbox.BatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", config.Outbox.BatchSize)
	if config.Outbox.PollIntervalMs <= 0 {
		config.Outbox.PollIntervalMs = 500
	}
	if config.Outbox.BatchSize <= 0 {
		config.Outbox.BatchSize = 100
	}

	return &config, nil
}

func (c *Config) outboxPollInterval() time.Duration {
	return time.Duration(c.Outbox.PollIntervalMs) * time.Millisecond
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
