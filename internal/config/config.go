package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultFeedURL = "https://data.winnipeg.ca/resource/yg42-q284.json"

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL      string
	FeedTimeout  time.Duration
	PollInterval time.Duration
	RetentionCap int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka sink for incident updates.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaIncidentsTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	feedTimeout, err := parseDurationEnv("FEED_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseDurationEnv("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	retentionCap, err := parseIntEnv("RETENTION_CAP", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FeedURL:      envOrDefault("FEED_URL", defaultFeedURL),
		FeedTimeout:  feedTimeout,
		PollInterval: pollInterval,
		RetentionCap: retentionCap,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:        os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:        parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaIncidentsTopic: envOrDefault("KAFKA_INCIDENTS_TOPIC", "incident-updates"),
	}

	if _, err := url.ParseRequestURI(cfg.FeedURL); err != nil {
		return nil, fmt.Errorf("invalid FEED_URL: %w", err)
	}
	if cfg.PollInterval < time.Second {
		return nil, errors.New("POLL_INTERVAL must be at least 1s")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaIncidentsTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_INCIDENTS_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
