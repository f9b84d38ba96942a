// Package config loads the cluster's on-disk configuration. Grounded on the
// teacher's top-level Config struct in main.go, moved to YAML (via
// gopkg.in/yaml.v3, already a teacher dependency) because the shard/voice
// split needs nested sections the flat JSON blob didn't have.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a cluster of shards.
type Config struct {
	Token      string         `yaml:"token"`
	ShardCount int            `yaml:"shard_count"`
	Intents    uint32         `yaml:"intents"`
	Compress   bool           `yaml:"compress"`
	GatewayURL string         `yaml:"gateway_url"`
	Redis      RedisConfig    `yaml:"redis"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Voice      VoiceConfig    `yaml:"voice"`
	Metrics    MetricsConfig  `yaml:"metrics"`
	Backoff    BackoffConfig  `yaml:"backoff"`
}

// RedisConfig configures the L2 tier of the cache bridge.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Network  string `yaml:"network"`
}

// PostgresConfig configures the durable shard session-resume ledger.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// VoiceConfig bounds how long a voice connection may wait for the two-phase
// handshake described for establishing a voice connection to complete.
type VoiceConfig struct {
	SetupDeadline    time.Duration `yaml:"setup_deadline"`
	IPDiscoveryRetry int           `yaml:"ip_discovery_retry"`
}

// MetricsConfig configures the prometheus exposition endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// BackoffConfig bounds the reconnect back-off policy.
type BackoffConfig struct {
	MaxInterval time.Duration `yaml:"max_interval"`
}

// DefaultVoiceSetupDeadline is used when Voice.SetupDeadline is zero.
const DefaultVoiceSetupDeadline = 10 * time.Second

// DefaultBackoffMaxInterval matches the 60s cap from the reconnect policy.
const DefaultBackoffMaxInterval = 60 * time.Second

// Load reads and parses a YAML config file, filling in defaults the same
// way the teacher's NewDatabase fills in a default sslmode.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	if cfg.ShardCount <= 0 {
		cfg.ShardCount = 1
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"
	}
	if cfg.Voice.SetupDeadline <= 0 {
		cfg.Voice.SetupDeadline = DefaultVoiceSetupDeadline
	}
	if cfg.Voice.IPDiscoveryRetry <= 0 {
		cfg.Voice.IPDiscoveryRetry = 3
	}
	if cfg.Backoff.MaxInterval <= 0 {
		cfg.Backoff.MaxInterval = DefaultBackoffMaxInterval
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	return &cfg, nil
}
