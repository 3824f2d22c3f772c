// Package config defines all configuration for the market-analytics
// producer. Config is loaded from a YAML file (default: configs/config.yaml)
// with the node identity and connection secrets overridable via NT_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure. Periods and TTLs are stored in the units their field names
// carry (milliseconds or seconds) rather than as time.Duration, since
// the two families mix units; the accessor methods below convert once,
// at the call site.
type Config struct {
	Symbols      []string           `mapstructure:"symbols"`
	ReportMs     int                `mapstructure:"report_period_ms"`
	SlowMs       int                `mapstructure:"slow_period_ms"`
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ReportPeriod is the fast-cycle period as a time.Duration.
func (c *Config) ReportPeriod() time.Duration { return time.Duration(c.ReportMs) * time.Millisecond }

// SlowPeriod is the slow-cycle period as a time.Duration.
func (c *Config) SlowPeriod() time.Duration { return time.Duration(c.SlowMs) * time.Millisecond }

// CoordinationConfig controls multi-node symbol sharding. When Enabled is
// false the process owns every configured symbol directly and none of
// the other fields are consulted.
type CoordinationConfig struct {
	Enabled      bool    `mapstructure:"enable_coordination"`
	NodeID       string  `mapstructure:"node_id"`
	HeartbeatSec float64 `mapstructure:"heartbeat_interval_sec"`
	RebalanceSec float64 `mapstructure:"rebalance_interval_sec"`
	LeaseTTLMs   int     `mapstructure:"lease_ttl_ms"`
	MinHoldMs    int     `mapstructure:"min_hold_ms"`
	HRWStickyPct float64 `mapstructure:"hrw_sticky_pct"`
}

// HeartbeatInterval is the membership heartbeat cadence as a time.Duration.
func (c CoordinationConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSec * float64(time.Second))
}

// RebalanceInterval is the HRW rebalance cadence as a time.Duration.
func (c CoordinationConfig) RebalanceInterval() time.Duration {
	return time.Duration(c.RebalanceSec * float64(time.Second))
}

// LeaseTTL is the writer lease TTL as a time.Duration.
func (c CoordinationConfig) LeaseTTL() time.Duration {
	return time.Duration(c.LeaseTTLMs) * time.Millisecond
}

// MinHold is the minimum symbol-hold time after acquisition.
func (c CoordinationConfig) MinHold() time.Duration {
	return time.Duration(c.MinHoldMs) * time.Millisecond
}

// RedisConfig points at the shared KV store used for membership, leases,
// and report publication.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	Namespace string `mapstructure:"namespace"`
}

// FeedConfig points at the upstream market-data client. The client itself
// is an external collaborator; these are just its dial targets.
type FeedConfig struct {
	WSURL   string `mapstructure:"ws_url"`
	RESTURL string `mapstructure:"rest_url"`
}

// TelemetryConfig controls the Prometheus/health HTTP surface.
type TelemetryConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Node identity and store connection use env vars:
// NT_COORDINATION_NODE_ID, NT_REDIS_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("NT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("NT_REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if nodeID := os.Getenv("NT_COORDINATION_NODE_ID"); nodeID != "" {
		cfg.Coordination.NodeID = nodeID
	}
	if cfg.Coordination.NodeID == "" {
		cfg.Coordination.NodeID = defaultNodeID()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("report_period_ms", 250)
	v.SetDefault("slow_period_ms", 2000)
	v.SetDefault("coordination.enable_coordination", false)
	v.SetDefault("coordination.heartbeat_interval_sec", 1.0)
	v.SetDefault("coordination.rebalance_interval_sec", 2.5)
	v.SetDefault("coordination.lease_ttl_ms", 2000)
	v.SetDefault("coordination.min_hold_ms", 2000)
	v.SetDefault("coordination.hrw_sticky_pct", 0.02)
	v.SetDefault("redis.namespace", "")
	v.SetDefault("telemetry.listen_addr", ":9090")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// defaultNodeID builds "<host>-<pid>" with a short uuid suffix to
// disambiguate container restarts that reuse both hostname and PID.
func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// Validate checks all required fields and value ranges. An invalid
// configuration refuses startup.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: at least one symbol is required")
	}
	if c.ReportMs < 100 || c.ReportMs > 1000 {
		return fmt.Errorf("report_period_ms must be 100-1000, got %d", c.ReportMs)
	}
	if c.SlowMs < 1000 {
		return fmt.Errorf("slow_period_ms must be >= 1000, got %d", c.SlowMs)
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Coordination.Enabled {
		if c.Coordination.NodeID == "" {
			return fmt.Errorf("coordination.node_id is required when enable_coordination is true")
		}
		if c.Coordination.LeaseTTLMs < 2*c.ReportMs {
			return fmt.Errorf("coordination.lease_ttl_ms must be >= 2x report_period_ms, got %d < 2x%d", c.Coordination.LeaseTTLMs, c.ReportMs)
		}
		if c.Coordination.HRWStickyPct < 0 || c.Coordination.HRWStickyPct > 0.1 {
			return fmt.Errorf("coordination.hrw_sticky_pct must be in [0, 0.1], got %f", c.Coordination.HRWStickyPct)
		}
	}
	return nil
}
