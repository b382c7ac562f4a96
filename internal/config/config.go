// Package config handles router configuration loading using viper.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/hop/internal/core"
)

// MaxARPTimeout caps timing.arp_timeout. Resolution blocks the whole event
// loop, so every other interface starves for this long per unresolved hop.
const MaxARPTimeout = 2 * time.Second

// DefaultControlSocket is where the daemon listens for control commands.
const DefaultControlSocket = "/var/run/hop.sock"

// Config represents the top-level configuration.
// Maps to the `router:` root key in YAML.
type Config struct {
	RoutingTable string           `mapstructure:"routing_table" yaml:"routing_table"`
	Interfaces   InterfacesConfig `mapstructure:"interfaces" yaml:"interfaces"`
	Timing       TimingConfig     `mapstructure:"timing" yaml:"timing"`
	Capture      CaptureConfig    `mapstructure:"capture" yaml:"capture"`
	Trace        TraceConfig      `mapstructure:"trace" yaml:"trace"`
	Metrics      MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Control      ControlConfig    `mapstructure:"control" yaml:"control"`
	Log          LogConfig        `mapstructure:"log" yaml:"log"`
}

// ─── Interfaces ───

// InterfacesConfig selects which host interfaces become router ports.
type InterfacesConfig struct {
	Match   Pattern  `mapstructure:"match" yaml:"match"` // regex, matched anywhere in the name
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// Pattern is a regular expression decoded from its text form.
type Pattern struct {
	re *regexp.Regexp
}

// MustPattern compiles expr and panics on error.
func MustPattern(expr string) Pattern {
	return Pattern{re: regexp.MustCompile(expr)}
}

func (p *Pattern) UnmarshalText(text []byte) error {
	re, err := regexp.Compile(string(text))
	if err != nil {
		return err
	}
	p.re = re
	return nil
}

func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// ─── Timing ───

// TimingConfig holds the two suspension bounds of the event loop.
type TimingConfig struct {
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	ARPTimeout  time.Duration `mapstructure:"arp_timeout" yaml:"arp_timeout"`
}

// ─── Capture ───

// CaptureConfig controls the raw sockets.
type CaptureConfig struct {
	KernelFilter bool `mapstructure:"kernel_filter" yaml:"kernel_filter"`
}

// ─── Trace ───

// TraceConfig enables the pcap frame trace.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Control ───

// ControlConfig configures the JSON-RPC control socket.
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Socket  string `mapstructure:"socket" yaml:"socket"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string        `mapstructure:"level" yaml:"level"` // trace / debug / info / warn / error
	Pattern string        `mapstructure:"pattern" yaml:"pattern"`
	Time    string        `mapstructure:"time" yaml:"time"`
	File    FileLogConfig `mapstructure:"file" yaml:"file"`
}

// FileLogConfig configures the rotating file appender.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `router: ...`.
type configRoot struct {
	Router Config `mapstructure:"router"`
}

// Load loads configuration from file.
// The YAML file uses `router:` as root key; env vars use ROUTER_ prefix (e.g., ROUTER_TIMING_ARP_TIMEOUT).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Key "router.timing.arp_timeout" → env "ROUTER_TIMING_ARP_TIMEOUT".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&root, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Router

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "router." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Interface selection
	v.SetDefault("router.interfaces.match", "eth")
	v.SetDefault("router.interfaces.exclude", []string{})

	// Timing
	v.SetDefault("router.timing.poll_timeout", "500us")
	v.SetDefault("router.timing.arp_timeout", "50ms")

	// Capture
	v.SetDefault("router.capture.kernel_filter", true)

	// Trace
	v.SetDefault("router.trace.enabled", false)
	v.SetDefault("router.trace.path", "/var/lib/hop/trace.pcap")

	// Metrics defaults
	v.SetDefault("router.metrics.enabled", true)
	v.SetDefault("router.metrics.listen", ":9092")
	v.SetDefault("router.metrics.path", "/metrics")

	// Control socket
	v.SetDefault("router.control.enabled", true)
	v.SetDefault("router.control.socket", DefaultControlSocket)

	// Log defaults
	v.SetDefault("router.log.level", "info")
	v.SetDefault("router.log.pattern", "%time [%level] %field %msg\n")
	v.SetDefault("router.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("router.log.file.enabled", false)
	v.SetDefault("router.log.file.path", "/var/log/hop/hop.log")
	v.SetDefault("router.log.file.max_size_mb", 100)
	v.SetDefault("router.log.file.max_backups", 5)
	v.SetDefault("router.log.file.max_age_days", 30)
	v.SetDefault("router.log.file.compress", true)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Routing table ──
	if cfg.RoutingTable == "" {
		return fmt.Errorf("%w: routing_table is required", core.ErrConfigInvalid)
	}

	// ── Interfaces ──
	if cfg.Interfaces.Match.re == nil {
		cfg.Interfaces.Match = MustPattern("eth")
	}

	// ── Timing ──
	if cfg.Timing.PollTimeout <= 0 {
		return fmt.Errorf("%w: timing.poll_timeout must be positive, got %s", core.ErrConfigInvalid, cfg.Timing.PollTimeout)
	}
	if cfg.Timing.ARPTimeout <= 0 || cfg.Timing.ARPTimeout > MaxARPTimeout {
		return fmt.Errorf("%w: timing.arp_timeout must be in (0, %s], got %s",
			core.ErrConfigInvalid, MaxARPTimeout, cfg.Timing.ARPTimeout)
	}

	// ── Trace ──
	if cfg.Trace.Enabled && cfg.Trace.Path == "" {
		return fmt.Errorf("%w: trace.path is required when trace.enabled=true", core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
		}
		if cfg.Metrics.Path == "" {
			cfg.Metrics.Path = "/metrics"
		}
	}

	// ── Control ──
	if cfg.Control.Enabled && cfg.Control.Socket == "" {
		return fmt.Errorf("%w: control.socket is required when control.enabled=true", core.ErrConfigInvalid)
	}

	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	return nil
}
