package goSession

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/internal/logging"
)

// Config holds every tunable of a Manager. Obtain one from DefaultConfig or
// LoadConfig and adjust fields before passing it to Builder.WithConfig.
type Config struct {
	Recovery  RecoveryConfig         `koanf:"recovery"`
	Bootstrap BootstrapConfig        `koanf:"bootstrap"`
	Session   SessionConfig          `koanf:"session"`
	Headers   credential.HeaderNames `koanf:"headers"`
	Events    EventsConfig           `koanf:"events"`
	Metrics   MetricsConfig          `koanf:"metrics"`
	Logging   LoggingConfig          `koanf:"logging"`
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryFallback selects what happens when an SSO recovery times out.
type RecoveryFallback string

const (
	// FallbackGuestBootstrap reverts to the pre-recovery status and then
	// bootstraps a fresh guest session.
	FallbackGuestBootstrap RecoveryFallback = "guest_bootstrap"
	// FallbackRestore only reverts to the pre-recovery status.
	FallbackRestore RecoveryFallback = "restore"
)

type RecoveryConfig struct {
	Timeout         time.Duration    `koanf:"timeout"`
	TimeoutFallback RecoveryFallback `koanf:"timeout_fallback"`
}

/*
====================================
BOOTSTRAP CONFIG
====================================
*/

type BootstrapConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Delay       time.Duration `koanf:"delay"`
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// ReBootstrapAfterLogout logs in a fresh guest after a successful logout.
	ReBootstrapAfterLogout bool `koanf:"rebootstrap_after_logout"`
	// WaitForBlockersByDefault is the blocker behaviour of
	// WaitForAuthenticationDefault.
	WaitForBlockersByDefault bool `koanf:"wait_for_blockers"`
}

/*
====================================
EVENTS / METRICS / LOGGING
====================================
*/

// EventsConfig controls session event delivery. DropIfFull=false makes
// emits from public calls wait for buffer room; events raised inside a
// state transition are always dropped on a full buffer so a slow sink
// never stalls the manager.
type EventsConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"latency_histograms"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Recovery: RecoveryConfig{
			Timeout:         30 * time.Second,
			TimeoutFallback: FallbackGuestBootstrap,
		},
		Bootstrap: BootstrapConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
		},
		Session: SessionConfig{
			ReBootstrapAfterLogout:   true,
			WaitForBlockersByDefault: true,
		},
		Headers: credential.DefaultHeaderNames(),
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Recovery.Timeout <= 0 {
		return errors.New("Recovery Timeout must be > 0")
	}
	switch c.Recovery.TimeoutFallback {
	case FallbackGuestBootstrap, FallbackRestore:
	default:
		return fmt.Errorf("unsupported Recovery TimeoutFallback %q", c.Recovery.TimeoutFallback)
	}

	if c.Bootstrap.MaxAttempts < 1 {
		return errors.New("Bootstrap MaxAttempts must be >= 1")
	}
	if c.Bootstrap.Delay < 0 {
		return errors.New("Bootstrap Delay must be >= 0")
	}

	if c.Headers.DeviceGUID == "" || c.Headers.Bearer == "" || c.Headers.Secondary == "" {
		return errors.New("Headers names must be non-empty")
	}

	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("unsupported Logging Level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unsupported Logging Format %q", c.Logging.Format)
	}
	return nil
}
