package authflow

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	HTTP    HTTPConfig
	Flow    FlowConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig defines a public type used by authflow APIs.
//
// HTTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig defines a public type used by authflow APIs.
//
// FlowConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FlowConfig struct {
	TOTPDigits       int
	BackupCodeLength int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by authflow APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authflow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			RequestTimeout: 10 * time.Second,
			UserAgent:      "authflow",
		},
		Flow: FlowConfig{
			TOTPDigits:       6,
			BackupCodeLength: 8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// HTTP
	base := strings.TrimSpace(c.HTTP.BaseURL)
	if base == "" {
		return errors.New("HTTP BaseURL must be set")
	}
	u, err := url.Parse(base)
	if err != nil {
		return errors.New("HTTP BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("HTTP BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("HTTP BaseURL must include a host")
	}
	if c.HTTP.RequestTimeout < 0 {
		return errors.New("HTTP RequestTimeout must be >= 0")
	}

	// Flow
	if c.Flow.TOTPDigits < 6 || c.Flow.TOTPDigits > 10 {
		return errors.New("Flow TOTPDigits must be between 6 and 10")
	}
	if c.Flow.BackupCodeLength < 6 || c.Flow.BackupCodeLength > 32 {
		return errors.New("Flow BackupCodeLength must be between 6 and 32")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
