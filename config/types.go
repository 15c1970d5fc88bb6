package config

import (
	"time"

	"termswap/native/termswap/curve"
)

// Storage backends understood by the daemon.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// DefaultFees are the per-second fee rates handed to new pairs when the
// configuration names none.
var DefaultFees = curve.Fees{LP: 2, Protocol: 1, Staking: 1}

// Storage selects the key-value backend.
type Storage struct {
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
}

// Logging controls the structured logger and optional rotated log file.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Auth configures bearer JWT verification. The token subject is the account
// the request acts for.
type Auth struct {
	Enabled          bool   `toml:"Enabled"`
	HMACSecret       string `toml:"HMACSecret"`
	HMACSecretEnv    string `toml:"HMACSecretEnv"`
	Issuer           string `toml:"Issuer"`
	Audience         string `toml:"Audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds"`
}

// ClockSkew returns the accepted token clock skew.
func (a Auth) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// RateLimit bounds requests per client.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`

	// ResourceAttributes adds "key=value" pairs to every exported resource.
	ResourceAttributes    string  `toml:"ResourceAttributes"`
	SampleRatio           float64 `toml:"SampleRatio"`
	MetricIntervalSeconds int     `toml:"MetricIntervalSeconds"`
}

// MetricInterval returns the OTLP metric push interval.
func (t Telemetry) MetricInterval() time.Duration {
	return time.Duration(t.MetricIntervalSeconds) * time.Second
}

// Pauses lists modules halted at boot.
type Pauses struct {
	Termswap bool `toml:"Termswap"`
}

// IsPaused reports whether module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "termswap":
		return p.Termswap
	default:
		return false
	}
}
