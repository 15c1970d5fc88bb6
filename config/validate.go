package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeRate bounds each per-second fee rate.
var MaxFeeRate = uint16(10_000)

func ValidateConfig(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
	if owner := strings.TrimSpace(cfg.Owner); owner != "" && !common.IsHexAddress(owner) {
		return fmt.Errorf("owner: %q is not a hex address", owner)
	}
	if cfg.Fees.LP > MaxFeeRate || cfg.Fees.Protocol > MaxFeeRate || cfg.Fees.Staking > MaxFeeRate {
		return fmt.Errorf("fees: each rate must be <= %d", MaxFeeRate)
	}
	if cfg.Auth.Enabled && cfg.AuthSecret() == "" {
		return fmt.Errorf("auth: enabled without HMACSecret or HMACSecretEnv")
	}
	if cfg.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth: negative clock skew")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: negative limits")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	if cfg.Telemetry.MetricIntervalSeconds < 0 {
		return fmt.Errorf("telemetry: negative MetricIntervalSeconds")
	}
	return nil
}
