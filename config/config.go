package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"termswap/native/termswap/curve"
)

type Config struct {
	ListenAddress string     `toml:"ListenAddress"`
	DataDir       string     `toml:"DataDir"`
	GenesisFile   string     `toml:"GenesisFile"`
	Environment   string     `toml:"Environment"`
	Owner         string     `toml:"Owner"`
	Fees          curve.Fees `toml:"fees"`
	Storage       Storage    `toml:"storage"`
	Logging       Logging    `toml:"logging"`
	Auth          Auth       `toml:"auth"`
	RateLimit     RateLimit  `toml:"rate_limit"`
	Telemetry     Telemetry  `toml:"telemetry"`
	Pauses        Pauses     `toml:"pauses"`
}

// Load loads the configuration from the given path, writing a default file
// there first when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":7080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./termswap-data"
	}
	if cfg.Fees == (curve.Fees{}) {
		cfg.Fees = DefaultFees
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Auth.ClockSkewSeconds == 0 {
		cfg.Auth.ClockSkewSeconds = 120
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 600
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1
	}
	if cfg.Telemetry.MetricIntervalSeconds == 0 {
		cfg.Telemetry.MetricIntervalSeconds = 15
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":7080",
		DataDir:       "./termswap-data",
		Environment:   "dev",
		Owner:         "",
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// StoragePath resolves where the configured backend keeps its files.
func (c *Config) StoragePath() string {
	if path := strings.TrimSpace(c.Storage.Path); path != "" {
		return path
	}
	switch c.Storage.Backend {
	case BackendBolt:
		return filepath.Join(c.DataDir, "termswap.db")
	default:
		return filepath.Join(c.DataDir, "state")
	}
}

// AuthSecret returns the HMAC secret, preferring the environment variable named
// by Auth.HMACSecretEnv when it is set.
func (c *Config) AuthSecret() string {
	if env := strings.TrimSpace(c.Auth.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(c.Auth.HMACSecret)
}
