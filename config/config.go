package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvRPCURL    = "NEAR_RPC_URL"
	EnvRPCAPIKey = "NEAR_RPC_API_KEY"
	EnvNetwork   = "NEAR_NETWORK"
)

var knownNetworks = map[string]string{
	"mainnet":  "https://rpc.mainnet.near.org",
	"testnet":  "https://rpc.testnet.near.org",
	"localnet": "http://127.0.0.1:3030",
}

// Duration decodes "30s"-style strings from both TOML and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// NetworkConfig selects the chain and the RPC node used to query it.
type NetworkConfig struct {
	Name              string   `toml:"Name" yaml:"name"`
	RPCURL            string   `toml:"RPCURL" yaml:"rpcUrl"`
	APIKey            string   `toml:"APIKey" yaml:"apiKey"`
	Timeout           Duration `toml:"Timeout" yaml:"timeout"`
	RequestsPerSecond float64  `toml:"RequestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int      `toml:"Burst" yaml:"burst"`
}

// AuthConfig enables bearer-token auth on the gateway.
type AuthConfig struct {
	Enabled    bool     `toml:"Enabled" yaml:"enabled"`
	HMACSecret string   `toml:"HMACSecret" yaml:"hmacSecret"`
	Issuer     string   `toml:"Issuer" yaml:"issuer"`
	Audience   string   `toml:"Audience" yaml:"audience"`
	ClockSkew  Duration `toml:"ClockSkew" yaml:"clockSkew"`
}

// GatewayConfig configures the HTTP read API.
type GatewayConfig struct {
	ListenAddress     string     `toml:"ListenAddress" yaml:"listen"`
	ReadTimeout       Duration   `toml:"ReadTimeout" yaml:"readTimeout"`
	WriteTimeout      Duration   `toml:"WriteTimeout" yaml:"writeTimeout"`
	IdleTimeout       Duration   `toml:"IdleTimeout" yaml:"idleTimeout"`
	RequestsPerMinute float64    `toml:"RequestsPerMinute" yaml:"requestsPerMinute"`
	Burst             int        `toml:"Burst" yaml:"burst"`
	LogRequests       bool       `toml:"LogRequests" yaml:"logRequests"`
	AllowedOrigins    []string   `toml:"AllowedOrigins" yaml:"allowedOrigins"`
	Auth              AuthConfig `toml:"Auth" yaml:"auth"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	Level string `toml:"Level" yaml:"level"`
	File  string `toml:"File" yaml:"file"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sampleRatio"`
}

type Config struct {
	Network   NetworkConfig   `toml:"Network" yaml:"network"`
	Gateway   GatewayConfig   `toml:"Gateway" yaml:"gateway"`
	Logging   LoggingConfig   `toml:"Logging" yaml:"logging"`
	Telemetry TelemetryConfig `toml:"Telemetry" yaml:"telemetry"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Name:    "testnet",
			Timeout: Duration{30 * time.Second},
		},
		Gateway: GatewayConfig{
			ListenAddress:     "127.0.0.1:8090",
			ReadTimeout:       Duration{15 * time.Second},
			WriteTimeout:      Duration{45 * time.Second},
			IdleTimeout:       Duration{120 * time.Second},
			RequestsPerMinute: 600,
			Burst:             20,
			LogRequests:       true,
			Auth:              AuthConfig{ClockSkew: Duration{2 * time.Minute}},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a .toml, .yaml or .yml file over the defaults, applies
// environment overrides and validates the result. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.applyNetworkDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvNetwork)); v != "" {
		cfg.Network.Name = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRPCURL)); v != "" {
		cfg.Network.RPCURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRPCAPIKey)); v != "" {
		cfg.Network.APIKey = v
	}
}

func (cfg *Config) applyNetworkDefaults() {
	cfg.Network.Name = strings.ToLower(strings.TrimSpace(cfg.Network.Name))
	if strings.TrimSpace(cfg.Network.RPCURL) == "" {
		cfg.Network.RPCURL = knownNetworks[cfg.Network.Name]
	}
}
