package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the endpoint and the numeric limits.
func (cfg Config) Validate() error {
	endpoint := strings.TrimSpace(cfg.Network.RPCURL)
	if endpoint == "" {
		return fmt.Errorf("network: no rpc url for network %q", cfg.Network.Name)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("network: parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("network: rpc url %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("network: rpc url %q has no host", endpoint)
	}
	if cfg.Network.Timeout.Duration < 0 {
		return errors.New("network: timeout must not be negative")
	}
	if cfg.Network.RequestsPerSecond < 0 || cfg.Network.Burst < 0 {
		return errors.New("network: rate limit must not be negative")
	}
	if cfg.Gateway.RequestsPerMinute < 0 || cfg.Gateway.Burst < 0 {
		return errors.New("gateway: rate limit must not be negative")
	}
	if cfg.Gateway.Auth.Enabled && strings.TrimSpace(cfg.Gateway.Auth.HMACSecret) == "" {
		return errors.New("gateway: auth enabled without hmac secret")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry: sample ratio must be within [0, 1]")
	}
	return nil
}
