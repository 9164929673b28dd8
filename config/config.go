// Package config loads ConnectionEngine and TDMACoordinator settings
// from a TOML file, in the same shape danmuck-edgectl's
// cmd/ghostctl/config.go reads its service config: decode into a raw
// struct via BurntSushi/toml's DecodeFile, check each field with
// meta.IsDefined so an absent key keeps its default rather than
// zero-valuing it, then validate.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk shape of engine/TDMA settings (spec.md §6
// "Configuration"). Fields left absent from the TOML file keep the
// defaults set by Default().
type Config struct {
	RetryCount     byte
	RetryTimeoutMS uint16
	DeviceID       byte

	// TDMA-only; zero DeviceCount means "not a TDMA deployment".
	DeviceCount         byte
	NodeTimeoutMS       uint16
	SyncIntervalMS      uint16
	LatencyCompensation bool
}

// Default returns the configuration used when a file defines none of the
// optional fields.
func Default() Config {
	return Config{
		RetryCount:     3,
		RetryTimeoutMS: 100,
	}
}

type fileConfig struct {
	RetryCount          int  `toml:"retry_count"`
	RetryTimeoutMS      int  `toml:"retry_timeout_ms"`
	DeviceID            int  `toml:"device_id"`
	DeviceCount         int  `toml:"device_count"`
	NodeTimeoutMS       int  `toml:"node_timeout_ms"`
	SyncIntervalMS      int  `toml:"sync_interval_ms"`
	LatencyCompensation bool `toml:"latency_compensation"`
}

// Load reads path and overlays whatever it defines onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load connection config: %w", err)
	}

	if meta.IsDefined("retry_count") {
		cfg.RetryCount = byte(raw.RetryCount)
	}
	if meta.IsDefined("retry_timeout_ms") {
		cfg.RetryTimeoutMS = uint16(raw.RetryTimeoutMS)
	}
	if meta.IsDefined("device_id") {
		cfg.DeviceID = byte(raw.DeviceID)
	}
	if meta.IsDefined("device_count") {
		cfg.DeviceCount = byte(raw.DeviceCount)
	}
	if meta.IsDefined("node_timeout_ms") {
		cfg.NodeTimeoutMS = uint16(raw.NodeTimeoutMS)
	}
	if meta.IsDefined("sync_interval_ms") {
		cfg.SyncIntervalMS = uint16(raw.SyncIntervalMS)
	}
	if meta.IsDefined("latency_compensation") {
		cfg.LatencyCompensation = raw.LatencyCompensation
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine could not run with.
func Validate(cfg Config) error {
	if cfg.RetryTimeoutMS == 0 {
		return fmt.Errorf("retry_timeout_ms must be non-zero")
	}
	if cfg.DeviceCount == 1 {
		return fmt.Errorf("device_count must be 0 (non-TDMA) or at least 2")
	}
	if cfg.DeviceCount > 0 && cfg.NodeTimeoutMS == 0 {
		return fmt.Errorf("node_timeout_ms must be non-zero when device_count is set")
	}
	return nil
}

// IsTDMA reports whether cfg describes a TDMA deployment.
func (c Config) IsTDMA() bool { return c.DeviceCount > 0 }
