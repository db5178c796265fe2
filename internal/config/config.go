// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the epdctl YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Backends understood by epdctl.
const (
	BackendSPI = "spi"
	BackendSim = "sim"
)

// Pins names the GPIO lines wired to the panel, as understood by gpioreg.
type Pins struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// Config is the epdctl configuration.
type Config struct {
	// Backend is either "spi" for real hardware or "sim" for the in-memory
	// simulator.
	Backend string `yaml:"backend"`

	// SPIPort is passed to spireg.Open; empty selects the first port.
	SPIPort string `yaml:"spi_port"`
	// SpeedHz is the SPI clock. Zero uses the driver default.
	SpeedHz int64 `yaml:"speed_hz"`
	Pins    Pins  `yaml:"pins"`

	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	MaxTxSize int `yaml:"max_tx_size"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`

	// Listen is the HTTP address serving the simulated panel. Empty disables
	// the HTTP sink.
	Listen string `yaml:"listen"`
	// Refresh is a cron schedule for "epdctl serve".
	Refresh string `yaml:"refresh"`
	// Terminal mirrors the simulated panel on stdout.
	Terminal bool `yaml:"terminal"`
}

// DefaultConfig returns the configuration of a 1.54" panel on the Raspberry
// Pi header.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSPI,
		Pins: Pins{
			DC:   "GPIO25",
			CS:   "GPIO8",
			RST:  "GPIO17",
			Busy: "GPIO24",
		},
		Width:    200,
		Height:   200,
		LogLevel: "info",
		Listen:   "127.0.0.1:8080",
		Refresh:  "*/15 * * * *",
	}
}

// Normalize fills in missing values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Pins.DC == "" {
		c.Pins.DC = d.Pins.DC
	}
	if c.Pins.CS == "" {
		c.Pins.CS = d.Pins.CS
	}
	if c.Pins.RST == "" {
		c.Pins.RST = d.Pins.RST
	}
	if c.Pins.Busy == "" {
		c.Pins.Busy = d.Pins.Busy
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.MaxTxSize < 0 {
		c.MaxTxSize = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Refresh == "" {
		c.Refresh = d.Refresh
	}
}

// Validate reports values Normalize cannot fix.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSPI, BackendSim:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the configured log level, Info when it does not parse.
func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// Load reads the configuration at path.
//
// A missing file is created with the default configuration. When that write
// fails, the default configuration is returned along with the error.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save atomically writes cfg to path with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdctl-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
