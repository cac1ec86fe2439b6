// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads marketctl settings from a YAML file, an optional
// .env file next to it, and MARKET_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bitfsorg/libmarket-go/fees"
)

// EnvPrefix prefixes every environment override, e.g. MARKET_NETWORK.
const EnvPrefix = "MARKET"

// Config holds the settings of a marketplace node.
type Config struct {
	DataDir        string `mapstructure:"datadir"`
	ListenAddr     string `mapstructure:"listen"`
	Network        string `mapstructure:"network"`
	LogLevel       string `mapstructure:"loglevel"`
	LogFile        string `mapstructure:"logfile"`
	Owner          string `mapstructure:"owner"`   // hex address of the contract owner
	DefaultFeeRate string `mapstructure:"feerate"` // percent, e.g. "2.5"
}

// DefaultDataDir returns ~/.market, or .market when the home directory is
// unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".market"
	}
	return filepath.Join(home, ".market")
}

// ConfigPath returns the configuration file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// StorePath returns the bbolt database file inside dataDir.
func StorePath(dataDir string) string {
	return filepath.Join(dataDir, "market.db")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:        DefaultDataDir(),
		ListenAddr:     ":9464",
		Network:        "mainnet",
		LogLevel:       "info",
		DefaultFeeRate: "0",
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("datadir", d.DataDir)
	v.SetDefault("listen", d.ListenAddr)
	v.SetDefault("network", d.Network)
	v.SetDefault("loglevel", d.LogLevel)
	v.SetDefault("logfile", d.LogFile)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("feerate", d.DefaultFeeRate)
	return v
}

// LoadConfig reads the configuration file at path. Keys missing from the
// file keep their defaults; MARKET_* variables, including those set by a
// .env file in the same directory, override both.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return Config{}, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
	}
	return decode(v)
}

// FromEnv builds a configuration from defaults and the environment only.
func FromEnv() (Config, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// loadDotEnv applies a .env file if one exists. Variables already set in
// the process environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("datadir", cfg.DataDir)
	v.Set("listen", cfg.ListenAddr)
	v.Set("network", cfg.Network)
	v.Set("loglevel", cfg.LogLevel)
	v.Set("logfile", cfg.LogFile)
	v.Set("owner", cfg.Owner)
	v.Set("feerate", cfg.DefaultFeeRate)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

// OwnerAddress returns the configured owner, or the zero address when unset.
func (c Config) OwnerAddress() (common.Address, error) {
	if c.Owner == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(c.Owner) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidOwner, c.Owner)
	}
	return common.HexToAddress(c.Owner), nil
}

// FeeRate returns the default fee rate in fees.Denominator units.
func (c Config) FeeRate() (*big.Int, error) {
	rate, err := fees.ParsePercent(c.DefaultFeeRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFeeRate, err)
	}
	return rate, nil
}
