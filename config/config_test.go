// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libmarket-go/fees"
)

// ---------------------------------------------------------------------------
// DefaultConfig
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9464", cfg.ListenAddr)
	assert.Equal(t, "0", cfg.DefaultFeeRate)
	assert.True(t, strings.HasSuffix(cfg.DataDir, ".market"))
	assert.NoError(t, ValidateConfig(cfg))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "config.yaml"), ConfigPath("/data"))
	assert.Equal(t, filepath.Join("/data", "market.db"), StorePath("/data"))
}

// ---------------------------------------------------------------------------
// ValidateConfig
// ---------------------------------------------------------------------------

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"empty datadir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"unknown network", func(c *Config) { c.Network = "regtest" }, ErrInvalidNetwork},
		{"local network", func(c *Config) { c.Network = "local" }, nil},
		{"listen without port", func(c *Config) { c.ListenAddr = "localhost" }, ErrInvalidListenAddr},
		{"listen with host", func(c *Config) { c.ListenAddr = "127.0.0.1:8080" }, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"upper-case log level", func(c *Config) { c.LogLevel = "DEBUG" }, nil},
		{"bad owner", func(c *Config) { c.Owner = "0x1234" }, ErrInvalidOwner},
		{"good owner", func(c *Config) { c.Owner = "0x00000000000000000000000000000000000000a1" }, nil},
		{"fee rate above 100", func(c *Config) { c.DefaultFeeRate = "100.5" }, ErrInvalidFeeRate},
		{"fee rate not a number", func(c *Config) { c.DefaultFeeRate = "ten" }, ErrInvalidFeeRate},
		{"fractional fee rate", func(c *Config) { c.DefaultFeeRate = "2.5" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := ValidateConfig(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

func TestSaveLoadConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(filepath.Join(dir, "nested"))

	cfg := Config{
		DataDir:        dir,
		ListenAddr:     "127.0.0.1:9000",
		Network:        "testnet",
		LogLevel:       "debug",
		LogFile:        filepath.Join(dir, "market.log"),
		Owner:          "0x00000000000000000000000000000000000000a1",
		DefaultFeeRate: "2.5",
	}
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: [unterminated\n"), 0600))
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfigFile)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: testnet\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9464", cfg.ListenAddr)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: testnet\nloglevel: warn\n"), 0600))
	t.Setenv("MARKET_NETWORK", "local")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Network)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: testnet\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MARKET_FEERATE=7.5\n"), 0600))
	// godotenv sets variables on the process; register cleanup through t.Setenv.
	t.Setenv("MARKET_FEERATE", "")
	require.NoError(t, os.Unsetenv("MARKET_FEERATE"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7.5", cfg.DefaultFeeRate)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MARKET_LOGLEVEL", "error")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "mainnet", cfg.Network)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func TestOwnerAddress(t *testing.T) {
	addr, err := Config{}.OwnerAddress()
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, addr)

	addr, err = Config{Owner: "0x00000000000000000000000000000000000000a1"}.OwnerAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa1"), addr)

	_, err = Config{Owner: "nope"}.OwnerAddress()
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestFeeRate(t *testing.T) {
	rate, err := Config{DefaultFeeRate: "10"}.FeeRate()
	require.NoError(t, err)
	assert.Equal(t, fees.Percent(10), rate)

	_, err = Config{DefaultFeeRate: "-1"}.FeeRate()
	assert.ErrorIs(t, err, ErrInvalidFeeRate)
}
