// Package config loads the mailcontacts configuration file and resolves the
// home directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wesm/mailcontacts/internal/fileutil"
)

// HomeEnv names the environment variable that overrides the home directory.
const HomeEnv = "MAILCONTACTS_HOME"

// CacheFileName is the name of the contact cache inside the data directory.
const CacheFileName = "contacts.db"

// Config is the parsed config.toml.
type Config struct {
	Data  DataConfig  `toml:"data"`
	Cfind CfindConfig `toml:"cfind"`
	Index IndexConfig `toml:"index"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// CfindConfig holds defaults for the cfind command.
type CfindConfig struct {
	Format string `toml:"format"` // default output format identifier
}

// IndexConfig holds defaults for the index command.
type IndexConfig struct {
	Workers         int      `toml:"workers"`           // 0 means GOMAXPROCS
	MaxMessageBytes int64    `toml:"max_message_bytes"` // 0 means the importer default
	Maildirs        []string `toml:"maildirs"`          // sources indexed when none are given
}

// DefaultHome returns the default mailcontacts home directory.
// Respects the MAILCONTACTS_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailcontacts"
	}
	return filepath.Join(home, ".mailcontacts")
}

// Load reads the configuration. homeDir overrides DefaultHome when set; if
// path is empty, <home>/config.toml is used. The file is optional.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	homeDir = expandPath(homeDir)

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Data:    DataConfig{DataDir: homeDir},
		Cfind:   CfindConfig{Format: "plain"},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Index.Workers < 0 {
		return nil, fmt.Errorf("decode config: index.workers must not be negative")
	}

	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)
	if cfg.Data.DataDir == "" {
		cfg.Data.DataDir = homeDir
	}
	for i, dir := range cfg.Index.Maildirs {
		cfg.Index.Maildirs[i] = expandPath(dir)
	}
	return cfg, nil
}

// CachePath returns the path to the contact cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.Data.DataDir, CacheFileName)
}

// ConfigFilePath returns the default path of config.toml.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home and data directories if they don't exist.
func (c *Config) EnsureHomeDir() error {
	for _, dir := range []string{c.HomeDir, c.Data.DataDir} {
		if err := fileutil.MkdirPrivate(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
