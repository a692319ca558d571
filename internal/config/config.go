// Package config loads jobtally settings and the phrase taxonomy.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"jobtally/internal/model"
)

// Token store backends.
const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

type Config struct {
	Search SearchConfig `toml:"search"`
	Auth   AuthConfig   `toml:"auth"`
	Gmail  GmailConfig  `toml:"gmail"`
	Output OutputConfig `toml:"output"`

	// Phrases replaces the built-in taxonomy when non-empty.
	Phrases model.Taxonomy `toml:"phrases"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// SearchConfig controls query construction.
type SearchConfig struct {
	WindowDays int    `toml:"window_days"`
	Mailbox    string `toml:"mailbox"`  // Gmail user id, "me" for the authorized user
	Timezone   string `toml:"timezone"` // IANA name or "Local"
}

// AuthConfig controls credential acquisition.
type AuthConfig struct {
	ClientSecrets string `toml:"client_secrets"`
	TokenStore    string `toml:"token_store"` // "file" or "keyring"
}

// GmailConfig holds transport settings for the Gmail API.
type GmailConfig struct {
	RateLimitQPS float64 `toml:"rate_limit_qps"` // 0 disables pacing
}

// OutputConfig selects export sinks.
type OutputConfig struct {
	Dir     string `toml:"dir"`
	CSV     bool   `toml:"csv"`
	Charts  bool   `toml:"charts"`
	Archive bool   `toml:"archive"`
}

// DefaultHome returns the jobtally home directory, honouring JOBTALLY_HOME.
func DefaultHome() string {
	if h := os.Getenv("JOBTALLY_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jobtally"
	}
	return filepath.Join(home, ".jobtally")
}

// Default returns the configuration used when no file is present.
func Default(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Search: SearchConfig{
			WindowDays: 365,
			Mailbox:    "me",
			Timezone:   "Local",
		},
		Auth: AuthConfig{
			ClientSecrets: filepath.Join(homeDir, "client_secret.json"),
			TokenStore:    TokenStoreFile,
		},
		Gmail: GmailConfig{
			RateLimitQPS: 5,
		},
		Output: OutputConfig{
			Dir:     ".",
			CSV:     true,
			Charts:  true,
			Archive: true,
		},
	}
}

// Load reads path, or <home>/config.toml when path is empty. A missing file
// yields the defaults. homeDir overrides DefaultHome when non-empty.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	homeDir = expandPath(homeDir)
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}
	path = expandPath(path)

	cfg := Default(homeDir)
	cfg.ConfigPath = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Auth.ClientSecrets = expandPath(cfg.Auth.ClientSecrets)
	cfg.Output.Dir = expandPath(cfg.Output.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if c.Search.WindowDays < 0 {
		return fmt.Errorf("search.window_days must be >= 0, got %d", c.Search.WindowDays)
	}
	if strings.TrimSpace(c.Search.Mailbox) == "" {
		return errors.New("search.mailbox must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Auth.TokenStore {
	case TokenStoreFile, TokenStoreKeyring:
	default:
		return fmt.Errorf("auth.token_store must be %q or %q, got %q", TokenStoreFile, TokenStoreKeyring, c.Auth.TokenStore)
	}
	if c.Gmail.RateLimitQPS < 0 {
		return fmt.Errorf("gmail.rate_limit_qps must be >= 0, got %v", c.Gmail.RateLimitQPS)
	}
	seen := make(map[string]bool)
	for i, p := range c.Phrases {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return fmt.Errorf("phrases[%d]: empty text", i)
		}
		key := strings.ToLower(text)
		if seen[key] {
			return fmt.Errorf("phrases[%d]: duplicate phrase %q", i, p.Text)
		}
		seen[key] = true
	}
	return nil
}

// Taxonomy returns the configured phrases, or the built-in taxonomy.
func (c *Config) Taxonomy() model.Taxonomy {
	if len(c.Phrases) > 0 {
		out := make(model.Taxonomy, len(c.Phrases))
		copy(out, c.Phrases)
		return out
	}
	return DefaultTaxonomy()
}

// Location resolves Search.Timezone. Every bucket and the query date bound
// are evaluated in this zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Search.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("search.timezone: %w", err)
	}
	return loc, nil
}

// DatabasePath returns the path to the report archive.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.HomeDir, "jobtally.db")
}

// TokenPath returns the path of the file token store.
func (c *Config) TokenPath() string {
	return filepath.Join(c.HomeDir, "token.json")
}

// EnsureHomeDir creates the home directory if needed.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o700)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
