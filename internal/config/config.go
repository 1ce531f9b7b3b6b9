// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/nhath/ezspanner/internal/gateway"
)

// DefaultPath is the config location relative to the XDG config home.
const DefaultPath = "ezspanner/config.toml"

// Backends accepted by [gateway] backend.
const (
	BackendSpanner = "spanner"
	BackendSQL     = "sql"
	BackendRemote  = "remote"
)

// Config represents the application configuration
type Config struct {
	MultilineFormat  bool                `toml:"multiline_format"`
	ConfirmExecution bool                `toml:"confirm_execution"`
	QueryTimeout     Duration            `toml:"query_timeout"`
	Connection       gateway.Coordinates `toml:"connection"`
	Gateway          GatewayConfig       `toml:"gateway"`
	History          HistoryConfig       `toml:"history"`
	Profiles         []Profile           `toml:"profiles"`
	Theme            Theme               `toml:"theme_colors"`
	Keys             KeyMap              `toml:"keys"`

	path      string
	masterKey func() ([]byte, error)
}

// GatewayConfig selects and configures the Execution Gateway.
type GatewayConfig struct {
	Backend         string `toml:"backend"`
	Endpoint        string `toml:"endpoint,omitempty"`
	EmulatorHost    string `toml:"emulator_host,omitempty"`
	CredentialsFile string `toml:"credentials_file,omitempty"`
}

// HistoryConfig controls the optional history journal.
type HistoryConfig struct {
	Persist bool   `toml:"persist"`
	Path    string `toml:"path,omitempty"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// Theme defines the color palette
type Theme struct {
	TextPrimary   string `toml:"text_primary"`
	TextSecondary string `toml:"text_secondary"`
	TextFaint     string `toml:"text_faint"`
	Accent        string `toml:"accent"`
	Success       string `toml:"success"`
	Error         string `toml:"error"`
	Highlight     string `toml:"highlight"`
	Warning       string `toml:"warning"`
	BgPrimary     string `toml:"bg_primary"`
	BgSecondary   string `toml:"bg_secondary"`
	CardBg        string `toml:"card_bg"`
}

// KeyMap defines key bindings
type KeyMap struct {
	Execute     []string `toml:"execute"`
	Format      []string `toml:"format"`
	CopyQuery   []string `toml:"copy_query"`
	CopyResults []string `toml:"copy_results"`
	Settings    []string `toml:"settings"`
	SwitchTab   []string `toml:"switch_tab"`
	Exit        []string `toml:"exit"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		MultilineFormat:  true,
		ConfirmExecution: true,
		QueryTimeout:     Duration{30 * time.Second},
		Gateway:          GatewayConfig{Backend: BackendSpanner},
		Profiles:         []Profile{},
		Theme: Theme{
			// Nord
			TextPrimary:   "#D8DEE9",
			TextSecondary: "#81A1C1",
			TextFaint:     "#4C566A",
			Accent:        "#88C0D0",
			Success:       "#A3BE8C",
			Error:         "#BF616A",
			Highlight:     "#8FBCBB",
			Warning:       "#D08770",
			BgPrimary:     "#2E3440",
			BgSecondary:   "#3B4252",
			CardBg:        "#434C5E",
		},
		Keys: KeyMap{
			Execute:     []string{"ctrl+d", "ctrl+e"},
			Format:      []string{"ctrl+f"},
			CopyQuery:   []string{"ctrl+y"},
			CopyResults: []string{"ctrl+r"},
			Settings:    []string{"ctrl+s"},
			SwitchTab:   []string{"tab"},
			Exit:        []string{"ctrl+c"},
		},
		masterKey: GetMasterKey,
	}
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile(DefaultPath)
}

// Path returns the file the config is saved to.
func (c *Config) Path() string {
	return c.path
}

// Load loads the config at path, or at ConfigPath when path is empty. A
// missing file is created with defaults.
func Load(path string) (*Config, error) {
	return load(path, GetMasterKey)
}

func load(path string, masterKey func() ([]byte, error)) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run: create default
		cfg := DefaultConfig()
		cfg.path = path
		cfg.masterKey = masterKey
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg := DefaultConfig()
	cfg.Profiles = nil
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path
	cfg.masterKey = masterKey

	// Keys missing from older files keep their defaults; persist them so the
	// user can see and edit them.
	updated := false
	for _, key := range []string{"multiline_format", "confirm_execution", "query_timeout"} {
		if !md.IsDefined(key) {
			updated = true
		}
	}
	if !md.IsDefined("gateway", "backend") || !md.IsDefined("theme_colors") || !md.IsDefined("keys") {
		updated = true
	}
	if cfg.Gateway.Backend == "" {
		cfg.Gateway.Backend = BackendSpanner
	}
	if updated {
		// A read-only config is still usable with in-memory defaults.
		_ = cfg.Save()
	}

	cfg.decryptPasswords()
	return cfg, nil
}

func (c *Config) decryptPasswords() {
	if c.masterKey == nil {
		return
	}
	if key, err := c.masterKey(); err == nil {
		c.openPasswords(key)
	}
}

// Save writes the config to disk
func (c *Config) Save() error {
	if c.path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	// Owner read/write only
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.masterKey != nil {
		if key, err := c.masterKey(); err == nil {
			c.sealPasswords(key)
		}
	}

	return toml.NewEncoder(f).Encode(c)
}
