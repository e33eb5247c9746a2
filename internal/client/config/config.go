package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/settings"
)

// Key sources for the master key.
const (
	KeySourceKeyring = "keyring"
	KeySourceFile    = "file"
)

// Config holds runtime settings for the passvault CLI.
//
// Durations are time.Duration values; RecycleBinTTL of 0 disables age
// based purging and the caps disable trimming when 0.
type Config struct {
	DataDir  string
	DBFile   string
	LogLevel string

	KeySource      string
	KeyringService string
	KeyFile        string

	RemoteKind     string
	RemoteURL      string
	RemoteAccount  string
	RemotePassword string
	Bucket         string
	Region         string
	RemoteTimeout  time.Duration

	ExportPassword string
	PasswordLength int
	AutoBackup     bool
	SyncOnStart    bool

	Debounce      time.Duration
	RecycleBinTTL time.Duration
	RecycleBinCap int
	HistoryCap    int
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "passvault")
	}
	return ".passvault"
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.DBFile = "vault.db"
	c.LogLevel = "info"

	c.KeySource = KeySourceKeyring
	c.KeyringService = "passvault"
	c.KeyFile = ""

	c.RemoteKind = settings.KindWebDAV
	c.RemoteTimeout = 30 * time.Second

	c.PasswordLength = 16
	c.AutoBackup = true
	c.SyncOnStart = true

	c.Debounce = 2 * time.Second
	c.RecycleBinTTL = 30 * 24 * time.Hour
	c.RecycleBinCap = 200
	c.HistoryCap = 500
}

// KeyFilePath is KeyFile, or master.key inside DataDir when unset.
func (c *Config) KeyFilePath() string {
	if c.KeyFile != "" {
		return c.KeyFile
	}
	return filepath.Join(c.DataDir, "master.key")
}

// Settings returns the user-editable part of the configuration.
func (c *Config) Settings() settings.Settings {
	return settings.Settings{
		RemoteKind:     c.RemoteKind,
		ServerURL:      c.RemoteURL,
		Account:        c.RemoteAccount,
		Password:       c.RemotePassword,
		Bucket:         c.Bucket,
		Region:         c.Region,
		ExportPassword: c.ExportPassword,
		PasswordLength: c.PasswordLength,
		AutoBackup:     c.AutoBackup,
		SyncOnStart:    c.SyncOnStart,
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
