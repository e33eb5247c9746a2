package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration so the file may say "2s" or give integer nanoseconds.
type JsonConfig struct {
	DataDir  string `json:"data_dir"`
	DBFile   string `json:"db_file"`
	LogLevel string `json:"log_level"`

	KeySource      string `json:"key_source"`
	KeyringService string `json:"keyring_service"`
	KeyFile        string `json:"key_file"`

	RemoteKind     string         `json:"remote_kind"`
	RemoteURL      string         `json:"remote_url"`
	RemoteAccount  string         `json:"remote_account"`
	RemotePassword string         `json:"remote_password"`
	Bucket         string         `json:"bucket"`
	Region         string         `json:"region"`
	RemoteTimeout  timex.Duration `json:"remote_timeout"`

	ExportPassword string `json:"export_password"`
	PasswordLength int    `json:"password_length"`
	AutoBackup     bool   `json:"auto_backup"`
	SyncOnStart    bool   `json:"sync_on_start"`

	Debounce      timex.Duration `json:"debounce"`
	RecycleBinTTL timex.Duration `json:"recycle_bin_ttl"`
	RecycleBinCap int            `json:"recycle_bin_cap"`
	HistoryCap    int            `json:"history_cap"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		DataDir:        c.DataDir,
		DBFile:         c.DBFile,
		LogLevel:       c.LogLevel,
		KeySource:      c.KeySource,
		KeyringService: c.KeyringService,
		KeyFile:        c.KeyFile,
		RemoteKind:     c.RemoteKind,
		RemoteURL:      c.RemoteURL,
		RemoteAccount:  c.RemoteAccount,
		RemotePassword: c.RemotePassword,
		Bucket:         c.Bucket,
		Region:         c.Region,
		RemoteTimeout:  timex.Duration{Duration: c.RemoteTimeout},
		ExportPassword: c.ExportPassword,
		PasswordLength: c.PasswordLength,
		AutoBackup:     c.AutoBackup,
		SyncOnStart:    c.SyncOnStart,
		Debounce:       timex.Duration{Duration: c.Debounce},
		RecycleBinTTL:  timex.Duration{Duration: c.RecycleBinTTL},
		RecycleBinCap:  c.RecycleBinCap,
		HistoryCap:     c.HistoryCap,
	}
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Keys missing from the file keep their current value.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.DataDir = jc.DataDir
	cfg.DBFile = jc.DBFile
	cfg.LogLevel = jc.LogLevel
	cfg.KeySource = jc.KeySource
	cfg.KeyringService = jc.KeyringService
	cfg.KeyFile = jc.KeyFile
	cfg.RemoteKind = jc.RemoteKind
	cfg.RemoteURL = jc.RemoteURL
	cfg.RemoteAccount = jc.RemoteAccount
	cfg.RemotePassword = jc.RemotePassword
	cfg.Bucket = jc.Bucket
	cfg.Region = jc.Region
	cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	cfg.ExportPassword = jc.ExportPassword
	cfg.PasswordLength = jc.PasswordLength
	cfg.AutoBackup = jc.AutoBackup
	cfg.SyncOnStart = jc.SyncOnStart
	cfg.Debounce = jc.Debounce.Duration
	cfg.RecycleBinTTL = jc.RecycleBinTTL.Duration
	cfg.RecycleBinCap = jc.RecycleBinCap
	cfg.HistoryCap = jc.HistoryCap
}
