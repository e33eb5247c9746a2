// Package config loads runtime configuration for the passvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory
//	-r string   remote URL
//	-u string   remote account
//	-p string   remote password
//	-k string   remote kind (webdav, s3, minio, dir)
//	-l string   log level
//
// # JSON schema
//
// Durations accept strings like "2s" or integer nanoseconds. Keys that are
// absent keep their default:
//
//	{
//	  "data_dir": "/home/me/.config/passvault",
//	  "remote_kind": "webdav",
//	  "remote_url": "https://dav.example.com/remote.php/webdav",
//	  "remote_account": "me",
//	  "remote_password": "app-password",
//	  "export_password": "",
//	  "debounce": "2s",
//	  "recycle_bin_ttl": "720h",
//	  "recycle_bin_cap": 200,
//	  "history_cap": 500
//	}
//
// The package does not read environment variables.
package config
