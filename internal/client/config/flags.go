package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/passvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   data directory
//	-r string   remote URL (WebDAV root, S3/MinIO endpoint or local path)
//	-u string   remote account
//	-p string   remote password
//	-k string   remote kind: webdav, s3, minio or dir
//	-l string   log level
//
// Only these flags are parsed; everything else in os.Args is ignored.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.RemoteURL, "r", cfg.RemoteURL, "remote URL")
	fs.StringVar(&cfg.RemoteAccount, "u", cfg.RemoteAccount, "remote account")
	fs.StringVar(&cfg.RemotePassword, "p", cfg.RemotePassword, "remote password")
	fs.StringVar(&cfg.RemoteKind, "k", cfg.RemoteKind, "remote kind (webdav, s3, minio, dir)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(flagx.Known(fs, os.Args[1:])); err != nil {
		panic(err)
	}
}
