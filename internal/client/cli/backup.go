package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/kdbx"
	"github.com/dmitrijs2005/passvault/internal/client/settings"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/filex"
)

func (a *App) Sync(ctx context.Context, args []string) error {
	out := a.sync.RefreshAndSync(ctx)
	if out.Err != nil {
		return out.Err
	}
	fmt.Fprintf(a.out, "Sync: %s\n", out.Action)
	return nil
}

// exportPassword asks for a password; an empty answer falls back to the
// configured export password, and to the built-in key after that.
func (a *App) exportPassword(prompt string) (string, error) {
	pw, err := promptSecret(a.out, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return a.settings.Current().ExportPassword, nil
	}
	return string(pw), nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("export <file>")
	}
	pw, err := a.exportPassword("Export password (empty for default)")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.sync.Export(ctx, &buf, pw); err != nil {
		return err
	}
	return filex.WriteFileAtomic(args[0], buf.Bytes(), 0o600)
}

func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ok, err := confirm(a.reader, a.out, "This replaces every record. Continue?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Import cancelled.")
		return nil
	}

	pw, err := a.exportPassword("Backup password (empty for default)")
	if err != nil {
		return err
	}
	_, err = a.sync.Import(ctx, f, pw)
	return err
}

func (a *App) ExportKDBX(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("kdbx <file>")
	}
	pw, err := promptSecret(a.out, "KeePass database password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	records, err := a.svc.GetAll(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := kdbx.Export(&buf, records, string(pw)); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[0], buf.Bytes(), 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %d records to %s.\n", len(records), args[0])
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func (a *App) printSettings() {
	s := a.settings.Current()
	fmt.Fprintf(a.out, "kind         %s\n", s.RemoteKind)
	fmt.Fprintf(a.out, "url          %s\n", s.ServerURL)
	fmt.Fprintf(a.out, "account      %s\n", s.Account)
	fmt.Fprintf(a.out, "password     %s\n", mask(s.Password))
	fmt.Fprintf(a.out, "bucket       %s\n", s.Bucket)
	fmt.Fprintf(a.out, "region       %s\n", s.Region)
	fmt.Fprintf(a.out, "exportpw     %s\n", mask(s.ExportPassword))
	fmt.Fprintf(a.out, "length       %d\n", s.PasswordLength)
	fmt.Fprintf(a.out, "autobackup   %t\n", s.AutoBackup)
	fmt.Fprintf(a.out, "synconstart  %t\n", s.SyncOnStart)
}

// Settings prints the settings, or changes one: "settings <key> <value>".
// Secret keys given without a value are read without echo. Changes last
// for the session.
func (a *App) Settings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printSettings()
		return nil
	}
	key := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")

	if value == "" && (key == "password" || key == "exportpw") {
		pw, err := promptSecret(a.out, "Value")
		if err != nil {
			return err
		}
		value = string(pw)
		common.WipeByteArray(pw)
	}

	var apply func(*settings.Settings)
	switch key {
	case "kind":
		switch value {
		case settings.KindWebDAV, settings.KindS3, settings.KindMinio, settings.KindDir:
		default:
			return usage("settings kind webdav|s3|minio|dir")
		}
		apply = func(s *settings.Settings) { s.RemoteKind = value }
	case "url":
		apply = func(s *settings.Settings) { s.ServerURL = value }
	case "account":
		apply = func(s *settings.Settings) { s.Account = value }
	case "password":
		apply = func(s *settings.Settings) { s.Password = value }
	case "bucket":
		apply = func(s *settings.Settings) { s.Bucket = value }
	case "region":
		apply = func(s *settings.Settings) { s.Region = value }
	case "exportpw":
		apply = func(s *settings.Settings) { s.ExportPassword = value }
	case "length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return usage("settings length <n>")
		}
		apply = func(s *settings.Settings) { s.PasswordLength = n }
	case "autobackup", "synconstart":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return usage("settings " + key + " true|false")
		}
		if key == "autobackup" {
			apply = func(s *settings.Settings) { s.AutoBackup = b }
		} else {
			apply = func(s *settings.Settings) { s.SyncOnStart = b }
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	a.settings.Update(apply)
	fmt.Fprintf(a.out, "%s updated.\n", key)
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	m, err := a.vault.Repos.SyncMeta.Ensure(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "status        %s\n", m.SyncStatus)
	fmt.Fprintf(a.out, "local change  %s\n", formatTime(m.LastLocalUpdate))
	fmt.Fprintf(a.out, "cloud backup  %s\n", formatTime(m.LastCloudUpdate))
	fmt.Fprintf(a.out, "last sync     %s\n", formatTime(m.LastSyncTime))
	fmt.Fprintf(a.out, "cache         %s\n", a.svc.Cache().State())
	if msg, ok := a.status.Latest(); ok {
		fmt.Fprintf(a.out, "last message  [%s] %s\n", msg.Severity, msg.Text)
	}
	return nil
}
