// Package kdbx writes the vault as a KeePass (KDBX 4) database so it can be
// opened by other password managers.
package kdbx

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/tobischo/gokeepasslib/v3"
	w "github.com/tobischo/gokeepasslib/v3/wrappers"
)

const (
	GroupName = "passvault"

	keyTitle    = "Title"
	keyUserName = "UserName"
	keyPassword = "Password"
	keyNotes    = "Notes"
	keyNumber   = "Number"
)

var ErrEmptyPassword = errors.New("kdbx export needs a password")

// Export encodes records (plaintext) into a password-protected KDBX file
// written to out. Custom fields become additional entry strings.
func Export(out io.Writer, records []models.Credential, password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}

	entries := make([]gokeepasslib.Entry, 0, len(records))
	for _, r := range records {
		if r.Degraded {
			return fmt.Errorf("record %d: %w", r.ID, common.ErrDegradedRecord)
		}
		e, err := toEntry(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", r.ID, err)
		}
		entries = append(entries, e)
	}

	db := gokeepasslib.NewDatabase(gokeepasslib.WithDatabaseKDBXVersion4())
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)
	db.Content = &gokeepasslib.DBContent{
		Meta: &gokeepasslib.DBMeta{
			Generator:           "passvault",
			DatabaseName:        w.String("passvault export"),
			DatabaseNameChanged: w.Time(w.Now()),
			RecycleBinEnabled:   w.Bool(false),
		},
		Root: &gokeepasslib.RootData{
			Groups: []gokeepasslib.Group{{
				Name:    GroupName,
				UUID:    gokeepasslib.NewUUID(),
				Times:   times(),
				Entries: entries,
			}},
		},
	}

	if err := db.LockProtectedEntries(); err != nil {
		return fmt.Errorf("failed to protect entries: %w", err)
	}
	if err := gokeepasslib.NewEncoder(out).Encode(db); err != nil {
		return fmt.Errorf("failed to encode kdbx: %w", err)
	}
	return nil
}

func times() gokeepasslib.TimeData {
	return gokeepasslib.TimeData{
		CreationTime:         w.Time(w.Now()),
		LastModificationTime: w.Time(w.Now()),
		LastAccessTime:       w.Time(w.Now()),
	}
}

func value(key, content string) gokeepasslib.ValueData {
	return gokeepasslib.ValueData{Key: key, Value: gokeepasslib.V{Content: content}}
}

func toEntry(r models.Credential) (gokeepasslib.Entry, error) {
	custom, err := r.CustomFields()
	if err != nil {
		return gokeepasslib.Entry{}, err
	}

	values := []gokeepasslib.ValueData{
		value(keyTitle, r.ProjectName),
		value(keyUserName, r.Username),
		{Key: keyPassword, Value: gokeepasslib.V{Content: r.Password, Protected: w.Bool(true)}},
		value(keyNotes, r.Notes),
	}
	if r.Number != "" {
		values = append(values, value(keyNumber, r.Number))
	}

	names := make([]string, 0, len(custom))
	for k := range custom {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		switch k {
		case keyTitle, keyUserName, keyPassword, keyNotes, keyNumber:
			// never shadow a standard string
			values = append(values, value("custom."+k, custom[k]))
		default:
			values = append(values, value(k, custom[k]))
		}
	}

	return gokeepasslib.Entry{
		UUID:   gokeepasslib.NewUUID(),
		Times:  times(),
		Values: values,
	}, nil
}
