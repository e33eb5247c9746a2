// Package models defines client-side data models used by passvault.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrIncorrectCustomField = errors.New("custom field must be name=value")

// Credential is a single login record. Persisted rows hold ciphertext in
// every string field; values handed to callers by the services layer are
// plaintext. The JSON tags are the backup wire format.
type Credential struct {
	ID              int64  `json:"id"`
	ProjectName     string `json:"projectname"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Number          string `json:"number"`
	Notes           string `json:"notes"`
	CustomFieldJSON string `json:"customFieldJson"`
	// LastModified is milliseconds since the Unix epoch.
	LastModified int64 `json:"lastModified"`

	// Degraded reports that at least one field could not be decrypted and
	// holds a display-only marker instead of real plaintext.
	Degraded bool `json:"-"`
}

// Matches reports whether q is a case-insensitive substring of any of the
// six user fields. An empty query matches everything.
func (c Credential) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range []string{c.ProjectName, c.Username, c.Password, c.Number, c.Notes, c.CustomFieldJSON} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// CustomFields decodes CustomFieldJSON.
func (c Credential) CustomFields() (map[string]string, error) {
	return ParseCustomFields(c.CustomFieldJSON)
}

// ParseCustomFields decodes a JSON object of string values. Blank input
// yields an empty map.
func ParseCustomFields(s string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("parse custom fields: %w", err)
	}
	return out, nil
}

// EncodeCustomFields is the inverse of ParseCustomFields. An empty map
// encodes to "".
func EncodeCustomFields(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CustomFieldsFromLines parses "name=value" lines as typed in the CLI.
func CustomFieldsFromLines(lines []string) (map[string]string, error) {
	data := make(map[string]string, len(lines))
	for _, item := range lines {
		parts := strings.Split(item, "=")
		if len(parts) != 2 {
			return nil, ErrIncorrectCustomField
		}
		data[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return data, nil
}

// SortedFieldNames returns the keys of m in lexical order.
func SortedFieldNames(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Page is one window of a filtered credential listing.
type Page struct {
	Items  []Credential
	Total  int
	Offset int
	Limit  int
}
