// Package storage opens the on-disk vault: it takes an exclusive file lock,
// opens the SQLite database, applies the embedded migrations and exposes the
// repositories bound either to the database or to a running transaction.
package storage
