// Package credentials provides the client-side persistence layer for
// credential records (table login_data).
//
// # Overview
//
// The package defines a Repository interface for CRUD and bulk operations on
// models.Credential. A SQLite-backed implementation (SQLiteRepository)
// persists data using a dbx.DBTX (either *sql.DB or *sql.Tx), so the same
// repository can run inside a transaction opened by dbx.WithTx.
//
// # Data Model
//
// Every string column holds field-cipher output (base64 nonce||ciphertext);
// the repository never sees plaintext. Ids are AUTOINCREMENT, so an id is
// never reused after deletion. Listings are ordered by last_modified DESC.
//
// Typical Usage
//
//	repo := credentials.NewSQLiteRepository(db)
//	id, _ := repo.Insert(ctx, &rec)
//	all, _ := repo.GetAll(ctx)
//	_ = repo.DeleteByID(ctx, id)
package credentials
