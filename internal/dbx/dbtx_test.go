package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func itemCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func insertItem(ctx context.Context, tx DBTX, name string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO items(name) VALUES (?)`, name)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := openMemDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertItem(ctx, tx, "a"); err != nil {
			return err
		}
		return insertItem(ctx, tx, "b")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, itemCount(t, db))
}

func TestWithTx_FnErrorRollsBack(t *testing.T) {
	db := openMemDB(t)
	sentinel := errors.New("stop")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertItem(ctx, tx, "a"))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, itemCount(t, db))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openMemDB(t)

	assert.PanicsWithValue(t, "halt", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertItem(ctx, tx, "a"))
			panic("halt")
		})
	})
	assert.Equal(t, 0, itemCount(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openMemDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO items`).WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return insertItem(ctx, tx, "a")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackErrorJoined(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel := errors.New("stop")
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("io"))

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "rollback")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAffectedOne(t *testing.T) {
	require.NoError(t, AffectedOne(sqlmock.NewResult(0, 1)))
	require.ErrorIs(t, AffectedOne(sqlmock.NewResult(0, 0)), common.ErrorNotFound)
	require.Error(t, AffectedOne(sqlmock.NewResult(0, 3)))
	require.Error(t, AffectedOne(sqlmock.NewErrorResult(errors.New("driver"))))
}
