package basic

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "matrixsql/data/db"
	"matrixsql/errors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:", core.DBConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.MustExecDDL(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`))
	return db
}

func count(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(), "SELECT COUNT(*) FROM items").Scan(&n))
	return n
}

func TestNew_DefaultsToSQLite(t *testing.T) {
	db, err := New(core.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping(context.Background()))

	p, ok := db.(core.IDialectNameProvider)
	require.True(t, ok)
	assert.Equal(t, "sqlite", p.GetDialectName())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("nope", "", core.DBConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestQueryAndExec(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	res, err := db.Exec(ctx, "INSERT INTO items (id, name) VALUES (?, ?)", 1, "a")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(1), n)

	rows, err := db.Query(ctx, "SELECT id, name FROM items")
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	require.True(t, rows.Next())
	var id int
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	assert.Equal(t, "a", name)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())

	row := db.QueryRow(ctx, "SELECT name FROM items WHERE id = ?", 2)
	assert.ErrorIs(t, row.Scan(&name), sql.ErrNoRows)
}

func TestTx_CommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO items (id, name) VALUES (?, ?)", 1, "a")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Close())
	assert.Equal(t, 1, count(t, db))

	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO items (id, name) VALUES (?, ?)", 2, "b")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, 1, count(t, db))
}

func TestTx_CloseRollsBackUnfinished(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	func() {
		tx, err := db.Begin(ctx)
		require.NoError(t, err)
		defer tx.Close()
		_, err = tx.Exec(ctx, "INSERT INTO items (id, name) VALUES (?, ?)", 3, "c")
		require.NoError(t, err)
	}()

	assert.Equal(t, 0, count(t, db))
}

func TestTx_NestedUnsupported(t *testing.T) {
	db := openTestDB(t)
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Close()

	_, err = tx.Begin(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeUnsupported))
}
