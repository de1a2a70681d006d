package drivers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "matrixsql/data/db"
	"matrixsql/errors"
)

func TestDriverName(t *testing.T) {
	tests := map[string]string{
		"":           "sqlite",
		"sqlite3":    "sqlite",
		"Postgres":   "pgx",
		"postgresql": "pgx",
		"mysql":      "mysql",
	}
	for in, want := range tests {
		got, err := DriverName(core.DBConfig{Driver: in})
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := DriverName(core.DBConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestDSN(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		dsn, err := DSN(core.DBConfig{Driver: "mysql", DSN: "custom"})
		require.NoError(t, err)
		assert.Equal(t, "custom", dsn)
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn, err := DSN(core.DBConfig{Driver: "sqlite"})
		require.NoError(t, err)
		assert.Equal(t, ":memory:", dsn)
	})

	t.Run("mysql", func(t *testing.T) {
		dsn, err := DSN(core.DBConfig{
			Driver: "mysql", Host: "db", Database: "app",
			Username: "root", Password: "secret", ParseTime: true, Charset: "utf8mb4",
		})
		require.NoError(t, err)
		assert.Contains(t, dsn, "root:secret@tcp(db:3306)/app")
		assert.Contains(t, dsn, "parseTime=true")
		assert.Contains(t, dsn, "charset=utf8mb4")
	})

	t.Run("mysql bad location", func(t *testing.T) {
		_, err := DSN(core.DBConfig{Driver: "mysql", Location: "Nowhere/Invalid"})
		require.Error(t, err)
	})

	t.Run("postgres", func(t *testing.T) {
		dsn, err := DSN(core.DBConfig{
			Driver: "postgres", Host: "pg", Port: 6543, Database: "app",
			Username: "u", Password: "p", SSLMode: "disable",
		})
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@pg:6543/app?sslmode=disable", dsn)
	})
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(core.DBConfig{Driver: "sqlite"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite", db.GetDialectName())
	var n int
	require.NoError(t, db.QueryRow(context.Background(), "SELECT 1").Scan(&n))
	assert.Equal(t, 1, n)
}
