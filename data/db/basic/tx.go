package basic

import (
	"context"
	"database/sql"
	stdErrors "errors"

	core "matrixsql/data/db"
	"matrixsql/data/db/dialect"
	"matrixsql/errors"
	"matrixsql/logging"
)

// Tx 事务实现，委托给 *sql.Tx，同时实现 core.IDatabase 以便透传给需要 DB 的接口。
//
// Close 时若事务既未提交也未回滚则自动回滚，配合 defer tx.Close() 使用。
type Tx struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect dialect.Dialect
	done    bool
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := t.tx.QueryContext(ctx, t.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)}
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// 嵌套事务：当前 basic.Tx 明确不支持嵌套事务，调用方应在上层协调事务边界。
func (t *Tx) Begin(ctx context.Context) (core.ITransaction, error) {
	return nil, errors.NewError(errors.ErrCodeUnsupported, "basic.Tx: nested transactions are not supported")
}

func (t *Tx) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	return t.Begin(ctx)
}

func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }
func (t *Tx) Raw() any                       { return t.tx }

// Close 自动回滚未完成的事务
func (t *Tx) Close() error {
	if t.done {
		return nil
	}
	logging.GetLogger().Warn(context.Background(), "transaction closed without commit, rolling back")
	err := t.Rollback()
	if stdErrors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	t.done = true
	return t.tx.Rollback()
}

// GetDialectName 实现 core.IDialectNameProvider，便于在事务上下文中复用方言能力。
func (t *Tx) GetDialectName() string {
	return string(t.dialect.Name())
}
