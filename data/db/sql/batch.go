package sql

import (
	"context"

	core "matrixsql/data/db"
	"matrixsql/data/db/dialect"
	"matrixsql/logging"
)

type batchInsert struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table     string
	columns   []string
	threshold int
	rows      [][]any
	affected  int64
}

func (b *batchInsert) Columns(cols ...string) IBatchInsert {
	b.columns = cols
	return b
}

func (b *batchInsert) Add(ctx context.Context, vals ...any) error {
	if len(vals) == 0 {
		return nil
	}
	b.rows = append(b.rows, vals)
	if b.threshold > 0 && len(b.rows) >= b.threshold {
		_, err := b.Flush(ctx)
		return err
	}
	return nil
}

func (b *batchInsert) Flush(ctx context.Context) (int64, error) {
	if len(b.rows) == 0 {
		return 0, nil
	}

	ib := &insertBuilder{db: b.db, dialect: b.dialect, table: b.table, columns: b.columns, rows: b.rows}
	res, err := ib.Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// 部分驱动不报告影响行数，按提交的行数计
		n = int64(len(b.rows))
	}
	logging.GetLogger().Debug(ctx, "batch insert flushed",
		logging.String("table", b.table),
		logging.Int("rows", len(b.rows)),
		logging.Int64("affected", n),
	)

	b.rows = nil
	b.affected += n
	return n, nil
}

func (b *batchInsert) Pending() int    { return len(b.rows) }
func (b *batchInsert) Affected() int64 { return b.affected }
