// Package sql 提供在 IDatabase 之上的 SQL 构建与执行。
//
// 构建器只生成带 ? 占位符的语句，占位符转换由 IDatabase 实现按方言完成。
package sql

import (
	"context"
	"database/sql"

	core "matrixsql/data/db"
	"matrixsql/data/db/dialect"
)

// ISql 提供统一的 SQL 构建与执行接口。
type ISql interface {
	Select(columns ...string) ISelectBuilder
	InsertInto(table string) IInsertBuilder
	Update(table string) IUpdateBuilder
	DeleteFrom(table string) IDeleteBuilder
	// BatchInsertInto 创建按行累积、达到 threshold 行自动执行的批量插入；threshold <= 0 表示只在 Flush 时执行
	BatchInsertInto(table string, threshold int) IBatchInsert

	// Dialect 返回推断出的方言
	Dialect() dialect.Dialect
	// GetDB 返回底层 IDatabase
	GetDB() core.IDatabase
}

// ISelectBuilder 构建 SELECT 语句。
type ISelectBuilder interface {
	From(table string) ISelectBuilder
	Where(cond string, args ...any) ISelectBuilder
	And(cond string, args ...any) ISelectBuilder
	Or(cond string, args ...any) ISelectBuilder
	GroupBy(cols ...string) ISelectBuilder
	OrderBy(expr string) ISelectBuilder
	Limit(n int) ISelectBuilder
	Offset(n int) ISelectBuilder
	ForUpdate() ISelectBuilder
	Build() (query string, args []any)
	Query(ctx context.Context) (core.IRows, error)
	QueryRow(ctx context.Context) core.IRow
}

// IInsertBuilder 构建 INSERT 语句。
type IInsertBuilder interface {
	Columns(cols ...string) IInsertBuilder
	Values(vals ...any) IInsertBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// IUpdateBuilder 构建 UPDATE 语句。
type IUpdateBuilder interface {
	Set(column string, val any) IUpdateBuilder
	// SetMap 按列名排序追加，保证生成的语句稳定
	SetMap(values map[string]any) IUpdateBuilder
	// SetExpr 直接追加原始 SET 片段（例如 "version = version + 1"），
	// 由调用方保证表达式合法性与参数顺序安全。
	SetExpr(expr string, args ...any) IUpdateBuilder
	Where(cond string, args ...any) IUpdateBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// IDeleteBuilder 构建 DELETE 语句。
type IDeleteBuilder interface {
	Where(cond string, args ...any) IDeleteBuilder
	Limit(n int) IDeleteBuilder
	Build() (query string, args []any)
	Exec(ctx context.Context) (sql.Result, error)
}

// IBatchInsert 累积多行 INSERT，达到阈值时自动执行
type IBatchInsert interface {
	Columns(cols ...string) IBatchInsert
	// Add 追加一行；累计行数达到阈值时立即执行
	Add(ctx context.Context, vals ...any) error
	// Flush 执行剩余的行，返回本次影响的行数
	Flush(ctx context.Context) (int64, error)
	// Pending 尚未执行的行数
	Pending() int
	// Affected 累计影响的行数
	Affected() int64
}

type sqlImpl struct {
	db      core.IDatabase
	dialect dialect.Dialect
}

// New 创建 ISql 实例。
func New(db core.IDatabase) ISql {
	return &sqlImpl{
		db:      db,
		dialect: dialect.FromDatabase(db),
	}
}

func (s *sqlImpl) Select(columns ...string) ISelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &selectBuilder{
		db:      s.db,
		dialect: s.dialect,
		cols:    columns,
	}
}

func (s *sqlImpl) InsertInto(table string) IInsertBuilder {
	return &insertBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) Update(table string) IUpdateBuilder {
	return &updateBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) DeleteFrom(table string) IDeleteBuilder {
	return &deleteBuilder{
		db:      s.db,
		dialect: s.dialect,
		table:   table,
	}
}

func (s *sqlImpl) BatchInsertInto(table string, threshold int) IBatchInsert {
	return &batchInsert{
		db:        s.db,
		dialect:   s.dialect,
		table:     table,
		threshold: threshold,
	}
}

func (s *sqlImpl) Dialect() dialect.Dialect { return s.dialect }

func (s *sqlImpl) GetDB() core.IDatabase {
	return s.db
}
