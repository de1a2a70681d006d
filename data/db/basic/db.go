package basic

import (
	"context"
	"database/sql"
	"time"

	core "matrixsql/data/db"
	"matrixsql/data/db/dialect"
	"matrixsql/errors"
	"matrixsql/logging"
)

// DB 基于 database/sql 的实现，满足 core.IDatabase 抽象
type DB struct {
	db      *sql.DB
	driver  string
	dialect dialect.Dialect
}

// New 根据 core.DBConfig 创建数据库实例
//
// 调用方必须确保所配置的 Driver 已通过空导入注册（通常导入 data/db/drivers）。
// config.DSN 为空时使用 config.Database 作为 DSN；需要按连接字段组装时使用 drivers.Open。
func New(config core.DBConfig) (core.IDatabase, error) {
	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}
	dsn := config.DSN
	if dsn == "" {
		dsn = config.Database
	}
	return Open(driver, dsn, config)
}

// Open 使用给定驱动与 DSN 打开连接，应用连接池配置并做可用性检查
func Open(driver, dsn string, config core.DBConfig) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeConfiguration, "open database "+driver)
	}

	// 连接池配置（可选）
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleTime) * time.Second)
	}

	// 基础可用性检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "ping database "+driver)
	}

	logging.GetLogger().Debug(ctx, "database opened", logging.String("driver", driver))
	return Wrap(db, driver), nil
}

// Wrap 包装已有的 *sql.DB
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{db: db, driver: driver, dialect: dialect.New(driver)}
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)}
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	return d.BeginTx(ctx, nil)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{db: d.db, tx: tx, dialect: d.dialect}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// GetDialectName 实现 core.IDialectNameProvider 接口，返回底层 driver 名
func (d *DB) GetDialectName() string {
	return d.driver
}

// MustExecDDL 辅助：执行 DDL（用于测试环境）
func (d *DB) MustExecDDL(stmt string) error {
	if d.db == nil {
		return errors.NewError(errors.ErrCodeInternal, "db is nil")
	}
	_, err := d.db.Exec(stmt)
	return err
}
