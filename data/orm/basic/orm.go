// Package basic 是基于 data/db 与 data/db/sql 的轻量 IOrm 实现。
//
// 结构体字段按标签映射到列；带 `usertype:"name,k=v"` 标签或 FieldMeta.Type 的列
// 经由 usertype 适配器读写，Orm 自身作为 usertype.Session 提供基础值读写器。
package basic

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	dbcore "matrixsql/data/db"
	"matrixsql/data/db/dialect"
	dbsql "matrixsql/data/db/sql"
	"matrixsql/data/orm"
	"matrixsql/data/orm/keygen"
	"matrixsql/data/orm/l2"
	"matrixsql/errors"
	"matrixsql/logging"
	"matrixsql/usertype"
)

const defaultBatchSize = 100

// Orm 实现 orm.IOrm 与 usertype.Session。
type Orm struct {
	db   dbcore.IDatabase
	sql  dbsql.ISql
	caps orm.Capabilities

	types     *usertype.Registry
	basics    *usertype.BasicTypeRegistry
	region    l2.Region
	batchSize int
	keys      *keygen.Generator

	// 事务会话与父 Orm 共享结构体元信息
	metas *metaCache
}

type metaKey struct {
	typ  reflect.Type
	meta *orm.ModelMeta
}

type metaCache struct {
	mu      sync.RWMutex
	structs map[metaKey]*structMeta
}

// Option 配置 Orm
type Option func(*Orm)

// WithRegistry 指定类型适配器注册表，默认 usertype.DefaultRegistry()
func WithRegistry(r *usertype.Registry) Option {
	return func(o *Orm) { o.types = r }
}

// WithBasicTypes 指定基础值读写器
func WithBasicTypes(b *usertype.BasicTypeRegistry) Option {
	return func(o *Orm) { o.basics = b }
}

// WithCache 启用二级缓存
func WithCache(region l2.Region) Option {
	return func(o *Orm) { o.region = region }
}

// WithBatchSize 多实体 Create 时每批插入的行数
func WithBatchSize(n int) Option {
	return func(o *Orm) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithKeyGenerator 指定 default:snowflake 主键使用的生成器，默认节点为 (1, 1)
func WithKeyGenerator(g *keygen.Generator) Option {
	return func(o *Orm) {
		if g != nil {
			o.keys = g
		}
	}
}

// New 创建一个基于指定 IDatabase 的 Orm。
func New(db dbcore.IDatabase, opts ...Option) *Orm {
	o := &Orm{
		db:        db,
		sql:       dbsql.New(db),
		types:     usertype.DefaultRegistry(),
		basics:    usertype.NewBasicTypeRegistry(),
		batchSize: defaultBatchSize,
		metas:     &metaCache{structs: make(map[metaKey]*structMeta)},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.keys == nil {
		o.keys = keygen.MustNew(1, 1)
	}
	o.caps = orm.NewCapabilities(
		orm.CapabilityBasicCRUD,
		orm.CapabilityQuery,
		orm.CapabilityBatchWrite,
		orm.CapabilityTransaction,
		orm.CapabilityUserTypes,
	)
	if o.region != nil {
		o.caps = o.caps.With(orm.CapabilitySecondLevelCache)
	}
	return o
}

// derive 以新的数据库句柄复制 Orm，保留配置与元信息缓存
func (o *Orm) derive(db dbcore.IDatabase) *Orm {
	cp := *o
	cp.db = db
	cp.sql = dbsql.New(db)
	return &cp
}

// Capabilities 返回适配器支持的能力。
func (o *Orm) Capabilities() orm.Capabilities { return o.caps }

// BasicTypes 实现 usertype.Session
func (o *Orm) BasicTypes() *usertype.BasicTypeRegistry { return o.basics }

// Registry 返回类型适配器注册表
func (o *Orm) Registry() *usertype.Registry { return o.types }

// WithContext 当前实现不在 Orm 上持有 context，直接返回自身即可。
func (o *Orm) WithContext(ctx context.Context) orm.IOrm { // nolint: revive
	_ = ctx
	return o
}

// Model 返回模型级操作入口，模型声明无效时 panic；需要错误返回时使用 RegisterModel。
func (o *Orm) Model(meta *orm.ModelMeta) orm.IModel {
	m, err := o.RegisterModel(meta)
	if err != nil {
		panic(err)
	}
	return m
}

// RegisterModel 校验模型声明并解析其中的类型适配器。
func (o *Orm) RegisterModel(meta *orm.ModelMeta) (orm.IModel, error) {
	if meta == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "basic.Orm: ModelMeta cannot be nil")
	}

	table := meta.Table
	if table == "" && meta.Model != nil {
		// 模型实现了 TableName() 时使用其返回值
		if tn, ok := tryGetTableName(meta.Model); ok {
			table = tn
		}
	}
	if table == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "basic.Orm: table name is empty")
	}

	m := &model{orm: o, meta: meta, table: table}
	if meta.Model != nil {
		sm, err := o.structMetaFor(reflect.TypeOf(meta.Model), meta)
		if err != nil {
			return nil, errors.WrapError(err, errors.GetErrorCode(err),
				fmt.Sprintf("basic.Orm: register model %s", table))
		}
		m.sm = sm
	}
	return m, nil
}

// Begin 开启事务会话。
func (o *Orm) Begin(ctx context.Context) (orm.IOrmSession, error) {
	tx, err := o.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &session{Orm: o.derive(tx), tx: tx}, nil
}

// BeginTx 开启带选项的事务会话。
func (o *Orm) BeginTx(ctx context.Context, opts *sql.TxOptions) (orm.IOrmSession, error) {
	tx, err := o.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &session{Orm: o.derive(tx), tx: tx}, nil
}

// Database 返回底层数据库抽象。
func (o *Orm) Database() dbcore.IDatabase { return o.db }

// Raw 返回底层实现（此处为 dbcore.IDatabase）。
func (o *Orm) Raw() any { return o.db }

func (o *Orm) dialect() dialect.Dialect { return o.sql.Dialect() }

// logSQL 以内联字面量的形式输出调试日志
func (o *Orm) logSQL(ctx context.Context, query string, args []any) {
	logger := logging.GetLogger()
	if lv, ok := logger.(interface{ Enabled(logging.Level) bool }); ok && !lv.Enabled(logging.DebugLevel) {
		return
	}
	d := o.dialect()
	literals := make([]string, len(args))
	for i, a := range args {
		literals[i] = d.ValueLiteral(a)
	}
	logger.Debug(ctx, "sql", logging.String("statement", dialect.Interpolate(query, literals)))
}

func (o *Orm) query(ctx context.Context, query string, args []any) (dbcore.IRows, error) {
	o.logSQL(ctx, query, args)
	rows, err := o.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "query")
	}
	return rows, nil
}

func (o *Orm) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	o.logSQL(ctx, query, args)
	res, err := o.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "exec")
	}
	return res, nil
}

// session 实现 IOrmSession，委托给内部 Orm，并持有事务以便 Commit/Rollback。
type session struct {
	*Orm
	tx dbcore.ITransaction
}

// Commit 提交事务。
func (s *session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("basic.session: tx is nil")
	}
	return s.tx.Commit()
}

// Rollback 回滚事务。
func (s *session) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("basic.session: tx is nil")
	}
	return s.tx.Rollback()
}

// Close 未提交时回滚。
func (s *session) Close() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Close()
}
