// Package orm 定义 ORM 运行时的契约。
//
// 运行时（data/orm/basic）负责把结构体字段映射到列；
// 声明了类型适配器的列在读写时经过 usertype 完成值转换。
package orm

import (
	"context"
	"database/sql"

	"matrixsql/data/db"
)

// IOrm 表示 ORM 适配器入口。
type IOrm interface {
	// Capabilities 返回适配器支持的能力集合。
	Capabilities() Capabilities
	// WithContext 派生绑定上下文的 Orm 会话。
	WithContext(ctx context.Context) IOrm
	// Model 返回指定模型的操作入口。
	Model(meta *ModelMeta) IModel
	// Begin 开启事务会话。
	Begin(ctx context.Context) (IOrmSession, error)
	// BeginTx 开启带选项的事务会话。
	BeginTx(ctx context.Context, opts *sql.TxOptions) (IOrmSession, error)
	// Database 返回适配器绑定的通用数据库（可选，可为 nil）。
	Database() db.IDatabase
	// Raw 返回底层实现，便于特殊场景透传。
	Raw() any
}

// IOrmSession 表示事务会话。Close 时未提交的事务自动回滚。
type IOrmSession interface {
	IOrm
	Commit() error
	Rollback() error
	Close() error
}

// IModel 封装模型级别的基础操作。
type IModel interface {
	Meta() *ModelMeta
	Capabilities() Capabilities

	First(ctx context.Context, dest any, opts ...QueryOption) error
	Find(ctx context.Context, dest any, opts ...QueryOption) error
	Count(ctx context.Context, opts ...QueryOption) (int64, error)
	// Load 按主键加载，启用二级缓存时优先读取缓存
	Load(ctx context.Context, dest any, id any) error

	Create(ctx context.Context, entities ...any) error
	// Save 根据 QueryOptions 执行更新，通常结合主键或条件。
	Save(ctx context.Context, entity any, opts ...QueryOption) error
	UpdateValues(ctx context.Context, values map[string]any, opts ...QueryOption) error
	Delete(ctx context.Context, opts ...QueryOption) error

	// ColumnValue 将领域值转换为该列的绑定参数，用于自定义条件
	ColumnValue(column string, value any) (any, error)
	// ParseColumn 将文本形式还原为该列的领域值，例如按自然键查找
	ParseColumn(column, text string) (any, error)
	// ColumnLiteral 将领域值渲染为该列的 SQL 字面量
	ColumnLiteral(column string, value any) (string, error)
	// HasColumn 判断模型是否映射了该列（列名或字段名）
	HasColumn(column string) bool
}
