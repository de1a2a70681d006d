// Package repo 提供基于 data/orm 的通用仓储（DAO）。
//
// 仓储只依赖 orm.IOrm 契约；按列查询时先经 IModel.ColumnValue 转换，
// 因此使用类型适配器的列可以直接以领域值作为条件。
package repo

import (
	"context"

	"matrixsql/data/orm"
	"matrixsql/errors"
)

// Repo 实体 T 的通用仓储，ID 为主键类型。
type Repo[T any, ID comparable] struct {
	orm   orm.IOrm
	model orm.IModel
	pk    string
}

// Option 配置仓储
type Option func(*config)

type config struct {
	pk     string
	fields []orm.FieldMeta
}

// WithPrimaryKey 指定主键列，默认取字段声明中的主键，否则为 "id"
func WithPrimaryKey(column string) Option {
	return func(c *config) { c.pk = column }
}

// WithFields 附加字段声明，例如为某列指定类型适配器
func WithFields(fields ...orm.FieldMeta) Option {
	return func(c *config) { c.fields = append(c.fields, fields...) }
}

type modelRegistrar interface {
	RegisterModel(meta *orm.ModelMeta) (orm.IModel, error)
}

// New 创建仓储实例，模型声明无效时返回错误。
func New[T any, ID comparable](ormEngine orm.IOrm, tableName string, opts ...Option) (*Repo[T, ID], error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	meta := &orm.ModelMeta{
		Model:  new(T),
		Table:  tableName,
		Fields: cfg.fields,
	}
	var (
		model orm.IModel
		err   error
	)
	if reg, ok := ormEngine.(modelRegistrar); ok {
		model, err = reg.RegisterModel(meta)
	} else {
		model = ormEngine.Model(meta)
	}
	if err != nil {
		return nil, err
	}

	pk := cfg.pk
	if pk == "" {
		for _, f := range cfg.fields {
			if f.PrimaryKey && f.Column != "" {
				pk = f.Column
				break
			}
		}
	}
	if pk == "" {
		pk = "id"
	}
	if !isSafeFieldName(pk) {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "repo: unsafe primary key column %q", pk)
	}

	return &Repo[T, ID]{orm: ormEngine, model: model, pk: pk}, nil
}

// MustNew 同 New，失败时 panic
func MustNew[T any, ID comparable](ormEngine orm.IOrm, tableName string, opts ...Option) *Repo[T, ID] {
	r, err := New[T, ID](ormEngine, tableName, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Repo[T, ID]) query(ctx context.Context) *queryBuilder {
	return newQueryBuilder(r.model, ctx)
}

// Model 暴露底层模型。
func (r *Repo[T, ID]) Model() orm.IModel { return r.model }

// Orm 返回绑定的 ORM 引擎。
func (r *Repo[T, ID]) Orm() orm.IOrm { return r.orm }

// WithSession 返回绑定到事务会话的仓储副本
func (r *Repo[T, ID]) WithSession(s orm.IOrmSession) *Repo[T, ID] {
	return &Repo[T, ID]{orm: s, model: s.Model(r.model.Meta()), pk: r.pk}
}
