package basic

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dbsql "matrixsql/data/db/sql"
	"matrixsql/data/orm"
	"matrixsql/errors"
	"matrixsql/usertype"
)

// model 实现 orm.IModel
type model struct {
	orm   *Orm
	meta  *orm.ModelMeta
	table string
	// sm 为 meta.Model 的结构体元信息，未声明 Model 时为 nil
	sm *structMeta
}

func (m *model) Meta() *orm.ModelMeta           { return m.meta }
func (m *model) Capabilities() orm.Capabilities { return m.orm.caps }

func (m *model) selectBuilder(qo orm.QueryOptions, columns ...string) dbsql.ISelectBuilder {
	builder := m.orm.sql.Select(columns...).From(buildTableExpr(m.table, qo.Joins))
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if len(qo.GroupBy) > 0 {
		builder = builder.GroupBy(qo.GroupBy...)
	}
	if len(qo.OrderBy) > 0 {
		builder = builder.OrderBy(buildOrderByExpr(qo.OrderBy))
	}
	if qo.Offset > 0 {
		builder = builder.Offset(qo.Offset)
	}
	if qo.ForUpdate {
		builder = builder.ForUpdate()
	}
	return builder
}

// First 查询单条记录。
func (m *model) First(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	builder := m.selectBuilder(qo, qo.Select...)
	// First 至少限制一条
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	} else {
		builder = builder.Limit(1)
	}

	q, args := builder.Build()
	rows, err := m.orm.query(ctx, q, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return orm.ErrNotFound
	}
	return m.orm.scanRowsIntoDest(rows, dest, m.meta)
}

// Find 查询多条记录。
func (m *model) Find(ctx context.Context, dest any, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	builder := m.selectBuilder(qo, qo.Select...)
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	}

	q, args := builder.Build()
	rows, err := m.orm.query(ctx, q, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	return m.orm.scanRowsIntoDest(rows, dest, m.meta)
}

// Count 统计数量（忽略 Select/GroupBy，只做简单 COUNT(*)）。
func (m *model) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	qo := orm.CollectQueryOptions(opts...)
	builder := m.orm.sql.Select("COUNT(*)").From(buildTableExpr(m.table, qo.Joins))
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}

	q, args := builder.Build()
	m.orm.logSQL(ctx, q, args)
	var count int64
	if err := m.orm.db.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Load 按主键加载；启用二级缓存时先查缓存，未命中则查询并写回。
func (m *model) Load(ctx context.Context, dest any, id any) error {
	v, sm, err := m.structDest(dest)
	if err != nil {
		return err
	}
	if sm.pk == nil {
		return errors.NewErrorf(errors.ErrCodeInvalidInput, "basic.Model.Load: %s has no primary key", sm.typ)
	}

	key := cacheKey(m.table, id)
	if m.orm.region != nil && m.cachedLoad(ctx, sm, v, key) {
		return nil
	}

	arg, err := m.orm.bindValue(sm.pk, id)
	if err != nil {
		return err
	}
	if err := m.First(ctx, dest, orm.WithWhere(sm.pk.Column+" = ?", arg)); err != nil {
		return err
	}
	if m.orm.region != nil {
		m.cacheStore(ctx, sm, v, key)
	}
	return nil
}

// Create 插入记录；多个实体时按批次插入。
func (m *model) Create(ctx context.Context, entities ...any) error {
	if len(entities) == 0 {
		return nil
	}

	// 以第一个实体的类型构建字段映射
	sm, err := m.metaFor(entities[0])
	if err != nil {
		return err
	}
	cols, insertFields := sm.insertableColumns()
	if len(cols) == 0 {
		return fmt.Errorf("basic.Model.Create: no insertable columns for %T", entities[0])
	}

	values := make([]reflect.Value, 0, len(entities))
	rows := make([][]any, 0, len(entities))
	for _, e := range entities {
		val := reflect.Indirect(reflect.ValueOf(e))
		if !val.IsValid() || val.Type() != sm.typ {
			return fmt.Errorf("basic.Model.Create: entity must be %s or *%s, got %T", sm.typ, sm.typ, e)
		}
		if err := m.generateKeys(sm, val); err != nil {
			return err
		}
		row, err := m.rowValues(insertFields, val)
		if err != nil {
			return err
		}
		values = append(values, val)
		rows = append(rows, row)
	}

	if len(rows) == 1 {
		q, args := m.orm.sql.InsertInto(m.table).Columns(cols...).Values(rows[0]...).Build()
		res, err := m.orm.exec(ctx, q, args)
		if err != nil {
			return err
		}
		setInsertID(sm, values[0], res)
		return nil
	}

	batch := m.orm.sql.BatchInsertInto(m.table, m.orm.batchSize).Columns(cols...)
	for _, row := range rows {
		if err := batch.Add(ctx, row...); err != nil {
			return err
		}
	}
	_, err = batch.Flush(ctx)
	return err
}

// Save 更新实体的非主键列；未指定条件时按主键更新，并使对应缓存失效。
func (m *model) Save(ctx context.Context, entity any, opts ...orm.QueryOption) error {
	val := reflect.Indirect(reflect.ValueOf(entity))
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return fmt.Errorf("basic.Model.Save: entity must be struct or *struct, got %T", entity)
	}
	sm, err := m.metaFor(entity)
	if err != nil {
		return err
	}

	qo := orm.CollectQueryOptions(opts...)
	builder := m.orm.sql.Update(m.table)
	for _, fi := range sm.fields {
		if fi.PrimaryKey {
			continue
		}
		fv := fieldByIndexSafe(val, fi.Index)
		if !fv.IsValid() {
			continue
		}
		arg, err := m.orm.bindValue(fi, fv.Interface())
		if err != nil {
			return err
		}
		builder = builder.Set(fi.Column, arg)
	}

	byKey := len(qo.Where) == 0
	var id any
	if byKey {
		if sm.pk == nil {
			return fmt.Errorf("basic.Model.Save: %s has no primary key and no condition", sm.typ)
		}
		id = plainValue(fieldByIndexSafe(val, sm.pk.Index))
		arg, err := m.orm.bindValue(sm.pk, id)
		if err != nil {
			return err
		}
		builder = builder.Where(sm.pk.Column+" = ?", arg)
	}
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}

	q, args := builder.Build()
	if _, err := m.orm.exec(ctx, q, args); err != nil {
		return err
	}
	if byKey {
		return m.evict(ctx, cacheKey(m.table, id))
	}
	return m.evictAll(ctx)
}

// UpdateValues 根据 values 与 QueryOptions 进行更新，适配器列的值经转换后绑定。
func (m *model) UpdateValues(ctx context.Context, values map[string]any, opts ...orm.QueryOption) error {
	if len(values) == 0 {
		return nil
	}

	bound := make(map[string]any, len(values))
	for col, v := range values {
		arg := v
		if m.sm != nil {
			if fi := m.sm.columnToInfo[col]; fi != nil {
				var err error
				if arg, err = m.orm.bindValue(fi, v); err != nil {
					return err
				}
			}
		}
		bound[col] = arg
	}

	qo := orm.CollectQueryOptions(opts...)
	builder := m.orm.sql.Update(m.table).SetMap(bound)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}

	q, args := builder.Build()
	if _, err := m.orm.exec(ctx, q, args); err != nil {
		return err
	}
	return m.evictAll(ctx)
}

// Delete 根据 QueryOptions 删除记录。
func (m *model) Delete(ctx context.Context, opts ...orm.QueryOption) error {
	qo := orm.CollectQueryOptions(opts...)
	if len(qo.Where) == 0 {
		return fmt.Errorf("basic.Orm: delete without where is not allowed")
	}

	builder := m.orm.sql.DeleteFrom(m.table)
	for _, w := range qo.Where {
		builder = builder.Where(w.Expr, w.Args...)
	}
	if qo.Limit > 0 {
		builder = builder.Limit(qo.Limit)
	}

	q, args := builder.Build()
	if _, err := m.orm.exec(ctx, q, args); err != nil {
		return err
	}
	return m.evictAll(ctx)
}

// ColumnValue 将领域值转换为该列的绑定参数。
func (m *model) ColumnValue(column string, value any) (any, error) {
	fi, err := m.column(column)
	if err != nil {
		return nil, err
	}
	return m.orm.bindValue(fi, value)
}

// ParseColumn 将文本还原为该列的领域值。
func (m *model) ParseColumn(column, text string) (any, error) {
	fi, err := m.column(column)
	if err != nil {
		return nil, err
	}
	if fi.userType != nil {
		return fi.userType.Parse(text)
	}
	return parsePlain(fi.Type, text)
}

// ColumnLiteral 将领域值渲染为该列的 SQL 字面量。
func (m *model) ColumnLiteral(column string, value any) (string, error) {
	fi, err := m.column(column)
	if err != nil {
		return "", err
	}
	d := m.orm.dialect()
	if fi.userType == nil {
		return d.ValueLiteral(value), nil
	}
	lit, err := fi.userType.Literal(value)
	if err != nil {
		return "", err
	}
	return d.Literal(lit, fi.userType.SQLType().IsText()), nil
}

// HasColumn 判断模型是否映射了该列。
func (m *model) HasColumn(column string) bool {
	_, err := m.column(column)
	return err == nil
}

// column 按列名或字段名查找模型字段
func (m *model) column(name string) (*fieldInfo, error) {
	if m.sm == nil {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "basic.Model: %s declares no model struct", m.table)
	}
	if fi, ok := m.sm.columnToInfo[name]; ok {
		return fi, nil
	}
	for _, fi := range m.sm.fields {
		if fi.Name == name {
			return fi, nil
		}
	}
	return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "basic.Model: %s has no column %q", m.table, name)
}

func (m *model) metaFor(entity any) (*structMeta, error) {
	return m.orm.metaForType(reflect.TypeOf(entity), m.meta)
}

// structDest 校验 dest 为 *struct 并返回其元信息
func (m *model) structDest(dest any) (reflect.Value, *structMeta, error) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("basic.Model: dest must be non-nil *struct, got %T", dest)
	}
	sm, err := m.metaFor(dest)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return rv.Elem(), sm, nil
}

func (m *model) rowValues(fields []*fieldInfo, val reflect.Value) ([]any, error) {
	row := make([]any, len(fields))
	for i, fi := range fields {
		fv := fieldByIndexSafe(val, fi.Index)
		if !fv.IsValid() {
			continue
		}
		arg, err := m.orm.bindValue(fi, fv.Interface())
		if err != nil {
			return nil, err
		}
		row[i] = arg
	}
	return row, nil
}

// generateKeys 为空的 UUID 主键或为零的雪花主键生成值
func (m *model) generateKeys(sm *structMeta, val reflect.Value) error {
	for _, fi := range sm.fields {
		if !fi.GenerateUUID && !fi.GenerateSnowflake {
			continue
		}
		fv := fieldByIndexSafe(val, fi.Index)
		if !fv.IsValid() || !fv.IsZero() {
			continue
		}
		if !fv.CanSet() {
			return errors.NewErrorf(errors.ErrCodeInvalidInput,
				"basic.Model.Create: pass *%s to generate key %s", sm.typ, fi.Column)
		}
		if fi.GenerateUUID {
			fv.SetString(uuid.NewString())
			continue
		}
		id, err := m.orm.keys.NextID()
		if err != nil {
			return err
		}
		if fv.Kind() == reflect.Uint64 {
			fv.SetUint(uint64(id))
		} else {
			fv.SetInt(id)
		}
	}
	return nil
}

// setInsertID 回填单条插入的自增主键
func setInsertID(sm *structMeta, val reflect.Value, res sql.Result) {
	if sm.pk == nil || !sm.pk.AutoIncrement {
		return
	}
	fv := fieldByIndexSafe(val, sm.pk.Index)
	if !fv.IsValid() || !fv.CanSet() {
		return
	}
	switch fv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Int() != 0 {
			return
		}
		// 驱动不支持 LastInsertId 时保持原值
		if id, err := res.LastInsertId(); err == nil {
			fv.SetInt(id)
		}
	}
}

// plainValue 取字段值并解引用指针
func plainValue(fv reflect.Value) any {
	if !fv.IsValid() {
		return nil
	}
	for fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}

// parsePlain 将文本解析为普通列字段的类型
func parsePlain(t reflect.Type, text string) (any, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	out := reflect.New(t).Elem()
	var err error
	switch {
	case isTimeType(t):
		var ts time.Time
		if ts, err = time.Parse(time.RFC3339Nano, text); err == nil {
			out.Set(reflect.ValueOf(ts))
		}
	case t.Kind() == reflect.String:
		out.SetString(text)
	case t.Kind() == reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(text); err == nil {
			out.SetBool(b)
		}
	case out.CanInt():
		var n int64
		if n, err = strconv.ParseInt(strings.TrimSpace(text), 10, t.Bits()); err == nil {
			out.SetInt(n)
		}
	case out.CanUint():
		var n uint64
		if n, err = strconv.ParseUint(strings.TrimSpace(text), 10, t.Bits()); err == nil {
			out.SetUint(n)
		}
	case out.CanFloat():
		var f float64
		if f, err = strconv.ParseFloat(strings.TrimSpace(text), t.Bits()); err == nil {
			out.SetFloat(f)
		}
	default:
		return nil, errors.NewErrorf(errors.ErrCodeUnsupported, "basic.Model: cannot parse text into %s", t)
	}
	if err != nil {
		return nil, usertype.NewFormatError(text, text, t.String(), err)
	}
	return out.Interface(), nil
}

func buildTableExpr(base string, joins []orm.Join) string {
	if len(joins) == 0 {
		return base
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, j := range joins {
		sb.WriteRune(' ')
		sb.WriteString(j.Expr)
	}
	return sb.String()
}

func buildOrderByExpr(orders []orm.OrderBy) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Column == "" {
			continue
		}
		if o.Desc {
			parts = append(parts, o.Column+" DESC")
		} else {
			parts = append(parts, o.Column+" ASC")
		}
	}
	return strings.Join(parts, ", ")
}
