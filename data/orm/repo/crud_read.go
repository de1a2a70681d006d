package repo

import (
	"context"
	stdErrors "errors"
	"reflect"
	"strings"

	"matrixsql/data/orm"
	"matrixsql/errors"
)

func notFoundOr(err error, code errors.ErrorCode, msg string) error {
	if stdErrors.Is(err, orm.ErrNotFound) {
		return errors.NewError(errors.ErrCodeNotFound, "record not found")
	}
	return errors.WrapError(err, code, msg)
}

// Get 按主键获取，启用二级缓存时优先命中缓存
func (r *Repo[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	entity := new(T)
	if err := r.model.Load(ctx, entity, id); err != nil {
		return nil, notFoundOr(err, errors.ErrCodeDatabase, "failed to load record")
	}
	return entity, nil
}

// Exists 判断主键对应的记录是否存在
func (r *Repo[T, ID]) Exists(ctx context.Context, id ID) (bool, error) {
	arg, err := r.model.ColumnValue(r.pk, id)
	if err != nil {
		return false, err
	}
	count, err := r.query(ctx).Column(r.pk, arg).Count()
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeDatabase, "failed to check record existence")
	}
	return count > 0, nil
}

// FindAll 获取全部记录，可附加排序、分页等选项
func (r *Repo[T, ID]) FindAll(ctx context.Context, opts ...orm.QueryOption) ([]*T, error) {
	var entities []*T
	if err := r.model.Find(ctx, &entities, opts...); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "failed to list records")
	}
	return entities, nil
}

// FindAllByIDs 按主键列表逐个加载，结果保持 ids 的顺序，不存在的主键被跳过
func (r *Repo[T, ID]) FindAllByIDs(ctx context.Context, ids []ID) ([]*T, error) {
	result := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := r.Get(ctx, id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, nil
}

// Count 统计数量
func (r *Repo[T, ID]) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	count, err := r.model.Count(ctx, opts...)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeDatabase, "failed to count records")
	}
	return count, nil
}

// FindBy 按列相等查找，value 为领域值，nil 匹配 NULL
func (r *Repo[T, ID]) FindBy(ctx context.Context, column string, value any) ([]*T, error) {
	q, err := r.byColumn(ctx, column, value)
	if err != nil {
		return nil, err
	}
	var entities []*T
	if err := q.Find(&entities); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "failed to find records")
	}
	return entities, nil
}

// FindOneBy 按列相等查找单条记录
func (r *Repo[T, ID]) FindOneBy(ctx context.Context, column string, value any) (*T, error) {
	q, err := r.byColumn(ctx, column, value)
	if err != nil {
		return nil, err
	}
	entity := new(T)
	if err := q.First(entity); err != nil {
		return nil, notFoundOr(err, errors.ErrCodeDatabase, "failed to find record")
	}
	return entity, nil
}

// FindByText 以列的文本形式查找，例如来自 URL 的自然键
func (r *Repo[T, ID]) FindByText(ctx context.Context, column, text string) ([]*T, error) {
	value, err := r.model.ParseColumn(column, text)
	if err != nil {
		return nil, err
	}
	return r.FindBy(ctx, column, value)
}

// IsPropertyUnique 判断列的新值在表内是否唯一；新值与旧值相等时不做比较
func (r *Repo[T, ID]) IsPropertyUnique(ctx context.Context, column string, newValue, oldValue any) (bool, error) {
	if newValue == nil || reflect.DeepEqual(newValue, oldValue) {
		return true, nil
	}
	q, err := r.byColumn(ctx, column, newValue)
	if err != nil {
		return false, err
	}
	count, err := q.Count()
	if err != nil {
		return false, errors.WrapError(err, errors.ErrCodeDatabase, "failed to check uniqueness")
	}
	return count == 0, nil
}

func (r *Repo[T, ID]) byColumn(ctx context.Context, column string, value any) (*queryBuilder, error) {
	if !isSafeFieldName(column) {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "repo: unsafe column %q", column)
	}
	arg, err := r.model.ColumnValue(column, value)
	if err != nil {
		return nil, err
	}
	return r.query(ctx).Column(column, arg), nil
}

// withFilters 将 map 过滤条件转换为查询条件，值先按列类型解析。
func (q *queryBuilder) withFilters(filters map[string]string) *queryBuilder {
	for key, value := range filters {
		field, op := splitFilterKey(key)
		if !q.isAllowedField(field) {
			continue
		}
		switch op {
		case "like":
			q = q.Where(field+" LIKE ?", "%"+value+"%")
		case "in", "not_in":
			parts := strings.Split(value, ",")
			args := make([]any, len(parts))
			for i, p := range parts {
				args[i] = q.filterArg(field, p)
			}
			keyword := " IN "
			if op == "not_in" {
				keyword = " NOT IN "
			}
			q = q.Where(field+keyword+"("+placeholders(len(args))+")", args...)
		default:
			q = q.Where(field+" "+filterOps[op]+" ?", q.filterArg(field, value))
		}
	}
	return q
}

var filterOps = map[string]string{
	"":    "=",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
	"ne":  "!=",
}

// splitFilterKey 拆分 "field_op" 形式的键
func splitFilterKey(key string) (string, string) {
	for _, op := range []string{"not_in", "like", "gte", "lte", "gt", "lt", "ne", "in"} {
		if field, ok := strings.CutSuffix(key, "_"+op); ok && field != "" {
			return field, op
		}
	}
	return key, ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// filterArg 将文本按列类型转换为绑定参数，无法转换时原样使用文本
func (q *queryBuilder) filterArg(field, text string) any {
	value, err := q.model.ParseColumn(field, text)
	if err != nil {
		return text
	}
	arg, err := q.model.ColumnValue(field, value)
	if err != nil {
		return text
	}
	return arg
}
