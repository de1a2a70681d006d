package repo

import (
	"context"
	"math"

	"matrixsql/errors"
)

const defaultPageSize = 20

// ListPage 分页查询，过滤条件的值按列类型解析
func (r *Repo[T, ID]) ListPage(ctx context.Context, options *QueryOptions) (*PagedResult[T], error) {
	if options == nil {
		options = &QueryOptions{}
	}
	page := options.Page
	if page < 1 {
		page = 1
	}
	size := options.Size
	if size <= 0 {
		size = defaultPageSize
	}

	q := r.query(ctx)
	if options.Filters != nil {
		q = q.withFilters(options.Filters)
	}
	if options.Advanced != nil {
		q = r.applyAdvancedFilters(q, options.Advanced)
	}

	total, err := q.Count()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "failed to count total records")
	}

	q = r.applySorting(q, options)
	if len(options.Fields) > 0 {
		safeFields := make([]string, 0, len(options.Fields))
		for _, f := range options.Fields {
			if q.isAllowedField(f) {
				safeFields = append(safeFields, f)
			}
		}
		if len(safeFields) > 0 {
			q = q.Select(safeFields...)
		}
	}
	q = q.Offset((page - 1) * size).Limit(size)

	var entities []*T
	if err := q.Find(&entities); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeDatabase, "failed to execute paginated query")
	}
	if entities == nil {
		entities = []*T{}
	}

	return &PagedResult[T]{
		Data:       entities,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

// ListPageFromQuery 由 URL 查询参数分页，其余键作为过滤条件
func (r *Repo[T, ID]) ListPageFromQuery(ctx context.Context, page, size int, params map[string]any) (*PagedResult[T], error) {
	return r.ListPage(ctx, &QueryOptions{Page: page, Size: size, Filters: toStringMap(params)})
}
