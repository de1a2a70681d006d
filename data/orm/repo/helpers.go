package repo

import (
	"fmt"
	"sort"
	"strings"
)

// applyAdvancedFilters 处理 "or" 与 "custom_where" 两类高级条件
func (r *Repo[T, ID]) applyAdvancedFilters(q *queryBuilder, advanced map[string]any) *queryBuilder {
	for key, value := range advanced {
		switch key {
		case "or":
			if conditions, ok := value.([]map[string]string); ok {
				expr, args := q.buildOrCondition(conditions)
				if expr != "" {
					q = q.Where(expr, args...)
				}
			}
		case "custom_where":
			if customWhere, ok := value.(map[string]any); ok {
				if query, exists := customWhere["query"]; exists {
					args, _ := customWhere["args"].([]any)
					q = q.Where(fmt.Sprint(query), args...)
				}
			}
		}
	}
	return q
}

func (r *Repo[T, ID]) applySorting(q *queryBuilder, options *QueryOptions) *queryBuilder {
	if len(options.Sorts) > 0 {
		fields := make([]string, 0, len(options.Sorts))
		for field := range options.Sorts {
			fields = append(fields, field)
		}
		// map 无序，按字段名排序保证 SQL 稳定
		sort.Strings(fields)
		for _, field := range fields {
			direction := options.Sorts[field]
			if direction.IsValid() && q.isAllowedField(field) {
				q = q.Order(field, direction == DESC)
			}
		}
		return q
	}
	if options.Order != "" {
		q = q.Order(r.resolveOrderField(options), strings.EqualFold(options.Order, "desc"))
	}
	return q
}

func (r *Repo[T, ID]) resolveOrderField(options *QueryOptions) string {
	if len(options.Fields) > 0 && isSafeFieldName(options.Fields[0]) {
		return options.Fields[0]
	}
	return r.pk
}

func (q *queryBuilder) buildOrCondition(conditions []map[string]string) (string, []any) {
	var exprs []string
	var args []any
	for _, condition := range conditions {
		keys := make([]string, 0, len(condition))
		for key := range condition {
			if q.isAllowedField(key) {
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)
		inner := make([]string, len(keys))
		for i, key := range keys {
			inner[i] = key + " = ?"
			args = append(args, q.filterArg(key, condition[key]))
		}
		exprs = append(exprs, "("+strings.Join(inner, " AND ")+")")
	}
	if len(exprs) == 0 {
		return "", nil
	}
	return "(" + strings.Join(exprs, " OR ") + ")", args
}

// toStringMap 将任意值的 map 转为文本 map（查询参数多来自 URL）
func toStringMap(src map[string]any) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = fmt.Sprint(v)
	}
	return dst
}
