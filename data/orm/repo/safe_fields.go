package repo

import "strings"

// isSafeFieldName 判断字段名是否为“安全标识符”。
//
// 允许形式：
//   - 单一标识符：foo, bar_1
//   - 带点限定名：table.column
//
// 规则（按段）：
//   - 每段不能为空；
//   - 首字符必须是字母或下划线 [A-Za-z_]；
//   - 后续字符必须是字母、数字或下划线 [A-Za-z0-9_]。
func isSafeFieldName(name string) bool {
	if name == "" {
		return false
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			ch := part[i]
			if i == 0 {
				if !((ch >= 'a' && ch <= 'z') ||
					(ch >= 'A' && ch <= 'Z') ||
					ch == '_') {
					return false
				}
			} else {
				if !((ch >= 'a' && ch <= 'z') ||
					(ch >= 'A' && ch <= 'Z') ||
					(ch >= '0' && ch <= '9') ||
					ch == '_') {
					return false
				}
			}
		}
	}
	return true
}

// isAllowedField 检查字段名既是安全标识符，又是模型映射的列。
func (q *queryBuilder) isAllowedField(field string) bool {
	if !isSafeFieldName(field) {
		return false
	}
	if q.model == nil {
		return true
	}
	return q.model.HasColumn(field)
}
