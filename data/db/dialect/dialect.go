package dialect

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	core "matrixsql/data/db"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameMySQL    Name = "mysql"
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
//
// 目前只抽象运行时实际用到的能力：
//   - 占位符形式（Rebind）
//   - 标识符与字符串字面量转义
//   - 唯一键/主键冲突错误识别
type Dialect struct {
	name Name
}

// New 根据字符串构造方言（大小写不敏感）
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return Dialect{name: NameMySQL}
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从 IDatabase 实例推断方言
//
// 需要 IDatabase 可选实现 IDialectNameProvider 接口；否则返回 Unknown。
func FromDatabase(db core.IDatabase) Dialect {
	if db == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 根据方言对标识符进行转义（如表名/列名）。
//
// 约定：
//   - 支持 schema.table、table.column 等带点形式，会对每一段分别加引号；
//   - MySQL 使用反引号 `name`，Postgres/SQLite 使用双引号 "name"；
//   - Unknown 方言返回原始字符串，不做修改。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch d.name {
		case NameMySQL:
			parts[i] = "`" + p + "`"
		case NameSQLite, NamePostgres:
			parts[i] = `"` + p + `"`
		default:
			// 未知方言：保持原样
		}
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral 将文本渲染为 SQL 字符串字面量，单引号加倍；MySQL 额外转义反斜杠
func (d Dialect) QuoteLiteral(s string) string {
	if d.name == NameMySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Literal 渲染类型适配器给出的字面量：无效值为 NULL，文本类加引号，数值类原样输出
func (d Dialect) Literal(lit sql.NullString, text bool) string {
	if !lit.Valid {
		return "NULL"
	}
	if text {
		return d.QuoteLiteral(lit.String)
	}
	return lit.String
}

// ValueLiteral 渲染任意绑定参数，用于调试日志
func (d Dialect) ValueLiteral(v any) string {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return "?"
		}
		v = dv
	}
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.QuoteLiteral(x)
	case []byte:
		return d.QuoteLiteral(string(x))
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return d.QuoteLiteral(x.Format(time.RFC3339Nano))
	default:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return "NULL"
			}
			return d.ValueLiteral(rv.Elem().Interface())
		}
		return fmt.Sprint(x)
	}
}

// Rebind 将通用占位符 ? 转换为方言特定形式。
//
// 目前仅对 Postgres 做替换，将 ? 依次替换为 $1、$2...；其他方言保持原样。
// 扫描不解析 SQL，字符串字面量中的 ? 同样会被替换，调用方应以参数形式传入此类文本。
func (d Dialect) Rebind(query string) string {
	if query == "" {
		return query
	}
	switch d.name {
	case NamePostgres:
		var sb strings.Builder
		sb.Grow(len(query) + 4)
		argIndex := 1
		for i := 0; i < len(query); i++ {
			ch := query[i]
			if ch == '?' {
				sb.WriteByte('$')
				sb.WriteString(strconv.Itoa(argIndex))
				argIndex++
			} else {
				sb.WriteByte(ch)
			}
		}
		return sb.String()
	default:
		return query
	}
}

// Interpolate 将 ? 依次替换为已渲染的字面量，仅用于日志输出，不可用于执行
func Interpolate(query string, literals []string) string {
	if len(literals) == 0 {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8*len(literals))
	next := 0
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '?' && next < len(literals) {
			sb.WriteString(literals[next])
			next++
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// SupportsDeleteLimit 当前方言是否支持 DELETE ... LIMIT 语法
func (d Dialect) SupportsDeleteLimit() bool {
	switch d.name {
	case NameMySQL, NameSQLite:
		return true
	default:
		return false
	}
}

// IsUniqueViolation 判断错误是否为唯一键/主键冲突
//
// 使用错误消息的关键字匹配：
//   - MySQL: "Duplicate entry", "duplicate key" (Error 1062, 1586)
//   - SQLite: "UNIQUE constraint failed" (SQLITE_CONSTRAINT_UNIQUE)
//   - Postgres: "duplicate key value", "unique constraint" (Error 23505)
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameMySQL:
		return strings.Contains(msg, "duplicate entry") ||
			strings.Contains(msg, "duplicate key")
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
