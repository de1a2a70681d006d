package usertype

import (
	"strconv"
)

// SQLType 传输值对应的 SQL 类型标记
type SQLType int

const (
	SQLTypeUnknown SQLType = iota
	SQLTypeVarchar
	SQLTypeBigInt
	SQLTypeInteger
)

func (t SQLType) String() string {
	switch t {
	case SQLTypeVarchar:
		return "VARCHAR"
	case SQLTypeBigInt:
		return "BIGINT"
	case SQLTypeInteger:
		return "INTEGER"
	default:
		return "UNKNOWN"
	}
}

// IsText 判断该类型的字面量是否需要按字符串加引号
func (t SQLType) IsText() bool {
	return t == SQLTypeVarchar
}

// TransportType 标识运行时基础值读写器
type TransportType string

const (
	TransportString  TransportType = "string"
	TransportLong    TransportType = "long"
	TransportInteger TransportType = "integer"
)

// ColumnMapper 在领域值 T 与单列传输值 J 之间转换。
//
// 所有方法的输入均保证非空，空值由适配器拦截。
// 实现在 Configure 之后不再修改自身状态。
type ColumnMapper[T, J any] interface {
	SQLType() SQLType
	TransportType() TransportType

	FromNonNullValue(value J) (T, error)
	ToNonNullValue(value T) (J, error)

	FromNonNullString(s string) (T, error)
	ToNonNullString(value T) (string, error)

	// ToSQLLiteral 渲染可嵌入 SQL 的字面量，字符串类的引号由调用方负责
	ToSQLLiteral(value J) string
}

// Configurable 由需要参数（分隔符、日期格式等）的映射器实现。
// 缺省键必须回落到映射器自己的默认值。
type Configurable interface {
	Configure(params Parameters) error
}

// Defaulted 由构造时已载入默认参数的 Configurable 映射器实现，
// HasDefaults 为真时适配器无需 Configure 即可使用。
type Defaulted interface {
	HasDefaults() bool
}

// Copier 由可变领域值的映射器实现，适配器据此返回独立副本并标记为可变。
type Copier[T any] interface {
	DeepCopy(value T) T
}

// EmptyAsNull 由“空值即 NULL”的映射器实现：空值写为 SQL NULL，读到 NULL 返回 Empty()。
type EmptyAsNull[T any] interface {
	IsEmpty(value T) bool
	Empty() T
}

// StringColumn 供以 VARCHAR 存储的映射器嵌入
type StringColumn struct{}

func (StringColumn) SQLType() SQLType             { return SQLTypeVarchar }
func (StringColumn) TransportType() TransportType { return TransportString }
func (StringColumn) ToSQLLiteral(value string) string {
	return value
}

// Int64Column 供以 BIGINT 存储的映射器嵌入
type Int64Column struct{}

func (Int64Column) SQLType() SQLType             { return SQLTypeBigInt }
func (Int64Column) TransportType() TransportType { return TransportLong }
func (Int64Column) ToSQLLiteral(value int64) string {
	return strconv.FormatInt(value, 10)
}

// Int32Column 供以 INTEGER 存储的映射器嵌入
type Int32Column struct{}

func (Int32Column) SQLType() SQLType             { return SQLTypeInteger }
func (Int32Column) TransportType() TransportType { return TransportInteger }
func (Int32Column) ToSQLLiteral(value int32) string {
	return strconv.FormatInt(int64(value), 10)
}
