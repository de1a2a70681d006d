// Package columns 提供内置的列映射策略，并在 init 中注册到 usertype.DefaultRegistry()。
//
// 实体字段通过 `usertype:"integer_list,separator=#"` 这样的标签引用这些类型。
package columns

import (
	"github.com/golang-sql/civil"

	"matrixsql/usertype"
)

// 内置类型名
const (
	IntegerList      = "integer_list"
	StringList       = "string_list"
	LocalDate        = "local_date"
	LocalTime        = "local_time"
	LocalDateTime    = "local_date_time"
	LocalDateTimeInt = "local_date_time_int"
	BooleanInt       = "boolean_int"
)

func init() {
	RegisterAll(usertype.DefaultRegistry())
}

// RegisterAll 将内置类型注册到 r
func RegisterAll(r *usertype.Registry) {
	r.MustRegister(IntegerList, usertype.Define(NewIntegerListMapper, usertype.WithName(IntegerList)))
	r.MustRegister(StringList, usertype.Define(NewStringListMapper, usertype.WithName(StringList)))
	r.MustRegister(LocalDate, usertype.Define(NewDateMapper, usertype.WithName(LocalDate)))
	r.MustRegister(LocalTime, usertype.Define(NewTimeMapper, usertype.WithName(LocalTime)))
	r.MustRegister(LocalDateTime, usertype.Define(NewDateTimeMapper, usertype.WithName(LocalDateTime)))
	r.MustRegister(LocalDateTimeInt, usertype.Define(NewDateTimeIntMapper, usertype.WithName(LocalDateTimeInt)))
	r.MustRegister(BooleanInt, usertype.Define(NewBooleanMapper, usertype.WithName(BooleanInt)))
}

func configured[T, J any](name string, supplier func() usertype.ColumnMapper[T, J], params usertype.Parameters) (*usertype.SingleColumnType[T, J], error) {
	t, err := usertype.Of(supplier, usertype.WithName(name))
	if err != nil {
		return nil, err
	}
	if err := t.Configure(params); err != nil {
		return nil, err
	}
	return t, nil
}

// IntegerListType 返回按 params 配置的类型化适配器，不经过注册表缓存
func IntegerListType(params usertype.Parameters) (*usertype.SingleColumnType[[]*int, string], error) {
	return configured(IntegerList, NewIntegerListMapper, params)
}

func StringListType(params usertype.Parameters) (*usertype.SingleColumnType[[]string, string], error) {
	return configured(StringList, NewStringListMapper, params)
}

func DateType(params usertype.Parameters) (*usertype.SingleColumnType[civil.Date, int64], error) {
	return configured(LocalDate, NewDateMapper, params)
}

func TimeType(params usertype.Parameters) (*usertype.SingleColumnType[civil.Time, int64], error) {
	return configured(LocalTime, NewTimeMapper, params)
}

func DateTimeType(params usertype.Parameters) (*usertype.SingleColumnType[civil.DateTime, int64], error) {
	return configured(LocalDateTime, NewDateTimeMapper, params)
}

func DateTimeIntType(params usertype.Parameters) (*usertype.SingleColumnType[civil.DateTime, int32], error) {
	return configured(LocalDateTimeInt, NewDateTimeIntMapper, params)
}

func BooleanType(params usertype.Parameters) (*usertype.SingleColumnType[bool, int32], error) {
	return configured(BooleanInt, NewBooleanMapper, params)
}
