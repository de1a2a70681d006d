package columns

import (
	"strconv"
	"time"

	"github.com/golang-sql/civil"

	"matrixsql/usertype"
)

// 默认日期模式
const (
	DefaultDatePattern     = "yyyyMMdd"
	DefaultTimePattern     = "HHmmss"
	DefaultDateTimePattern = "yyyyMMddHHmmss"
)

// 模式参数键；format 为兼容旧声明的别名
const (
	ParamPattern = "pattern"
	ParamFormat  = "format"
)

type integerColumn interface {
	int32 | int64
}

// numericTemporal 以定宽数字模式将日期类值存为整数列
type numericTemporal[T any, J integerColumn] struct {
	kind       valueKind
	def        string
	layout     *layout
	toFields   func(T) civilFields
	fromFields func(civilFields) T
	valid      func(T) bool
}

func newNumericTemporal[T any, J integerColumn](kind valueKind, def string, to func(T) civilFields, from func(civilFields) T, valid func(T) bool) numericTemporal[T, J] {
	m := numericTemporal[T, J]{kind: kind, def: def, toFields: to, fromFields: from, valid: valid}
	if err := m.Configure(nil); err != nil {
		panic(err)
	}
	return m
}

func (m *numericTemporal[T, J]) bitSize() int {
	var zero J
	if _, ok := any(zero).(int32); ok {
		return 32
	}
	return 64
}

func (m *numericTemporal[T, J]) SQLType() usertype.SQLType {
	if m.bitSize() == 32 {
		return usertype.SQLTypeInteger
	}
	return usertype.SQLTypeBigInt
}

func (m *numericTemporal[T, J]) TransportType() usertype.TransportType {
	if m.bitSize() == 32 {
		return usertype.TransportInteger
	}
	return usertype.TransportLong
}

func (m *numericTemporal[T, J]) ToSQLLiteral(value J) string {
	return strconv.FormatInt(int64(value), 10)
}

func (m *numericTemporal[T, J]) HasDefaults() bool {
	return m.layout != nil
}

// Configure 读取 pattern（或 format）参数，缺省使用类型默认模式
func (m *numericTemporal[T, J]) Configure(params usertype.Parameters) error {
	text := params.Lookup(ParamPattern, params.Lookup(ParamFormat, m.def))
	maxWidth := 18
	if m.bitSize() == 32 {
		maxWidth = 10
	}
	l, err := compileLayout(text, m.kind, maxWidth)
	if err != nil {
		return err
	}
	m.layout = l
	return nil
}

// Pattern 返回生效的模式
func (m *numericTemporal[T, J]) Pattern() string {
	return m.layout.text
}

func (m *numericTemporal[T, J]) FromNonNullValue(value J) (T, error) {
	s, err := m.layout.pad(int64(value))
	if err != nil {
		var zero T
		return zero, err
	}
	return m.FromNonNullString(s)
}

func (m *numericTemporal[T, J]) ToNonNullValue(value T) (J, error) {
	s, err := m.ToNonNullString(value)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, m.bitSize())
	if err != nil {
		return 0, usertype.NewFormatError(s, s, strconv.Itoa(m.bitSize())+"-bit integer", err)
	}
	return J(n), nil
}

func (m *numericTemporal[T, J]) FromNonNullString(s string) (T, error) {
	f, err := m.layout.parse(s)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.build(f, s)
}

func (m *numericTemporal[T, J]) ToNonNullString(value T) (string, error) {
	l := m.layout
	if !m.valid(value) {
		return "", l.formatError(toText(value), toText(value))
	}
	return l.format(m.toFields(value))
}

func (m *numericTemporal[T, J]) build(f civilFields, input string) (T, error) {
	v := m.fromFields(f)
	if !m.valid(v) {
		var zero T
		return zero, m.layout.formatError(input, m.layout.daySubstring(input))
	}
	return v, nil
}

func toText(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

func dateFields(d civil.Date) civilFields {
	return civilFields{year: d.Year, month: int(d.Month), day: d.Day}
}

func timeFields(t civil.Time) civilFields {
	return civilFields{hour: t.Hour, minute: t.Minute, second: t.Second, nanos: t.Nanosecond}
}

func fieldsDate(f civilFields) civil.Date {
	return civil.Date{Year: f.year, Month: time.Month(f.month), Day: f.day}
}

func fieldsTime(f civilFields) civil.Time {
	return civil.Time{Hour: f.hour, Minute: f.minute, Second: f.second, Nanosecond: f.nanos}
}

func dateTimeFields(dt civil.DateTime) civilFields {
	f := timeFields(dt.Time)
	d := dateFields(dt.Date)
	f.year, f.month, f.day = d.year, d.month, d.day
	return f
}

func fieldsDateTime(f civilFields) civil.DateTime {
	return civil.DateTime{Date: fieldsDate(f), Time: fieldsTime(f)}
}

// DateMapper civil.Date 与 BIGINT 之间按模式转换，默认 yyyyMMdd
type DateMapper struct {
	numericTemporal[civil.Date, int64]
}

func NewDateMapper() usertype.ColumnMapper[civil.Date, int64] {
	return &DateMapper{newNumericTemporal[civil.Date, int64](kindDate, DefaultDatePattern, dateFields, fieldsDate, civil.Date.IsValid)}
}

// TimeMapper civil.Time 与 BIGINT 之间按模式转换，默认 HHmmss
type TimeMapper struct {
	numericTemporal[civil.Time, int64]
}

func NewTimeMapper() usertype.ColumnMapper[civil.Time, int64] {
	return &TimeMapper{newNumericTemporal[civil.Time, int64](kindTime, DefaultTimePattern, timeFields, fieldsTime, civil.Time.IsValid)}
}

// DateTimeMapper civil.DateTime 与 BIGINT 之间按模式转换，默认 yyyyMMddHHmmss
type DateTimeMapper struct {
	numericTemporal[civil.DateTime, int64]
}

func NewDateTimeMapper() usertype.ColumnMapper[civil.DateTime, int64] {
	return &DateTimeMapper{newNumericTemporal[civil.DateTime, int64](kindDateTime, DefaultDateTimePattern, dateTimeFields, fieldsDateTime, civil.DateTime.IsValid)}
}

// DateTimeIntMapper civil.DateTime 与 INTEGER 之间按模式转换，默认只保存日期部分 yyyyMMdd
type DateTimeIntMapper struct {
	numericTemporal[civil.DateTime, int32]
}

func NewDateTimeIntMapper() usertype.ColumnMapper[civil.DateTime, int32] {
	return &DateTimeIntMapper{newNumericTemporal[civil.DateTime, int32](kindDateTime, DefaultDatePattern, dateTimeFields, fieldsDateTime, civil.DateTime.IsValid)}
}
