// Package usertype 提供把任意领域值映射到单个数据库列的通用适配框架。
//
// ColumnMapper 负责纯粹的值转换，SingleColumnType 负责运行时所需的值生命周期：
// 空值拦截、读写委托、相等性、深拷贝、二级缓存拆装与 SQL 字面量渲染。
//
// 适配器在配置完成后只读，可被多个 goroutine 并发使用；
// Configure 必须在首次使用之前完成，不能与读写并发。
package usertype

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/zeebo/xxh3"
)

const (
	stateUninitialized int32 = iota
	stateConfigured
	stateInUse
)

// Extractor 替换默认的传输值读取步骤，用于处理行结构上的特殊情况
type Extractor[J any] func(rs ResultSet, position int, s Session) (value J, ok bool, err error)

// Binder 替换默认的传输值绑定步骤，value 为 nil 表示绑定 SQL NULL
type Binder[J any] func(st Statement, value *J, position int, s Session) error

// Option 配置适配器
type Option func(*options)

type options struct {
	name string
}

// WithName 指定适配器名称，用于日志与错误信息
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// SingleColumnType 将一个 ColumnMapper 接入运行时的单列值类型适配器
type SingleColumnType[T, J any] struct {
	name     string
	mapper   ColumnMapper[T, J]
	returned reflect.Type
	copier   Copier[T]
	empty    EmptyAsNull[T]
	extract  Extractor[J]
	bind     Binder[J]
	state    atomic.Int32
}

// Of 通过映射器构造函数创建适配器，T 与 J 由类型参数给出。
//
// 构造失败属于配置错误，应在启动期暴露；supplier 的 panic 也会被转换为配置错误。
func Of[T, J any](supplier func() ColumnMapper[T, J], opts ...Option) (t *SingleColumnType[T, J], err error) {
	if supplier == nil {
		return nil, NewConfigurationError("usertype: nil mapper supplier for %s", reflect.TypeFor[T]())
	}

	mapper, err := instantiate(supplier)
	if err != nil {
		return nil, err
	}
	if isNilValue(mapper) {
		return nil, NewConfigurationError("usertype: mapper supplier for %s returned nil", reflect.TypeFor[T]())
	}

	o := options{name: fmt.Sprintf("%T", mapper)}
	for _, opt := range opts {
		opt(&o)
	}

	t = &SingleColumnType[T, J]{
		name:     o.name,
		mapper:   mapper,
		returned: reflect.TypeFor[T](),
	}
	t.copier, _ = any(mapper).(Copier[T])
	t.empty, _ = any(mapper).(EmptyAsNull[T])
	if ready(mapper) {
		t.state.Store(stateConfigured)
	}
	return t, nil
}

// ready 判断映射器创建后是否可以直接使用
func ready(mapper any) bool {
	if _, ok := mapper.(Configurable); !ok {
		return true
	}
	d, ok := mapper.(Defaulted)
	return ok && d.HasDefaults()
}

// MustOf 同 Of，失败时 panic
func MustOf[T, J any](supplier func() ColumnMapper[T, J], opts ...Option) *SingleColumnType[T, J] {
	t, err := Of(supplier, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func instantiate[T, J any](supplier func() ColumnMapper[T, J]) (mapper ColumnMapper[T, J], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewConfigurationError("usertype: could not instantiate mapper for %s: %v", reflect.TypeFor[T](), r)
		}
	}()
	return supplier(), nil
}

// WithExtractor 替换读取步骤，必须在首次使用前调用
func (t *SingleColumnType[T, J]) WithExtractor(fn Extractor[J]) *SingleColumnType[T, J] {
	t.mustNotBeInUse("WithExtractor")
	t.extract = fn
	return t
}

// WithBinder 替换绑定步骤，必须在首次使用前调用
func (t *SingleColumnType[T, J]) WithBinder(fn Binder[J]) *SingleColumnType[T, J] {
	t.mustNotBeInUse("WithBinder")
	t.bind = fn
	return t
}

func (t *SingleColumnType[T, J]) mustNotBeInUse(op string) {
	if t.state.Load() == stateInUse {
		panic(NewConfigurationError("usertype %s: %s after first use", t.name, op))
	}
}

func (t *SingleColumnType[T, J]) Name() string                 { return t.name }
func (t *SingleColumnType[T, J]) Mapper() ColumnMapper[T, J]   { return t.mapper }
func (t *SingleColumnType[T, J]) SQLType() SQLType             { return t.mapper.SQLType() }
func (t *SingleColumnType[T, J]) ReturnedType() reflect.Type   { return t.returned }
func (t *SingleColumnType[T, J]) IsMutable() bool              { return t.copier != nil }
func (t *SingleColumnType[T, J]) IsConfigured() bool           { return t.state.Load() != stateUninitialized }
func (t *SingleColumnType[T, J]) TransportType() TransportType { return t.mapper.TransportType() }

// Configure 将参数推入映射器。首次使用后再调用返回配置错误。
func (t *SingleColumnType[T, J]) Configure(params Parameters) error {
	if t.state.Load() == stateInUse {
		return NewConfigurationError("usertype %s: configure after first use", t.name)
	}
	if c, ok := any(t.mapper).(Configurable); ok {
		if err := c.Configure(params); err != nil {
			return err
		}
	}
	t.state.CompareAndSwap(stateUninitialized, stateConfigured)
	return nil
}

// use 在首次转换时切换到 InUse，未配置时返回配置错误
func (t *SingleColumnType[T, J]) use() error {
	for {
		switch t.state.Load() {
		case stateInUse:
			return nil
		case stateConfigured:
			if t.state.CompareAndSwap(stateConfigured, stateInUse) {
				return nil
			}
		default:
			return NewConfigurationError("usertype %s: used before configure", t.name)
		}
	}
}

// Equals 按值比较
func (t *SingleColumnType[T, J]) Equals(x, y T) bool {
	return reflect.DeepEqual(x, y)
}

// HashCode 与 Equals 一致：相等的值得到相同的哈希
//
// 优先对 JSON 形式取哈希，指针元素按指向的值参与计算。
func (t *SingleColumnType[T, J]) HashCode(x T) uint64 {
	if data, err := json.Marshal(x); err == nil {
		return xxh3.Hash(data)
	}
	return xxh3.HashString(fmt.Sprintf("%#v", x))
}

// NullSafeGet 读取 position 处的列值。
//
// 传输值为 NULL 时不调用映射器，返回无效值；EmptyAsNull 映射器返回 Empty()。
func (t *SingleColumnType[T, J]) NullSafeGet(rs ResultSet, position int, s Session, owner any) (sql.Null[T], error) {
	if err := t.use(); err != nil {
		return sql.Null[T]{}, err
	}

	j, ok, err := t.extractTransport(rs, position, s)
	if err != nil {
		return sql.Null[T]{}, err
	}
	if !ok {
		if t.empty != nil {
			return sql.Null[T]{V: t.empty.Empty(), Valid: true}, nil
		}
		return sql.Null[T]{}, nil
	}

	v, err := t.fromValue(j)
	if err != nil {
		return sql.Null[T]{}, err
	}
	return sql.Null[T]{V: v, Valid: true}, nil
}

// NullSafeSet 绑定 position 处的参数，空值（以及 EmptyAsNull 的空值）绑定为 SQL NULL。
func (t *SingleColumnType[T, J]) NullSafeSet(st Statement, value sql.Null[T], position int, s Session) error {
	if err := t.use(); err != nil {
		return err
	}

	if !value.Valid || (t.empty != nil && t.empty.IsEmpty(value.V)) {
		return t.bindTransport(st, nil, position, s)
	}

	j, err := t.toValue(value.V)
	if err != nil {
		return err
	}
	return t.bindTransport(st, &j, position, s)
}

func (t *SingleColumnType[T, J]) extractTransport(rs ResultSet, position int, s Session) (J, bool, error) {
	var zero J
	if t.extract != nil {
		return t.extract(rs, position, s)
	}

	bt, err := t.basicType(s)
	if err != nil {
		return zero, false, err
	}
	raw, ok, err := bt.Extract(rs, position, s)
	if err != nil || !ok {
		return zero, false, err
	}
	j, isJ := raw.(J)
	if !isJ {
		return zero, false, NewConfigurationError("usertype %s: basic type %q produced %T, want %s",
			t.name, t.mapper.TransportType(), raw, reflect.TypeFor[J]())
	}
	return j, true, nil
}

func (t *SingleColumnType[T, J]) bindTransport(st Statement, j *J, position int, s Session) error {
	if t.bind != nil {
		return t.bind(st, j, position, s)
	}

	bt, err := t.basicType(s)
	if err != nil {
		return err
	}
	if j == nil {
		return bt.Bind(st, nil, position, s)
	}
	return bt.Bind(st, *j, position, s)
}

func (t *SingleColumnType[T, J]) basicType(s Session) (BasicType, error) {
	if s == nil || s.BasicTypes() == nil {
		return nil, NewConfigurationError("usertype %s: session has no basic type registry", t.name)
	}
	return s.BasicTypes().Resolve(t.mapper.TransportType())
}

func (t *SingleColumnType[T, J]) fromValue(j J) (T, error) {
	if isNilValue(j) {
		nullPolicyViolation("FromNonNullValue", j)
	}
	return t.mapper.FromNonNullValue(j)
}

func (t *SingleColumnType[T, J]) toValue(v T) (J, error) {
	if isNilValue(v) {
		nullPolicyViolation("ToNonNullValue", v)
	}
	return t.mapper.ToNonNullValue(v)
}

// DeepCopy 不可变类型返回原值，可变类型返回与原值互不影响的副本
func (t *SingleColumnType[T, J]) DeepCopy(v T) T {
	if t.copier == nil {
		return v
	}
	return t.copier.DeepCopy(v)
}

// Disassemble 生成二级缓存使用的独立序列化形式
func (t *SingleColumnType[T, J]) Disassemble(v T) ([]byte, error) {
	cp := t.DeepCopy(v)
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, newCacheSerializationError(v, err)
	}
	return data, nil
}

// Assemble 从二级缓存形式还原值
func (t *SingleColumnType[T, J]) Assemble(cached []byte, owner any) (T, error) {
	var v T
	if err := json.Unmarshal(cached, &v); err != nil {
		return v, newCacheSerializationError(v, err)
	}
	return v, nil
}

// ToSQLLiteral 渲染 SQL 字面量，空值返回无效结果
func (t *SingleColumnType[T, J]) ToSQLLiteral(value sql.Null[T]) (sql.NullString, error) {
	if !value.Valid {
		return sql.NullString{}, nil
	}
	if err := t.use(); err != nil {
		return sql.NullString{}, err
	}
	j, err := t.toValue(value.V)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: t.mapper.ToSQLLiteral(j), Valid: true}, nil
}

// ToString 渲染文本形式，用于诊断输出与文本标识
func (t *SingleColumnType[T, J]) ToString(v T) (string, error) {
	if err := t.use(); err != nil {
		return "", err
	}
	if isNilValue(v) {
		nullPolicyViolation("ToNonNullString", v)
	}
	return t.mapper.ToNonNullString(v)
}

// FromString 从文本形式还原值，例如按自然键查找时
func (t *SingleColumnType[T, J]) FromString(s string) (T, error) {
	if err := t.use(); err != nil {
		var zero T
		return zero, err
	}
	return t.mapper.FromNonNullString(s)
}

// Untyped 返回供运行时使用的类型擦除视图
func (t *SingleColumnType[T, J]) Untyped() UserType {
	return &untyped[T, J]{t: t}
}

// isNilValue 判断值是否为空引用；切片不视为空引用，nil 切片即空列表
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
