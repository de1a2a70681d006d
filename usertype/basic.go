package usertype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// ResultSet 运行时提供的当前行视图，position 从 0 开始
type ResultSet interface {
	Value(position int) (any, error)
}

// Statement 运行时提供的待执行语句参数视图，position 从 0 开始
type Statement interface {
	SetValue(position int, value any) error
	SetNull(position int, sqlType SQLType) error
}

// Session 每次调用时由运行时传入，用于定位基础值读写器
type Session interface {
	BasicTypes() *BasicTypeRegistry
}

// BasicType 运行时对单个标量传输值的读写原语
type BasicType interface {
	SQLType() SQLType
	// Extract 读取 position 处的传输值，ok=false 表示 SQL NULL
	Extract(rs ResultSet, position int, s Session) (value any, ok bool, err error)
	// Bind 绑定传输值，value 为 nil 时绑定 SQL NULL
	Bind(st Statement, value any, position int, s Session) error
}

// BasicTypeRegistry 以 TransportType 为键的基础值读写器注册表
type BasicTypeRegistry struct {
	mu    sync.RWMutex
	types map[TransportType]BasicType
}

// NewBasicTypeRegistry 创建包含 string/long/integer 标准读写器的注册表
func NewBasicTypeRegistry() *BasicTypeRegistry {
	r := &BasicTypeRegistry{types: make(map[TransportType]BasicType)}
	r.Register(TransportString, stringType{})
	r.Register(TransportLong, longType{})
	r.Register(TransportInteger, integerType{})
	return r
}

// Register 注册或替换读写器
func (r *BasicTypeRegistry) Register(t TransportType, bt BasicType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = bt
}

// Resolve 查找读写器
func (r *BasicTypeRegistry) Resolve(t TransportType) (BasicType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bt, ok := r.types[t]
	if !ok {
		return nil, NewConfigurationError("no basic type registered for transport %q", t)
	}
	return bt, nil
}

type stringType struct{}

func (stringType) SQLType() SQLType { return SQLTypeVarchar }

func (stringType) Extract(rs ResultSet, position int, _ Session) (any, bool, error) {
	raw, err := rs.Value(position)
	if err != nil || raw == nil {
		return nil, false, err
	}
	switch v := raw.(type) {
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return nil, false, NewFormatError(fmt.Sprint(raw), fmt.Sprintf("%T", raw), "text column value", nil)
	}
}

func (t stringType) Bind(st Statement, value any, position int, _ Session) error {
	if value == nil {
		return st.SetNull(position, t.SQLType())
	}
	return st.SetValue(position, value)
}

type longType struct{}

func (longType) SQLType() SQLType { return SQLTypeBigInt }

func (longType) Extract(rs ResultSet, position int, _ Session) (any, bool, error) {
	raw, err := rs.Value(position)
	if err != nil || raw == nil {
		return nil, false, err
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (t longType) Bind(st Statement, value any, position int, _ Session) error {
	if value == nil {
		return st.SetNull(position, t.SQLType())
	}
	return st.SetValue(position, value)
}

type integerType struct{}

func (integerType) SQLType() SQLType { return SQLTypeInteger }

func (integerType) Extract(rs ResultSet, position int, _ Session) (any, bool, error) {
	raw, err := rs.Value(position)
	if err != nil || raw == nil {
		return nil, false, err
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, false, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, false, NewFormatError(strconv.FormatInt(n, 10), strconv.FormatInt(n, 10), "32-bit integer", nil)
	}
	return int32(n), true, nil
}

func (t integerType) Bind(st Statement, value any, position int, _ Session) error {
	if value == nil {
		return st.SetNull(position, t.SQLType())
	}
	return st.SetValue(position, value)
}

// toInt64 归一化驱动返回的整数值（sqlite/mysql 会以 int64、[]byte 或 string 返回）
func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, NewFormatError(strconv.FormatUint(v, 10), strconv.FormatUint(v, 10), "64-bit integer", nil)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v > math.MaxInt64 {
			s := strconv.FormatFloat(v, 'g', -1, 64)
			return 0, NewFormatError(s, s, "integral number", nil)
		}
		return int64(v), nil
	case []byte:
		return parseInt64(string(v))
	case string:
		return parseInt64(v)
	default:
		return 0, NewFormatError(fmt.Sprint(raw), fmt.Sprintf("%T", raw), "integer column value", nil)
	}
}

func parseInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, NewFormatError(s, s, "decimal integer", err)
	}
	return n, nil
}
