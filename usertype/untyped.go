package usertype

import (
	"database/sql"
	"reflect"

	"matrixsql/errors"
)

// UserType 运行时使用的类型擦除视图。
//
// nil 表示 SQL NULL；值可以是 T、*T 或 sql.Null[T]。
type UserType interface {
	Name() string
	SQLType() SQLType
	ReturnedType() reflect.Type
	IsMutable() bool
	Configure(params Parameters) error

	// Get 读取 position 处的列值，SQL NULL 返回 nil
	Get(rs ResultSet, position int, s Session, owner any) (any, error)
	// Set 绑定 position 处的参数
	Set(st Statement, value any, position int, s Session) error

	Equal(x, y any) bool
	Hash(x any) uint64
	Copy(value any) any

	Disassemble(value any) ([]byte, error)
	Assemble(cached []byte, owner any) (any, error)

	// Literal 渲染 SQL 字面量，NULL 返回无效结果
	Literal(value any) (sql.NullString, error)
	Format(value any) (string, error)
	Parse(text string) (any, error)
}

type untyped[T, J any] struct {
	t *SingleColumnType[T, J]
}

func (u untyped[T, J]) Name() string                      { return u.t.Name() }
func (u untyped[T, J]) SQLType() SQLType                  { return u.t.SQLType() }
func (u untyped[T, J]) ReturnedType() reflect.Type        { return u.t.ReturnedType() }
func (u untyped[T, J]) IsMutable() bool                   { return u.t.IsMutable() }
func (u untyped[T, J]) Configure(params Parameters) error { return u.t.Configure(params) }

// toNull 将 nil / T / *T / sql.Null[T] 统一为 sql.Null[T]
func (u untyped[T, J]) toNull(value any) (sql.Null[T], error) {
	switch v := value.(type) {
	case nil:
		return sql.Null[T]{}, nil
	case T:
		return sql.Null[T]{V: v, Valid: true}, nil
	case *T:
		if v == nil {
			return sql.Null[T]{}, nil
		}
		return sql.Null[T]{V: *v, Valid: true}, nil
	case sql.Null[T]:
		return v, nil
	default:
		return sql.Null[T]{}, newTypeMismatchError(u.t.name, u.t.returned, value)
	}
}

func (u untyped[T, J]) Get(rs ResultSet, position int, s Session, owner any) (any, error) {
	v, err := u.t.NullSafeGet(rs, position, s, owner)
	if err != nil || !v.Valid {
		return nil, err
	}
	return v.V, nil
}

func (u untyped[T, J]) Set(st Statement, value any, position int, s Session) error {
	v, err := u.toNull(value)
	if err != nil {
		return err
	}
	return u.t.NullSafeSet(st, v, position, s)
}

func (u untyped[T, J]) Equal(x, y any) bool {
	a, errA := u.toNull(x)
	b, errB := u.toNull(y)
	if errA != nil || errB != nil {
		return false
	}
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return u.t.Equals(a.V, b.V)
}

func (u untyped[T, J]) Hash(x any) uint64 {
	v, err := u.toNull(x)
	if err != nil || !v.Valid {
		return 0
	}
	return u.t.HashCode(v.V)
}

func (u untyped[T, J]) Copy(value any) any {
	v, err := u.toNull(value)
	if err != nil || !v.Valid {
		return value
	}
	return u.t.DeepCopy(v.V)
}

func (u untyped[T, J]) Disassemble(value any) ([]byte, error) {
	v, err := u.toNull(value)
	if err != nil || !v.Valid {
		return nil, err
	}
	return u.t.Disassemble(v.V)
}

func (u untyped[T, J]) Assemble(cached []byte, owner any) (any, error) {
	if cached == nil {
		return nil, nil
	}
	v, err := u.t.Assemble(cached, owner)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (u untyped[T, J]) Literal(value any) (sql.NullString, error) {
	v, err := u.toNull(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return u.t.ToSQLLiteral(v)
}

func (u untyped[T, J]) Format(value any) (string, error) {
	v, err := u.toNull(value)
	if err != nil {
		return "", err
	}
	if !v.Valid {
		return "", errors.NewErrorf(errors.ErrCodeInvalidInput, "usertype %s: cannot format null", u.t.name)
	}
	return u.t.ToString(v.V)
}

func (u untyped[T, J]) Parse(text string) (any, error) {
	v, err := u.t.FromString(text)
	if err != nil {
		return nil, err
	}
	return v, nil
}
