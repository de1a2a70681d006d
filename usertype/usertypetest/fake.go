// Package usertypetest 提供不依赖数据库的 ResultSet / Statement / Session 测试替身。
package usertypetest

import (
	"fmt"

	"matrixsql/usertype"
)

// Row 以切片表示的一行数据，nil 元素即 SQL NULL
type Row []any

func (r Row) Value(position int) (any, error) {
	if position < 0 || position >= len(r) {
		return nil, fmt.Errorf("column %d out of range [0,%d)", position, len(r))
	}
	return r[position], nil
}

// Statement 记录绑定结果
type Statement struct {
	Values map[int]any
	Nulls  map[int]usertype.SQLType
}

func NewStatement() *Statement {
	return &Statement{
		Values: make(map[int]any),
		Nulls:  make(map[int]usertype.SQLType),
	}
}

func (s *Statement) SetValue(position int, value any) error {
	delete(s.Nulls, position)
	s.Values[position] = value
	return nil
}

func (s *Statement) SetNull(position int, sqlType usertype.SQLType) error {
	delete(s.Values, position)
	s.Nulls[position] = sqlType
	return nil
}

// IsNull 判断 position 是否被绑定为 NULL
func (s *Statement) IsNull(position int) bool {
	_, ok := s.Nulls[position]
	return ok
}

// Session 携带标准基础值读写器
type Session struct {
	Types *usertype.BasicTypeRegistry
}

func NewSession() Session {
	return Session{Types: usertype.NewBasicTypeRegistry()}
}

func (s Session) BasicTypes() *usertype.BasicTypeRegistry { return s.Types }
