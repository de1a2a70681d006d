package columns

import (
	"fmt"
	"strconv"
	"strings"

	"matrixsql/usertype"
)

// DefaultSeparator 列表类型的默认分隔符
const DefaultSeparator = ","

// ParamSeparator 分隔符参数键
const ParamSeparator = "separator"

// delimited 列表映射的公共部分：按完整分隔符切分与连接。
//
// 空列表写为 SQL NULL，读到 NULL 返回空列表。
// 切分保留空片段，因此 "1##3" 对应三个元素。
type delimited struct {
	usertype.StringColumn
	separator string
}

func (d *delimited) Configure(params usertype.Parameters) error {
	sep := params.Lookup(ParamSeparator, DefaultSeparator)
	if sep == "" {
		return usertype.NewConfigurationError("list separator must not be empty")
	}
	d.separator = sep
	return nil
}

// Separator 返回生效的分隔符
func (d *delimited) HasDefaults() bool {
	return d.separator != ""
}

func (d *delimited) Separator() string {
	return d.separator
}

func (d *delimited) split(s string) []string {
	return strings.Split(s, d.separator)
}

// join 连接元素文本；元素内含分隔符导致无法还原时返回格式错误
func (d *delimited) join(items []string) (string, error) {
	joined := strings.Join(items, d.separator)
	back := d.split(joined)
	for i, item := range items {
		if i >= len(back) || back[i] != item {
			return "", usertype.NewFormatError(joined, item, d.expected(), nil)
		}
	}
	return joined, nil
}

func (d *delimited) expected() string {
	return fmt.Sprintf("elements not containing separator %q", d.separator)
}

// IntegerListMapper []*int 与分隔文本之间转换，nil 元素对应空片段
type IntegerListMapper struct {
	delimited
}

func NewIntegerListMapper() usertype.ColumnMapper[[]*int, string] {
	return &IntegerListMapper{delimited{separator: DefaultSeparator}}
}

func (m *IntegerListMapper) FromNonNullValue(value string) ([]*int, error) {
	parts := m.split(value)
	result := make([]*int, 0, len(parts))
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if text == "" {
			result = append(result, nil)
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, usertype.NewFormatError(value, part,
				fmt.Sprintf("integers separated by %q", m.separator), err)
		}
		result = append(result, &n)
	}
	return result, nil
}

func (m *IntegerListMapper) ToNonNullValue(value []*int) (string, error) {
	items := make([]string, len(value))
	for i, n := range value {
		if n != nil {
			items[i] = strconv.Itoa(*n)
		}
	}
	return m.join(items)
}

func (m *IntegerListMapper) FromNonNullString(s string) ([]*int, error) {
	return m.FromNonNullValue(s)
}

func (m *IntegerListMapper) ToNonNullString(value []*int) (string, error) {
	return m.ToNonNullValue(value)
}

func (m *IntegerListMapper) DeepCopy(value []*int) []*int {
	if value == nil {
		return nil
	}
	cp := make([]*int, len(value))
	for i, n := range value {
		if n != nil {
			v := *n
			cp[i] = &v
		}
	}
	return cp
}

func (m *IntegerListMapper) IsEmpty(value []*int) bool { return len(value) == 0 }
func (m *IntegerListMapper) Empty() []*int             { return []*int{} }

// StringListMapper []string 与分隔文本之间转换
type StringListMapper struct {
	delimited
}

func NewStringListMapper() usertype.ColumnMapper[[]string, string] {
	return &StringListMapper{delimited{separator: DefaultSeparator}}
}

func (m *StringListMapper) FromNonNullValue(value string) ([]string, error) {
	return m.split(value), nil
}

func (m *StringListMapper) ToNonNullValue(value []string) (string, error) {
	return m.join(value)
}

func (m *StringListMapper) FromNonNullString(s string) ([]string, error) {
	return m.FromNonNullValue(s)
}

func (m *StringListMapper) ToNonNullString(value []string) (string, error) {
	return m.ToNonNullValue(value)
}

func (m *StringListMapper) DeepCopy(value []string) []string {
	if value == nil {
		return nil
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

func (m *StringListMapper) IsEmpty(value []string) bool { return len(value) == 0 }
func (m *StringListMapper) Empty() []string             { return []string{} }
