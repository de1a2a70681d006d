package usertype

import (
	"sort"
	"strings"
)

// Parameters 声明处附带的类型参数，例如 {separator: "#"}、{pattern: "yyyyMMdd"}
type Parameters map[string]string

// Lookup 返回参数值，缺省时返回 def
func (p Parameters) Lookup(key, def string) string {
	if p == nil {
		return def
	}
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Merge 返回合并后的新参数表，后者覆盖前者
func (p Parameters) Merge(other Parameters) Parameters {
	merged := make(Parameters, len(p)+len(other))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// canonical 生成与键顺序无关的稳定表示，用作注册表缓存键
func (p Parameters) canonical() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(p[k])
	}
	return sb.String()
}

// ParseParameters 解析 "k1=v1,k2=v2" 形式的参数串，用于结构体标签
//
// 值中不能包含逗号；需要逗号分隔符时使用默认值或通过 FieldMeta.TypeParams 声明。
func ParseParameters(s string) (Parameters, error) {
	params := Parameters{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, NewConfigurationError("malformed type parameter %q", part)
		}
		params[key] = value
	}
	return params, nil
}

// Settings 提供按类型名的全局默认参数，位于声明参数与内置默认值之间
type Settings interface {
	TypeParameters(name string) Parameters
}

// SettingsFunc 将函数适配为 Settings
type SettingsFunc func(name string) Parameters

func (f SettingsFunc) TypeParameters(name string) Parameters { return f(name) }
