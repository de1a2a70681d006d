package orm

// FieldMeta 描述字段元信息。
//
// Type 非空时表示该列使用名为 Type 的类型适配器，TypeParams 为声明处参数，
// 优先于结构体标签 `usertype:"..."`。
type FieldMeta struct {
	Name          string
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	DefaultValue  string
	Type          string
	TypeParams    map[string]string
	Tags          map[string]string
}

// ModelMeta 描述模型级别元信息。
// Tags 可用于存放原始标签内容，由适配器解析。
type ModelMeta struct {
	Model  any
	Table  string
	Fields []FieldMeta
	Tags   map[string]string
}

// Tag 返回模型级别的标签内容。
func (m *ModelMeta) Tag(key string) string {
	if m == nil || m.Tags == nil {
		return ""
	}
	return m.Tags[key]
}

// Field 按字段名或列名查找字段声明
func (m *ModelMeta) Field(name string) *FieldMeta {
	if m == nil {
		return nil
	}
	for i := range m.Fields {
		if m.Fields[i].Name == name || m.Fields[i].Column == name {
			return &m.Fields[i]
		}
	}
	return nil
}
