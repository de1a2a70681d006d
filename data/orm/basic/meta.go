package basic

import (
	"reflect"
	"strings"

	"matrixsql/data/orm"
	"matrixsql/errors"
	"matrixsql/usertype"
)

type fieldInfo struct {
	Name          string
	Column        string
	Index         []int
	Type          reflect.Type
	PrimaryKey    bool
	AutoIncrement bool
	// GenerateUUID 字符串主键在 Create 时为空则生成 UUID
	GenerateUUID bool
	// GenerateSnowflake 整数主键在 Create 时为零则生成雪花 ID
	GenerateSnowflake bool

	userType usertype.UserType
}

type structMeta struct {
	typ          reflect.Type
	fields       []*fieldInfo
	columnToInfo map[string]*fieldInfo
	pk           *fieldInfo
}

// insertableColumns 返回可用于 INSERT 的列及对应字段。
func (sm *structMeta) insertableColumns() ([]string, []*fieldInfo) {
	var cols []string
	var fields []*fieldInfo
	for _, f := range sm.fields {
		// 自增主键默认交给数据库生成
		if f.PrimaryKey && f.AutoIncrement {
			continue
		}
		cols = append(cols, f.Column)
		fields = append(fields, f)
	}
	return cols, fields
}

// metaForType 目标类型与模型类型一致时使用模型声明，否则仅依据标签
func (o *Orm) metaForType(t reflect.Type, meta *orm.ModelMeta) (*structMeta, error) {
	if meta == nil || meta.Model == nil {
		return o.structMetaFor(t, nil)
	}
	mt := reflect.TypeOf(meta.Model)
	if mt.Kind() == reflect.Ptr {
		mt = mt.Elem()
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if mt != t {
		meta = nil
	}
	return o.structMetaFor(t, meta)
}

// structMetaFor 构建或获取 structMeta，meta 中的字段声明优先于结构体标签。
func (o *Orm) structMetaFor(t reflect.Type, meta *orm.ModelMeta) (*structMeta, error) {
	if t == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "basic.Orm: nil entity type")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "basic.Orm: unsupported entity type %s", t)
	}

	key := metaKey{typ: t, meta: meta}
	o.metas.mu.RLock()
	sm, ok := o.metas.structs[key]
	o.metas.mu.RUnlock()
	if ok {
		return sm, nil
	}

	sm, err := buildStructMeta(t, meta, o.types)
	if err != nil {
		return nil, err
	}
	o.metas.mu.Lock()
	o.metas.structs[key] = sm
	o.metas.mu.Unlock()
	return sm, nil
}

func buildStructMeta(t reflect.Type, meta *orm.ModelMeta, types *usertype.Registry) (*structMeta, error) {
	sm := &structMeta{
		typ:          t,
		columnToInfo: make(map[string]*fieldInfo),
	}

	var walk func(reflect.Type, []int) error
	walk = func(cur reflect.Type, prefix []int) error {
		for i := 0; i < cur.NumField(); i++ {
			f := cur.Field(i)
			// 跳过未导出字段
			if f.PkgPath != "" {
				continue
			}

			index := append(append([]int(nil), prefix...), i)
			typeName, typeParams, err := userTypeDecl(f, meta)
			if err != nil {
				return err
			}

			if typeName == "" && f.Anonymous && f.Type.Kind() == reflect.Struct && !isTimeType(f.Type) {
				// 内嵌结构体递归展开
				if err := walk(f.Type, index); err != nil {
					return err
				}
				continue
			}

			// 未声明类型适配器时只收集“标量”字段
			if typeName == "" && !isScalarDBField(f.Type) {
				continue
			}

			col, pk, auto, keyDefault := parseColumnTag(f)
			if fm := meta.Field(f.Name); fm != nil {
				if fm.Column != "" {
					col = fm.Column
				}
				pk = pk || fm.PrimaryKey
				auto = auto || fm.AutoIncrement
				if fm.DefaultValue != "" {
					keyDefault = strings.ToLower(fm.DefaultValue)
				}
			}
			if col == "" {
				col = toSnakeCase(f.Name)
			}

			info := &fieldInfo{
				Name:          f.Name,
				Column:        col,
				Index:         index,
				Type:          f.Type,
				PrimaryKey:    pk,
				AutoIncrement: auto,
				GenerateUUID:  keyDefault == "uuid" && pk && f.Type.Kind() == reflect.String,
			}
			info.GenerateSnowflake = keyDefault == "snowflake" && pk && !auto && isIntKind(f.Type.Kind())
			if typeName != "" {
				ut, err := types.Resolve(typeName, typeParams)
				if err != nil {
					return errors.WrapError(err, errors.GetErrorCode(err),
						"field "+f.Name+" usertype "+typeName)
				}
				if !fieldAccepts(f.Type, ut.ReturnedType()) {
					return errors.NewErrorf(errors.ErrCodeConfiguration,
						"field %s: type %s cannot hold %s values of usertype %s",
						f.Name, f.Type, ut.ReturnedType(), typeName)
				}
				info.userType = ut
			}

			sm.fields = append(sm.fields, info)
			// 后来的同名列覆盖之前的定义（以最内层为准）
			sm.columnToInfo[col] = info
			if pk && sm.pk == nil {
				sm.pk = info
			}
		}
		return nil
	}

	if err := walk(t, nil); err != nil {
		return nil, err
	}
	return sm, nil
}

// userTypeDecl 读取字段的类型适配器声明，FieldMeta.Type 优先于 usertype 标签
func userTypeDecl(f reflect.StructField, meta *orm.ModelMeta) (string, usertype.Parameters, error) {
	if fm := meta.Field(f.Name); fm != nil && fm.Type != "" {
		return fm.Type, usertype.Parameters(fm.TypeParams), nil
	}
	tag, ok := f.Tag.Lookup("usertype")
	if !ok || tag == "" || tag == "-" {
		return "", nil, nil
	}
	name, rest, _ := strings.Cut(tag, ",")
	params, err := usertype.ParseParameters(rest)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(name), params, nil
}

// fieldAccepts 字段类型为 T 或 *T
func fieldAccepts(field, returned reflect.Type) bool {
	if returned.AssignableTo(field) {
		return true
	}
	return field.Kind() == reflect.Ptr && returned.AssignableTo(field.Elem())
}

func isScalarDBField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isTimeType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func isIntKind(k reflect.Kind) bool {
	return k == reflect.Int || k == reflect.Int64 || k == reflect.Uint64
}

func isTimeType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "time" && t.Name() == "Time"
}

// parseColumnTag 读取 gorm/db/json 标签；keyDefault 为 "uuid"、"snowflake" 或空
func parseColumnTag(f reflect.StructField) (column string, primaryKey, autoIncrement bool, keyDefault string) {
	gormTag := f.Tag.Get("gorm")
	if gormTag != "" {
		parts := strings.Split(gormTag, ";")
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, "column:") {
				column = strings.TrimPrefix(part, "column:")
			}
			if strings.EqualFold(part, "primaryKey") || strings.EqualFold(part, "primary_key") {
				primaryKey = true
			}
			if strings.EqualFold(part, "autoIncrement") || strings.EqualFold(part, "autoincrement") {
				autoIncrement = true
			}
			if v, ok := strings.CutPrefix(strings.ToLower(part), "default:"); ok && (v == "uuid" || v == "snowflake") {
				keyDefault = v
			}
		}
	}

	if column == "" {
		if dbTag := f.Tag.Get("db"); dbTag != "" {
			column = dbTag
		} else if jsonTag := f.Tag.Get("json"); jsonTag != "" {
			column = strings.Split(jsonTag, ",")[0]
		}
	}

	return column, primaryKey, autoIncrement, keyDefault
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func fieldByIndexSafe(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct || i < 0 || i >= v.NumField() {
			return reflect.Value{}
		}
		v = v.Field(i)
	}
	return v
}

// tryGetTableName 尝试从模型实例上调用 TableName()。
func tryGetTableName(model any) (string, bool) {
	if model == nil {
		return "", false
	}
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		v = reflect.New(v.Type().Elem())
	}
	if m, ok := v.Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}

	t := v.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", false
	}
	// 指针接收者实现的 TableName
	if m, ok := reflect.New(t).Interface().(interface{ TableName() string }); ok {
		return m.TableName(), true
	}
	return "", false
}
