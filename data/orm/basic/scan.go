package basic

import (
	"fmt"
	"reflect"

	dbcore "matrixsql/data/db"
	"matrixsql/data/orm"
	"matrixsql/errors"
	"matrixsql/usertype"
)

// rowValues 当前行的原始驱动值，作为 usertype.ResultSet 提供给适配器
type rowValues []any

func (r rowValues) Value(position int) (any, error) {
	if position < 0 || position >= len(r) {
		return nil, fmt.Errorf("basic: column %d out of range [0,%d)", position, len(r))
	}
	return r[position], nil
}

// argStatement 收集适配器绑定的参数
type argStatement struct {
	args []any
}

func (s *argStatement) grow(position int) error {
	if position < 0 {
		return fmt.Errorf("basic: negative parameter position %d", position)
	}
	for len(s.args) <= position {
		s.args = append(s.args, nil)
	}
	return nil
}

func (s *argStatement) SetValue(position int, value any) error {
	if err := s.grow(position); err != nil {
		return err
	}
	s.args[position] = value
	return nil
}

func (s *argStatement) SetNull(position int, _ usertype.SQLType) error {
	if err := s.grow(position); err != nil {
		return err
	}
	s.args[position] = nil
	return nil
}

// bindValue 将字段值转换为绑定参数
func (o *Orm) bindValue(fi *fieldInfo, value any) (any, error) {
	if fi.userType == nil {
		return value, nil
	}
	st := &argStatement{}
	if err := fi.userType.Set(st, value, 0, o); err != nil {
		return nil, errors.WrapError(err, errors.GetErrorCode(err), "bind column "+fi.Column)
	}
	if len(st.args) == 0 {
		return nil, nil
	}
	return st.args[0], nil
}

// scanRowsIntoDest 将 rows 扫描到 dest 中。
// 支持 dest 为 *T 或 *[]T（T 可以是结构体指针）。
func (o *Orm) scanRowsIntoDest(rows dbcore.IRows, dest any, meta *orm.ModelMeta) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("basic.scanRowsIntoDest: dest must be non-nil pointer")
	}

	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Slice:
		elemType := elem.Type().Elem()
		ptrElem := elemType.Kind() == reflect.Ptr
		if ptrElem {
			elemType = elemType.Elem()
		}
		for rows.Next() {
			item := reflect.New(elemType)
			if err := o.scanOneRow(rows, item.Elem(), meta); err != nil {
				return err
			}
			if ptrElem {
				elem.Set(reflect.Append(elem, item))
			} else {
				elem.Set(reflect.Append(elem, item.Elem()))
			}
		}
		return rows.Err()
	case reflect.Struct:
		// First 已手动 Next() 过一行，这里直接扫描当前行
		return o.scanOneRow(rows, elem, meta)
	default:
		return fmt.Errorf("basic.scanRowsIntoDest: unsupported dest element kind %s", elem.Kind())
	}
}

func (o *Orm) scanOneRow(rows dbcore.IRows, v reflect.Value, meta *orm.ModelMeta) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	sm, err := o.metaForType(v.Type(), meta)
	if err != nil {
		return err
	}

	destPtrs := make([]any, len(cols))
	raw := make(rowValues, len(cols))
	var converted []int
	for i, col := range cols {
		fi, ok := sm.columnToInfo[col]
		if !ok {
			destPtrs[i] = &raw[i]
			continue
		}
		fv := fieldByIndexSafe(v, fi.Index)
		if !fv.IsValid() || !fv.CanSet() {
			destPtrs[i] = &raw[i]
			continue
		}
		if fi.userType != nil {
			// 适配器列先读取为原始值，扫描后再转换
			destPtrs[i] = &raw[i]
			converted = append(converted, i)
			continue
		}
		destPtrs[i] = fv.Addr().Interface()
	}

	if err := rows.Scan(destPtrs...); err != nil {
		return err
	}

	owner := v.Addr().Interface()
	for _, i := range converted {
		fi := sm.columnToInfo[cols[i]]
		value, err := fi.userType.Get(raw, i, o, owner)
		if err != nil {
			return errors.WrapError(err, errors.GetErrorCode(err), "read column "+fi.Column)
		}
		if err := assignField(fieldByIndexSafe(v, fi.Index), value); err != nil {
			return err
		}
	}
	return nil
}

// assignField 将领域值写入类型为 T 或 *T 的字段，nil 写入零值
func assignField(fv reflect.Value, value any) error {
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}
	if fv.Kind() == reflect.Ptr && rv.Type().AssignableTo(fv.Type().Elem()) {
		p := reflect.New(fv.Type().Elem())
		p.Elem().Set(rv)
		fv.Set(p)
		return nil
	}
	return errors.NewErrorf(errors.ErrCodeInvalidInput, "basic: cannot assign %T to field of type %s", value, fv.Type())
}
