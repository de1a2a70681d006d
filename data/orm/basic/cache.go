package basic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"matrixsql/errors"
	"matrixsql/logging"
)

// entityState 实体的拆解状态，以列名为键
//
// 适配器列保存 Disassemble 的结果，其余列保存字段值的 JSON 编码。
type entityState map[string]json.RawMessage

var jsonNull = []byte("null")

func cacheKey(table string, id any) string {
	return fmt.Sprintf("%s:%v", table, id)
}

func cachePrefix(table string) string {
	return table + ":"
}

// disassemble 生成实体的拆解状态
func disassemble(sm *structMeta, v reflect.Value) ([]byte, error) {
	state := make(entityState, len(sm.fields))
	for _, fi := range sm.fields {
		fv := fieldByIndexSafe(v, fi.Index)
		if !fv.IsValid() {
			continue
		}
		var (
			raw []byte
			err error
		)
		if fi.userType != nil {
			raw, err = fi.userType.Disassemble(fv.Interface())
		} else {
			raw, err = json.Marshal(fv.Interface())
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeCacheSerialization, "disassemble column "+fi.Column)
		}
		if raw == nil {
			raw = jsonNull
		}
		state[fi.Column] = raw
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeCacheSerialization, "disassemble entity")
	}
	return data, nil
}

// assemble 由拆解状态恢复实体字段
func assemble(sm *structMeta, data []byte, v reflect.Value) error {
	var state entityState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.WrapError(err, errors.ErrCodeCacheSerialization, "assemble entity")
	}
	owner := v.Addr().Interface()
	for _, fi := range sm.fields {
		raw, ok := state[fi.Column]
		if !ok {
			continue
		}
		fv := fieldByIndexSafe(v, fi.Index)
		if !fv.IsValid() || !fv.CanSet() {
			continue
		}
		if fi.userType == nil {
			if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
				return errors.WrapError(err, errors.ErrCodeCacheSerialization, "assemble column "+fi.Column)
			}
			continue
		}
		if bytes.Equal(raw, jsonNull) {
			fv.Set(reflect.Zero(fv.Type()))
			continue
		}
		value, err := fi.userType.Assemble(raw, owner)
		if err != nil {
			return err
		}
		if err := assignField(fv, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *model) cachedLoad(ctx context.Context, sm *structMeta, v reflect.Value, key string) bool {
	region := m.orm.region
	state, ok, err := region.Get(ctx, key)
	if err != nil {
		logging.GetLogger().Warn(ctx, "l2 get failed", logging.String("key", key), logging.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := assemble(sm, state, v); err != nil {
		// 无法恢复的状态直接丢弃，回退到数据库
		logging.GetLogger().Warn(ctx, "l2 state discarded", logging.String("key", key), logging.Error(err))
		_ = region.Evict(ctx, key)
		v.Set(reflect.Zero(v.Type()))
		return false
	}
	return true
}

func (m *model) cacheStore(ctx context.Context, sm *structMeta, v reflect.Value, key string) {
	state, err := disassemble(sm, v)
	if err == nil {
		err = m.orm.region.Put(ctx, key, state)
	}
	if err != nil {
		logging.GetLogger().Warn(ctx, "l2 put failed", logging.String("key", key), logging.Error(err))
	}
}

func (m *model) evict(ctx context.Context, key string) error {
	if m.orm.region == nil {
		return nil
	}
	return m.orm.region.Evict(ctx, key)
}

func (m *model) evictAll(ctx context.Context) error {
	if m.orm.region == nil {
		return nil
	}
	return m.orm.region.EvictPrefix(ctx, cachePrefix(m.table))
}
