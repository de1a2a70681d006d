package usertype_test

import (
	"database/sql"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixsql/errors"
	"matrixsql/usertype"
	"matrixsql/usertype/usertypetest"
)

var (
	tagsDecodes atomic.Int32
	tagsEncodes atomic.Int32
)

// tagsMapper 以分隔符连接的字符串列表，空列表即 NULL
type tagsMapper struct {
	usertype.StringColumn
	sep string
}

func newTagsMapper() usertype.ColumnMapper[[]string, string] { return &tagsMapper{sep: ","} }

func (m *tagsMapper) Configure(p usertype.Parameters) error {
	m.sep = p.Lookup("separator", ",")
	if m.sep == "" {
		return usertype.NewConfigurationError("empty separator")
	}
	return nil
}

func (m *tagsMapper) FromNonNullValue(v string) ([]string, error) {
	tagsDecodes.Add(1)
	return strings.Split(v, m.sep), nil
}

func (m *tagsMapper) ToNonNullValue(v []string) (string, error) {
	tagsEncodes.Add(1)
	return strings.Join(v, m.sep), nil
}

func (m *tagsMapper) FromNonNullString(s string) ([]string, error) { return m.FromNonNullValue(s) }
func (m *tagsMapper) ToNonNullString(v []string) (string, error)   { return m.ToNonNullValue(v) }
func (m *tagsMapper) DeepCopy(v []string) []string                 { return slices.Clone(v) }
func (m *tagsMapper) IsEmpty(v []string) bool                      { return len(v) == 0 }
func (m *tagsMapper) Empty() []string                              { return []string{} }

// presetTagsMapper 构造时已带分隔符
type presetTagsMapper struct {
	tagsMapper
}

func newPresetTagsMapper() usertype.ColumnMapper[[]string, string] {
	return &presetTagsMapper{tagsMapper{sep: ","}}
}

func (m *presetTagsMapper) HasDefaults() bool { return m.sep != "" }

// countMapper 不可配置的 BIGINT 映射
type countMapper struct {
	usertype.Int64Column
}

func newCountMapper() usertype.ColumnMapper[int, int64] { return countMapper{} }

func (countMapper) FromNonNullValue(v int64) (int, error) { return int(v), nil }
func (countMapper) ToNonNullValue(v int) (int64, error)   { return int64(v), nil }
func (countMapper) FromNonNullString(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usertype.NewFormatError(s, s, "integer", err)
	}
	return n, nil
}
func (countMapper) ToNonNullString(v int) (string, error) { return strconv.Itoa(v), nil }

// refMapper 领域值为指针，用于验证空引用拦截
type refMapper struct {
	usertype.Int64Column
}

func newRefMapper() usertype.ColumnMapper[*int, int64] { return refMapper{} }

func (refMapper) FromNonNullValue(v int64) (*int, error) { n := int(v); return &n, nil }
func (refMapper) ToNonNullValue(v *int) (int64, error)   { return int64(*v), nil }
func (refMapper) FromNonNullString(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	return &n, err
}
func (refMapper) ToNonNullString(v *int) (string, error) { return strconv.Itoa(*v), nil }

// anyMapper 任意领域值，用于验证不可序列化的缓存形式
type anyMapper struct {
	usertype.StringColumn
}

func newAnyMapper() usertype.ColumnMapper[any, string] { return anyMapper{} }

func (anyMapper) FromNonNullValue(v string) (any, error)  { return v, nil }
func (anyMapper) ToNonNullValue(v any) (string, error)    { return v.(string), nil }
func (anyMapper) FromNonNullString(s string) (any, error) { return s, nil }
func (anyMapper) ToNonNullString(v any) (string, error)   { return v.(string), nil }
func (anyMapper) DeepCopy(v any) any                      { return v }

func configuredTags(t *testing.T, params usertype.Parameters) *usertype.SingleColumnType[[]string, string] {
	t.Helper()
	ut, err := usertype.Of(newTagsMapper, usertype.WithName("tags"))
	require.NoError(t, err)
	require.NoError(t, ut.Configure(params))
	return ut
}

func codeOfPanic(fn func()) (code errors.ErrorCode) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				code = errors.GetErrorCode(err)
			}
		}
	}()
	fn()
	return ""
}

func TestOf_Construction(t *testing.T) {
	t.Run("nil supplier", func(t *testing.T) {
		_, err := usertype.Of[int, int64](nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("supplier returns nil", func(t *testing.T) {
		_, err := usertype.Of(func() usertype.ColumnMapper[[]string, string] {
			var m *tagsMapper
			return m
		})
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("supplier panics", func(t *testing.T) {
		_, err := usertype.Of(func() usertype.ColumnMapper[int, int64] { panic("boom") })
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("MustOf panics", func(t *testing.T) {
		assert.Panics(t, func() { usertype.MustOf[int, int64](nil) })
	})

	t.Run("metadata", func(t *testing.T) {
		ut := usertype.MustOf(newCountMapper)
		assert.Equal(t, usertype.SQLTypeBigInt, ut.SQLType())
		assert.Equal(t, usertype.TransportLong, ut.TransportType())
		assert.Equal(t, "int", ut.ReturnedType().String())
		assert.False(t, ut.IsMutable())
		assert.Contains(t, ut.Name(), "countMapper")
	})
}

func TestLifecycle(t *testing.T) {
	s := usertypetest.NewSession()

	t.Run("non configurable mapper is ready immediately", func(t *testing.T) {
		ut := usertype.MustOf(newCountMapper)
		assert.True(t, ut.IsConfigured())
		v, err := ut.NullSafeGet(usertypetest.Row{int64(7)}, 0, s, nil)
		require.NoError(t, err)
		assert.Equal(t, sql.Null[int]{V: 7, Valid: true}, v)
	})

	t.Run("use before configure", func(t *testing.T) {
		ut := usertype.MustOf(newTagsMapper)
		assert.False(t, ut.IsConfigured())
		_, err := ut.NullSafeGet(usertypetest.Row{"a"}, 0, s, nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("mapper with defaults is ready immediately", func(t *testing.T) {
		ut := usertype.MustOf(newPresetTagsMapper)
		assert.True(t, ut.IsConfigured())
		v, err := ut.NullSafeGet(usertypetest.Row{"a,b"}, 0, s, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, v.V)

		err = ut.Configure(usertype.Parameters{"separator": "#"})
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("configure after use", func(t *testing.T) {
		ut := configuredTags(t, nil)
		require.NoError(t, ut.Configure(usertype.Parameters{"separator": "#"}))
		_, err := ut.ToString([]string{"a"})
		require.NoError(t, err)

		err = ut.Configure(usertype.Parameters{"separator": ";"})
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))

		text, err := ut.ToString([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, "a#b", text)
	})

	t.Run("mapper rejects parameters", func(t *testing.T) {
		ut := usertype.MustOf(newTagsMapper)
		err := ut.Configure(usertype.Parameters{"separator": ""})
		require.Error(t, err)
		assert.False(t, ut.IsConfigured())
	})

	t.Run("overrides after use panic", func(t *testing.T) {
		ut := usertype.MustOf(newCountMapper)
		_, err := ut.ToString(1)
		require.NoError(t, err)
		assert.Equal(t, errors.ErrCodeConfiguration, codeOfPanic(func() { ut.WithExtractor(nil) }))
	})
}

func TestNullSafeGet(t *testing.T) {
	s := usertypetest.NewSession()
	ut := configuredTags(t, usertype.Parameters{"separator": "#"})

	t.Run("value", func(t *testing.T) {
		v, err := ut.NullSafeGet(usertypetest.Row{int64(1), "a#b"}, 1, s, nil)
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Equal(t, []string{"a", "b"}, v.V)
	})

	t.Run("null skips mapper and yields empty", func(t *testing.T) {
		before := tagsDecodes.Load()
		v, err := ut.NullSafeGet(usertypetest.Row{nil}, 0, s, nil)
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Equal(t, []string{}, v.V)
		assert.Equal(t, before, tagsDecodes.Load())
	})

	t.Run("null without empty form", func(t *testing.T) {
		counts := usertype.MustOf(newCountMapper)
		v, err := counts.NullSafeGet(usertypetest.Row{nil}, 0, s, nil)
		require.NoError(t, err)
		assert.False(t, v.Valid)
	})

	t.Run("row error", func(t *testing.T) {
		_, err := ut.NullSafeGet(usertypetest.Row{}, 3, s, nil)
		require.Error(t, err)
	})

	t.Run("session without basic types", func(t *testing.T) {
		_, err := ut.NullSafeGet(usertypetest.Row{"a"}, 0, usertypetest.Session{}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("custom extractor", func(t *testing.T) {
		custom := configuredTags(t, nil).WithExtractor(func(rs usertype.ResultSet, position int, _ usertype.Session) (string, bool, error) {
			raw, err := rs.Value(position + 1)
			if err != nil || raw == nil {
				return "", false, err
			}
			return raw.(string), true, nil
		})
		v, err := custom.NullSafeGet(usertypetest.Row{"ignored", "x,y"}, 0, s, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, v.V)
	})
}

func TestNullSafeSet(t *testing.T) {
	s := usertypetest.NewSession()
	ut := configuredTags(t, usertype.Parameters{"separator": "#"})

	t.Run("value", func(t *testing.T) {
		st := usertypetest.NewStatement()
		require.NoError(t, ut.NullSafeSet(st, sql.Null[[]string]{V: []string{"a", "b"}, Valid: true}, 2, s))
		assert.Equal(t, "a#b", st.Values[2])
	})

	t.Run("null", func(t *testing.T) {
		st := usertypetest.NewStatement()
		before := tagsEncodes.Load()
		require.NoError(t, ut.NullSafeSet(st, sql.Null[[]string]{}, 0, s))
		assert.Equal(t, usertype.SQLTypeVarchar, st.Nulls[0])
		assert.Equal(t, before, tagsEncodes.Load())
	})

	t.Run("empty is stored as null", func(t *testing.T) {
		st := usertypetest.NewStatement()
		require.NoError(t, ut.NullSafeSet(st, sql.Null[[]string]{V: []string{}, Valid: true}, 0, s))
		assert.True(t, st.IsNull(0))
	})

	t.Run("custom binder", func(t *testing.T) {
		var bound *string
		custom := configuredTags(t, nil).WithBinder(func(_ usertype.Statement, value *string, _ int, _ usertype.Session) error {
			bound = value
			return nil
		})
		require.NoError(t, custom.NullSafeSet(usertypetest.NewStatement(), sql.Null[[]string]{V: []string{"q"}, Valid: true}, 0, s))
		require.NotNil(t, bound)
		assert.Equal(t, "q", *bound)
	})

	t.Run("nil reference reaching mapper is a defect", func(t *testing.T) {
		refs := usertype.MustOf(newRefMapper)
		code := codeOfPanic(func() {
			_ = refs.NullSafeSet(usertypetest.NewStatement(), sql.Null[*int]{Valid: true}, 0, s)
		})
		assert.Equal(t, errors.ErrCodeNullPolicy, code)
	})
}

func TestEqualityAndCopy(t *testing.T) {
	ut := configuredTags(t, nil)

	a := []string{"x", "y"}
	b := []string{"x", "y"}
	assert.True(t, ut.Equals(a, b))
	assert.Equal(t, ut.HashCode(a), ut.HashCode(b))
	assert.False(t, ut.Equals(a, []string{"y", "x"}))

	assert.True(t, ut.IsMutable())
	cp := ut.DeepCopy(a)
	require.Equal(t, a, cp)
	cp[0] = "changed"
	assert.Equal(t, "x", a[0])

	counts := usertype.MustOf(newCountMapper)
	assert.Equal(t, 5, counts.DeepCopy(5))
}

func TestDisassembleAssemble(t *testing.T) {
	ut := configuredTags(t, nil)

	original := []string{"a", "", "c"}
	cached, err := ut.Disassemble(original)
	require.NoError(t, err)

	original[0] = "mutated"

	restored, err := ut.Assemble(cached, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "c"}, restored)

	t.Run("unserializable", func(t *testing.T) {
		anyType := usertype.MustOf(newAnyMapper)
		_, err := anyType.Disassemble(make(chan int))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrCodeCacheSerialization))
	})

	t.Run("corrupt cache entry", func(t *testing.T) {
		_, err := ut.Assemble([]byte("{not json"), nil)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrCodeCacheSerialization))
	})
}

func TestLiteralAndString(t *testing.T) {
	ut := configuredTags(t, usertype.Parameters{"separator": "|"})

	lit, err := ut.ToSQLLiteral(sql.Null[[]string]{V: []string{"a", "b"}, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{String: "a|b", Valid: true}, lit)

	lit, err = ut.ToSQLLiteral(sql.Null[[]string]{})
	require.NoError(t, err)
	assert.False(t, lit.Valid)

	v, err := ut.FromString("p|q")
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q"}, v)

	counts := usertype.MustOf(newCountMapper)
	_, err = counts.FromString("seven")
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))
	assert.Equal(t, "seven", errors.Detail(err, "input"))
}

func TestUntyped(t *testing.T) {
	s := usertypetest.NewSession()
	ut := usertype.MustOf(newCountMapper).Untyped()

	st := usertypetest.NewStatement()
	require.NoError(t, ut.Set(st, 3, 0, s))
	n := 4
	require.NoError(t, ut.Set(st, &n, 1, s))
	require.NoError(t, ut.Set(st, nil, 2, s))
	var nilPtr *int
	require.NoError(t, ut.Set(st, nilPtr, 3, s))
	assert.Equal(t, int64(3), st.Values[0])
	assert.Equal(t, int64(4), st.Values[1])
	assert.True(t, st.IsNull(2))
	assert.True(t, st.IsNull(3))

	err := ut.Set(st, "3", 4, s)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCodeInvalidInput))

	v, err := ut.Get(usertypetest.Row{int64(9), nil}, 0, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	v, err = ut.Get(usertypetest.Row{int64(9), nil}, 1, s, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.True(t, ut.Equal(nil, nil))
	assert.False(t, ut.Equal(nil, 1))
	assert.True(t, ut.Equal(1, &[]int{1}[0]))
	assert.Equal(t, uint64(0), ut.Hash(nil))

	cached, err := ut.Disassemble(12)
	require.NoError(t, err)
	back, err := ut.Assemble(cached, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, back)

	text, err := ut.Format(12)
	require.NoError(t, err)
	assert.Equal(t, "12", text)
	_, err = ut.Format(nil)
	require.Error(t, err)

	parsed, err := ut.Parse("13")
	require.NoError(t, err)
	assert.Equal(t, 13, parsed)

	lit, err := ut.Literal(14)
	require.NoError(t, err)
	assert.Equal(t, "14", lit.String)
}
