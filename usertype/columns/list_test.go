package columns_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixsql/errors"
	"matrixsql/usertype"
	"matrixsql/usertype/columns"
	"matrixsql/usertype/usertypetest"
)

func ints(values ...int) []*int {
	out := make([]*int, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

func TestIntegerList_HashSeparator(t *testing.T) {
	ut, err := columns.IntegerListType(usertype.Parameters{"separator": "#"})
	require.NoError(t, err)
	s := usertypetest.NewSession()

	st := usertypetest.NewStatement()
	require.NoError(t, ut.NullSafeSet(st, sql.Null[[]*int]{V: ints(1, 2, 3), Valid: true}, 0, s))
	assert.Equal(t, "1#2#3", st.Values[0])

	v, err := ut.NullSafeGet(usertypetest.Row{"1#2#3"}, 0, s, nil)
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2, 3), v.V)
}

func TestIntegerList_NullElements(t *testing.T) {
	m := columns.NewIntegerListMapper()

	text, err := m.ToNonNullValue([]*int{ints(1)[0], nil, ints(3)[0]})
	require.NoError(t, err)
	assert.Equal(t, "1,,3", text)

	v, err := m.FromNonNullValue("1,,3")
	require.NoError(t, err)
	require.Len(t, v, 3)
	assert.Equal(t, 1, *v[0])
	assert.Nil(t, v[1])
	assert.Equal(t, 3, *v[2])

	v, err = m.FromNonNullValue(" 4 , 5")
	require.NoError(t, err)
	assert.Equal(t, ints(4, 5), v)

	v, err = m.FromNonNullValue("")
	require.NoError(t, err)
	assert.Equal(t, []*int{nil}, v)
}

func TestIntegerList_MalformedElement(t *testing.T) {
	m := columns.NewIntegerListMapper()
	_, err := m.FromNonNullValue("1,x,3")
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))
	assert.Equal(t, "1,x,3", errors.Detail(err, "input"))
	assert.Equal(t, "x", errors.Detail(err, "substring"))
}

func TestIntegerList_SeparatorCollision(t *testing.T) {
	ut, err := columns.IntegerListType(usertype.Parameters{"separator": "-"})
	require.NoError(t, err)
	_, err = ut.ToString(ints(-1, 2))
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))
}

func TestIntegerList_DeepCopy(t *testing.T) {
	ut, err := columns.IntegerListType(nil)
	require.NoError(t, err)
	assert.True(t, ut.IsMutable())

	original := []*int{ints(1)[0], nil}
	cp := ut.DeepCopy(original)
	require.True(t, ut.Equals(original, cp))

	*cp[0] = 99
	cp[1] = ints(2)[0]
	assert.Equal(t, 1, *original[0])
	assert.Nil(t, original[1])
	assert.Nil(t, ut.DeepCopy(nil))
}

func TestIntegerList_HashCodeFollowsValues(t *testing.T) {
	ut, err := columns.IntegerListType(nil)
	require.NoError(t, err)

	a, b := ints(1, 2, 3), ints(1, 2, 3)
	require.True(t, ut.Equals(a, b))
	assert.Equal(t, ut.HashCode(a), ut.HashCode(b))
	assert.Equal(t, ut.HashCode([]*int{ints(4)[0], nil}), ut.HashCode([]*int{ints(4)[0], nil}))
	assert.NotEqual(t, ut.HashCode(a), ut.HashCode(ints(3, 2, 1)))
}

func TestIntegerList_DefaultsWithoutConfigure(t *testing.T) {
	implicit := usertype.MustOf(columns.NewIntegerListMapper)
	assert.True(t, implicit.IsConfigured())
	explicit := usertype.MustOf(columns.NewIntegerListMapper)
	require.NoError(t, explicit.Configure(usertype.Parameters{"separator": ","}))

	a, err := implicit.ToString(ints(1, 2, 3))
	require.NoError(t, err)
	b, err := explicit.ToString(ints(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", a)
	assert.Equal(t, b, a)

	v, err := implicit.NullSafeGet(usertypetest.Row{"4,,5"}, 0, usertypetest.NewSession(), nil)
	require.NoError(t, err)
	assert.Equal(t, []*int{ints(4)[0], nil, ints(5)[0]}, v.V)
}

func TestStringList_DefaultsWithoutConfigure(t *testing.T) {
	implicit := usertype.MustOf(columns.NewStringListMapper)
	assert.True(t, implicit.IsConfigured())
	explicit := usertype.MustOf(columns.NewStringListMapper)
	require.NoError(t, explicit.Configure(usertype.Parameters{"separator": ","}))

	a, err := implicit.ToString([]string{"x", "y"})
	require.NoError(t, err)
	b, err := explicit.ToString([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestStringList_EmptyIsNull(t *testing.T) {
	ut, err := columns.StringListType(nil)
	require.NoError(t, err)
	s := usertypetest.NewSession()

	st := usertypetest.NewStatement()
	require.NoError(t, ut.NullSafeSet(st, sql.Null[[]string]{V: []string{}, Valid: true}, 0, s))
	assert.Equal(t, usertype.SQLTypeVarchar, st.Nulls[0])

	v, err := ut.NullSafeGet(usertypetest.Row{nil}, 0, s, nil)
	require.NoError(t, err)
	require.True(t, v.Valid)
	assert.NotNil(t, v.V)
	assert.Empty(t, v.V)
}

func TestStringList_MultiCharacterSeparator(t *testing.T) {
	ut, err := columns.StringListType(usertype.Parameters{"separator": "::"})
	require.NoError(t, err)

	text, err := ut.ToString([]string{"a:b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "a:b::c", text)

	back, err := ut.FromString(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:b", "c"}, back)

	back, err = ut.FromString("a::::b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b"}, back)

	_, err = ut.ToString([]string{"a::b", "c"})
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))

	_, err = ut.ToString([]string{"a:", ":b"})
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))
}

func TestStringList_DefaultEqualsExplicit(t *testing.T) {
	implicit, err := columns.StringListType(nil)
	require.NoError(t, err)
	explicit, err := columns.StringListType(usertype.Parameters{"separator": ","})
	require.NoError(t, err)

	value := []string{"x", "", "z"}
	a, err := implicit.ToString(value)
	require.NoError(t, err)
	b, err := explicit.ToString(value)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	lit, err := explicit.ToSQLLiteral(sql.Null[[]string]{V: value, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, "x,,z", lit.String)
}

func TestStringList_DeepCopy(t *testing.T) {
	ut, err := columns.StringListType(nil)
	require.NoError(t, err)

	original := []string{"a", "b"}
	cp := ut.DeepCopy(original)
	cp[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, original)

	cached, err := ut.Disassemble(original)
	require.NoError(t, err)
	restored, err := ut.Assemble(cached, nil)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestList_EmptySeparatorRejected(t *testing.T) {
	_, err := columns.StringListType(usertype.Parameters{"separator": ""})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}
