package columns_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixsql/errors"
	"matrixsql/usertype"
	"matrixsql/usertype/columns"
	"matrixsql/usertype/usertypetest"
)

func TestBoolean(t *testing.T) {
	ut, err := columns.BooleanType(nil)
	require.NoError(t, err)
	assert.Equal(t, usertype.SQLTypeInteger, ut.SQLType())
	s := usertypetest.NewSession()

	for raw, want := range map[int64]bool{0: false, 1: true, 5: true, -3: true} {
		v, err := ut.NullSafeGet(usertypetest.Row{raw}, 0, s, nil)
		require.NoError(t, err)
		assert.Equal(t, want, v.V, raw)
	}

	m := ut.Mapper()
	n, err := m.ToNonNullValue(true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)
	n, err = m.ToNonNullValue(false)
	require.NoError(t, err)
	assert.Equal(t, int32(0), n)

	text, err := ut.ToString(true)
	require.NoError(t, err)
	assert.Equal(t, "1", text)

	b, err := ut.FromString("0")
	require.NoError(t, err)
	assert.False(t, b)
	b, err = ut.FromString("7")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = ut.FromString("yes")
	require.Error(t, err)
	assert.True(t, errors.IsFormat(err))
}
