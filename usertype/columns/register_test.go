package columns_test

import (
	"testing"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matrixsql/usertype"
	"matrixsql/usertype/columns"
)

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	names := usertype.DefaultRegistry().Names()
	for _, name := range []string{
		columns.IntegerList, columns.StringList, columns.LocalDate, columns.LocalTime,
		columns.LocalDateTime, columns.LocalDateTimeInt, columns.BooleanInt,
	} {
		assert.Contains(t, names, name)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := usertype.NewRegistry()
	columns.RegisterAll(r)

	ut, err := r.Resolve(columns.LocalDate, usertype.Parameters{"pattern": "yyyyMMdd"})
	require.NoError(t, err)
	assert.Equal(t, "local_date", ut.Name())

	text, err := ut.Format(civil.Date{Year: 2053, Month: 1, Day: 24})
	require.NoError(t, err)
	assert.Equal(t, "20530124", text)

	parsed, err := ut.Parse("20530124")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2053, Month: 1, Day: 24}, parsed)

	assert.Panics(t, func() { columns.RegisterAll(r) })
}
