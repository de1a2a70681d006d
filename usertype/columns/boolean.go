package columns

import (
	"strconv"

	"matrixsql/usertype"
)

// BooleanMapper bool 与 INTEGER 之间转换：0 为 false，其余为 true
type BooleanMapper struct {
	usertype.Int32Column
}

func NewBooleanMapper() usertype.ColumnMapper[bool, int32] {
	return BooleanMapper{}
}

func (BooleanMapper) FromNonNullValue(value int32) (bool, error) {
	return value != 0, nil
}

func (BooleanMapper) ToNonNullValue(value bool) (int32, error) {
	if value {
		return 1, nil
	}
	return 0, nil
}

func (BooleanMapper) FromNonNullString(s string) (bool, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return false, usertype.NewFormatError(s, s, "integer flag such as 0 or 1", err)
	}
	return n != 0, nil
}

func (BooleanMapper) ToNonNullString(value bool) (string, error) {
	if value {
		return "1", nil
	}
	return "0", nil
}
