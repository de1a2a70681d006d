package basic

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColumnTag(t *testing.T) {
	type row struct {
		UUID      string `gorm:"primaryKey;default:uuid"`
		Snowflake int64  `gorm:"column:sid;primaryKey;default:Snowflake"`
		Auto      int64  `db:"auto" gorm:"primaryKey;autoIncrement"`
		Literal   int    `db:"n" gorm:"default:0"`
		JSON      string `json:"js,omitempty"`
	}
	tests := []struct {
		field      string
		column     string
		pk, auto   bool
		keyDefault string
	}{
		{"UUID", "", true, false, "uuid"},
		{"Snowflake", "sid", true, false, "snowflake"},
		{"Auto", "auto", true, true, ""},
		{"Literal", "n", false, false, ""},
		{"JSON", "js", false, false, ""},
	}
	typ := reflect.TypeOf(row{})
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, _ := typ.FieldByName(tt.field)
			column, pk, auto, keyDefault := parseColumnTag(f)
			assert.Equal(t, tt.column, column)
			assert.Equal(t, tt.pk, pk)
			assert.Equal(t, tt.auto, auto)
			assert.Equal(t, tt.keyDefault, keyDefault)
		})
	}
}

func TestBuildStructMeta_KeyDefaults(t *testing.T) {
	type entity struct {
		ID   string `db:"id" gorm:"primaryKey;default:uuid"`
		Seq  int64  `db:"seq" gorm:"primaryKey;default:snowflake"`
		Name string `db:"name" gorm:"default:uuid"`
	}
	sm, err := buildStructMeta(reflect.TypeOf(entity{}), nil, nil)
	assert.NoError(t, err)
	assert.True(t, sm.columnToInfo["id"].GenerateUUID)
	assert.True(t, sm.columnToInfo["seq"].GenerateSnowflake)
	assert.False(t, sm.columnToInfo["name"].GenerateUUID, "only primary keys get generated values")
}
