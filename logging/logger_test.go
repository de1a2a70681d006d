package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"字符串", "test", "test"},
		{"错误", errors.New("error message"), "error message"},
		{"整数", 123, "123"},
		{"布尔值", true, "true"},
		{"Stringer", InfoLevel, "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestStdLogger_WritesLevelMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLoggerTo(&buf, "orm")

	logger.Warn(context.Background(), "slow query", String("table", "users"), Int("rows", 3))

	out := buf.String()
	assert.Contains(t, out, "[WARN] orm slow query")
	assert.Contains(t, out, "table=users")
	assert.Contains(t, out, "rows=3")
}

func TestStdLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLoggerTo(&buf, "").WithLevel(WarnLevel)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Error(ctx, "error message", Error(errors.New("boom")))
	assert.Contains(t, buf.String(), "[ERROR] error message error=boom")
}

func TestStdLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewStdLoggerTo(&buf, "")
	child := parent.WithFields(String("session", "s-1"))

	parent.Info(context.Background(), "parent")
	assert.NotContains(t, buf.String(), "session=s-1")

	buf.Reset()
	child.Info(context.Background(), "child")
	assert.Contains(t, buf.String(), "session=s-1")
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"debug": DebugLevel, "": InfoLevel, "INFO": InfoLevel, "warning": WarnLevel, "error": ErrorLevel,
	} {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestGlobalLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	noop := NewNoopLogger()
	SetLogger(noop)
	assert.Same(t, noop, GetLogger())
	assert.Same(t, noop, noop.WithFields(String("k", "v")))
}
