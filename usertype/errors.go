package usertype

import (
	"fmt"
	"reflect"

	"matrixsql/errors"
)

// NewFormatError 构造格式错误，记录原始输入、出错片段与期望格式。
func NewFormatError(input, substring, expected string, cause error) error {
	msg := fmt.Sprintf("cannot convert %q: unexpected %q, expected %s", input, substring, expected)
	var e errors.IError
	if cause != nil {
		e = errors.NewErrorWithCause(errors.ErrCodeFormat, msg, cause)
	} else {
		e = errors.NewError(errors.ErrCodeFormat, msg)
	}
	return e.WithDetails(map[string]any{
		"input":     input,
		"substring": substring,
		"expected":  expected,
	})
}

// NewConfigurationError 构造配置错误，属于启动期的致命错误。
func NewConfigurationError(format string, args ...any) error {
	return errors.NewErrorf(errors.ErrCodeConfiguration, format, args...)
}

func newCacheSerializationError(value any, cause error) error {
	return errors.NewErrorWithCause(errors.ErrCodeCacheSerialization,
		fmt.Sprintf("deep copy of %T is not serializable", value), cause)
}

// nullPolicyViolation 在空值漏过适配器进入映射器时触发，属于程序缺陷。
func nullPolicyViolation(op string, value any) {
	panic(errors.NewErrorf(errors.ErrCodeNullPolicy, "%s invoked with null %T", op, value))
}

func newTypeMismatchError(name string, want reflect.Type, value any) error {
	return errors.NewErrorf(errors.ErrCodeInvalidInput, "usertype %s: got %T, want %s", name, value, want)
}
