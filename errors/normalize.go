package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
)

// Normalize 将标准库与驱动层的常见错误规范化为 AppError。
//
// 注意：
//   - 已经是 IError 的错误原样返回；
//   - 未识别的错误保持原样，交由调用方决定是否 Wrap。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	switch {
	case stdErrors.Is(err, sql.ErrNoRows):
		return WrapError(err, ErrCodeNotFound, "记录未找到")
	case stdErrors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrCodeTimeout, "操作超时")
	case stdErrors.Is(err, context.Canceled):
		return WrapError(err, ErrCodeTimeout, "操作已取消")
	case stdErrors.Is(err, sql.ErrTxDone):
		return WrapError(err, ErrCodeConflict, "事务已结束")
	}

	return err
}
