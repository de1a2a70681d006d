package orm

import "matrixsql/errors"

var (
	// ErrNotFound 表示记录未找到。
	ErrNotFound = errors.NewError(errors.ErrCodeNotFound, "orm: record not found")
	// ErrUnsupported 表示当前适配器不支持请求的能力。
	ErrUnsupported = errors.NewError(errors.ErrCodeUnsupported, "orm: capability unsupported")
)
