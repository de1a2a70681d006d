package repo

import (
	"context"

	"matrixsql/errors"
	"matrixsql/logging"
)

// Save 新增实体
func (r *Repo[T, ID]) Save(ctx context.Context, entity *T) error {
	if err := r.model.Create(ctx, entity); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to save record")
	}
	logging.GetLogger().Debug(ctx, "entity saved", logging.String("table", r.model.Meta().Table))
	return nil
}

// SaveAll 批量新增
func (r *Repo[T, ID]) SaveAll(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	items := make([]any, len(entities))
	for i := range entities {
		items[i] = entities[i]
	}
	if err := r.model.Create(ctx, items...); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to save records")
	}
	logging.GetLogger().Debug(ctx, "entities saved",
		logging.String("table", r.model.Meta().Table),
		logging.Int("count", len(entities)),
	)
	return nil
}

// Update 按主键更新实体
func (r *Repo[T, ID]) Update(ctx context.Context, entity *T) error {
	if err := r.model.Save(ctx, entity); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to update record")
	}
	return nil
}

// Delete 按主键删除，记录不存在时返回 NOT_FOUND
func (r *Repo[T, ID]) Delete(ctx context.Context, id ID) error {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewErrorf(errors.ErrCodeNotFound, "record %v not found", id)
	}
	arg, err := r.model.ColumnValue(r.pk, id)
	if err != nil {
		return err
	}
	if err := r.query(ctx).Column(r.pk, arg).Delete(); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to delete record")
	}
	logging.GetLogger().Debug(ctx, "entity deleted",
		logging.String("table", r.model.Meta().Table),
		logging.Any("id", id),
	)
	return nil
}

// DeleteAll 删除表内全部记录
func (r *Repo[T, ID]) DeleteAll(ctx context.Context) error {
	if err := r.query(ctx).Where("1 = 1").Delete(); err != nil {
		return errors.WrapError(err, errors.ErrCodeDatabase, "failed to delete records")
	}
	return nil
}
