package store

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/adboard/internal/domain"
)

// ReplaceAdImage points ad id at key and returns the key it replaced. Only
// the image column is written, so concurrent edits of other fields survive.
func ReplaceAdImage(ctx context.Context, db *gorm.DB, id int64, key string) (string, error) {
	var previous string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Ad
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "image").
			Take(&current, id).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrapf(ErrNotFound, "ad id=%d", id)
		}
		if err != nil {
			return errors.Wrapf(err, "lock ad id=%d", id)
		}
		previous = current.Image
		return NewRepository[domain.Ad](tx).UpdateFields(ctx, id, map[string]interface{}{"image": key})
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}
