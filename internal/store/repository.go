package store

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a referenced row does not exist
var ErrNotFound = stderrors.New("record not found")

// ListQuery describes a filtered, ordered and optionally paginated listing
type ListQuery struct {
	Scopes   []func(*gorm.DB) *gorm.DB
	Order    string
	Preload  []string
	Page     int // 1-based, 0 returns every row
	PageSize int
}

// Page is one slice of a listing. Total and Pages always describe the whole
// filtered set, not just Items.
type Page[T any] struct {
	Items []T
	Total int64
	Pages int
}

// NumPages returns ceil(total / pageSize)
func NumPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Repository is the gorm backed store for one entity type
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository creates a repository bound to db, which may be a transaction
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) Create(ctx context.Context, v *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error; err != nil {
		return errors.Wrapf(err, "create %T", v)
	}
	return nil
}

// GetByID loads one row, eagerly loading the named relations
func (r *Repository[T]) GetByID(ctx context.Context, id int64, preload ...string) (*T, error) {
	var v T
	db := r.db.WithContext(ctx)
	for _, rel := range preload {
		db = db.Preload(rel)
	}
	err := db.First(&v, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%T id=%d", v, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %T id=%d", v, id)
	}
	return &v, nil
}

// Update writes every column of v to the existing row with v's primary key.
// Relations and created_at are left untouched; a missing row is ErrNotFound,
// never an insert.
func (r *Repository[T]) Update(ctx context.Context, v *T) error {
	res := r.db.WithContext(ctx).
		Model(v).
		Select("*").
		Omit(clause.Associations, "id", "created_at").
		Updates(v)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update %T", v)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%T", v)
	}
	return nil
}

// UpdateFields writes only the named columns of row id
func (r *Repository[T]) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update %T id=%d", new(T), id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%T id=%d", new(T), id)
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete %T id=%d", new(T), id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "%T id=%d", new(T), id)
	}
	return nil
}

// List runs q. A page past the last one yields no items and no error.
func (r *Repository[T]) List(ctx context.Context, q ListQuery) (*Page[T], error) {
	base := r.db.WithContext(ctx).Model(new(T)).Scopes(q.Scopes...)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, errors.Wrapf(err, "count %T", new(T))
	}

	page := &Page[T]{Items: []T{}, Total: total}
	if q.Page > 0 {
		page.Pages = NumPages(total, q.PageSize)
	} else {
		page.Pages = NumPages(total, 0)
	}

	query := base.Session(&gorm.Session{})
	for _, rel := range q.Preload {
		query = query.Preload(rel)
	}
	if q.Order != "" {
		query = query.Order(q.Order)
	}
	if q.Page > 0 && q.PageSize > 0 {
		if q.Page > page.Pages {
			return page, nil
		}
		query = query.Offset((q.Page - 1) * q.PageSize).Limit(q.PageSize)
	}

	if err := query.Find(&page.Items).Error; err != nil {
		return nil, errors.Wrapf(err, "list %T", new(T))
	}
	return page, nil
}

// Count returns the number of rows matching scopes
func (r *Repository[T]) Count(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&total).Error; err != nil {
		return 0, errors.Wrapf(err, "count %T", new(T))
	}
	return total, nil
}
