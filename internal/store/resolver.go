package store

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/adboard/internal/domain"
)

// Resolver links ads and users to categories and locations.
//
// Creation payloads cite related rows by name and get them created on
// demand; update payloads cite them by id and never create anything.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveCategoryByName returns the category called name, creating it if absent
func (r *Resolver) ResolveCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	return findOrCreateByName(ctx, r.db, name, &domain.Category{Name: name})
}

// ResolveLocationByName returns the location called name, creating it if absent.
// A created location has zero coordinates.
func (r *Resolver) ResolveLocationByName(ctx context.Context, name string) (*domain.Location, error) {
	return findOrCreateByName(ctx, r.db, name, &domain.Location{Name: name})
}

// ResolveLocationByID returns ErrNotFound when id does not exist
func (r *Resolver) ResolveLocationByID(ctx context.Context, id int64) (*domain.Location, error) {
	return NewRepository[domain.Location](r.db).GetByID(ctx, id)
}

// ResolveCategoryByID returns ErrNotFound when id does not exist
func (r *Resolver) ResolveCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	return NewRepository[domain.Category](r.db).GetByID(ctx, id)
}

// findOrCreateByName looks the row up by its unique name and inserts row when
// it is missing. The insert is ON CONFLICT (name) DO NOTHING, so a concurrent
// writer that wins the race leaves us with its row on the second lookup
// instead of a duplicate or a constraint error.
func findOrCreateByName[T any](ctx context.Context, db *gorm.DB, name string, row *T) (*T, error) {
	db = db.WithContext(ctx)

	var found T
	err := db.Where("name = ?", name).Take(&found).Error
	if err == nil {
		return &found, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(err, "lookup %T name=%q", row, name)
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "insert %T name=%q", row, name)
	}
	if res.RowsAffected == 0 {
		zap.L().Debug("find-or-create lost insert race, refetching",
			zap.String("namespace", "store"),
			zap.String("name", name))
	}

	var resolved T
	if err := db.Where("name = ?", name).Take(&resolved).Error; err != nil {
		return nil, errors.Wrapf(err, "refetch %T name=%q", row, name)
	}
	return &resolved, nil
}

// LinkLocations adds locationIDs to the user's location set. Links that
// already exist are left alone, so the set only ever grows.
func (r *Resolver) LinkLocations(ctx context.Context, userID int64, locationIDs []int64) error {
	if len(locationIDs) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(locationIDs))
	links := make([]map[string]interface{}, 0, len(locationIDs))
	for _, id := range locationIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, map[string]interface{}{"user_id": userID, "location_id": id})
	}
	err := r.db.WithContext(ctx).
		Table(domain.UserLocationTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(links).Error
	if err != nil {
		return errors.Wrapf(err, "link user %d to locations %v", userID, locationIDs)
	}
	return nil
}

// UnlinkUser drops every location link of the user
func (r *Resolver) UnlinkUser(ctx context.Context, userID int64) error {
	return r.unlink(ctx, "user_id", userID)
}

// UnlinkLocation drops every user link of the location
func (r *Resolver) UnlinkLocation(ctx context.Context, locationID int64) error {
	return r.unlink(ctx, "location_id", locationID)
}

func (r *Resolver) unlink(ctx context.Context, column string, id int64) error {
	stmt := "DELETE FROM " + domain.UserLocationTable + " WHERE " + column + " = ?"
	if err := r.db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
		return errors.Wrapf(err, "unlink %s=%d", column, id)
	}
	return nil
}
