package store

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/internal/domain"
)

type userAdCount struct {
	UserID int64
	Total  int64
}

// PublishedAdCounts counts published ads per user for the given users only.
// Every requested id is present in the result; users without published ads
// map to 0.
func PublishedAdCounts(ctx context.Context, db *gorm.DB, userIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}
	for _, id := range userIDs {
		counts[id] = 0
	}

	users := domain.User{}.TableName()
	ads := domain.Ad{}.TableName()

	var rows []userAdCount
	err := db.WithContext(ctx).
		Table(users+" AS u").
		Select("u.id AS user_id, COUNT(a.id) AS total").
		Joins("LEFT JOIN "+ads+" AS a ON a.user_id = u.id AND a.is_published = ?", true).
		Where("u.id IN ?", userIDs).
		Group("u.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count published ads")
	}

	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}
