package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/store"
)

// Fixture files looked up in the import directory. Missing files are skipped.
const (
	categoryFixture = "category.csv"
	locationFixture = "location.csv"
	userFixture     = "user.csv"
	adFixture       = "ad.csv"
)

type categoryRow struct {
	ID   int64  `csv:"id"`
	Name string `csv:"name"`
}

type locationRow struct {
	ID   int64   `csv:"id"`
	Name string  `csv:"name"`
	Lat  float64 `csv:"lat"`
	Lng  float64 `csv:"lng"`
}

type userRow struct {
	ID         int64  `csv:"id"`
	FirstName  string `csv:"first_name"`
	LastName   string `csv:"last_name"`
	Username   string `csv:"username"`
	Password   string `csv:"password"`
	Role       string `csv:"role"`
	Age        int    `csv:"age"`
	LocationID int64  `csv:"location_id"`
}

type adRow struct {
	ID          int64   `csv:"id"`
	Name        string  `csv:"name"`
	AuthorID    int64   `csv:"author_id"`
	Price       float64 `csv:"price"`
	Description string  `csv:"description"`
	IsPublished string  `csv:"is_published"`
	Image       string  `csv:"image"`
	CategoryID  int64   `csv:"category_id"`
}

// ImportReport counts the rows written per fixture
type ImportReport struct {
	Categories int `json:"categories"`
	Locations  int `json:"locations"`
	Users      int `json:"users"`
	Ads        int `json:"ads"`
}

type fixtureSet struct {
	categories []categoryRow
	locations  []locationRow
	users      []userRow
	ads        []adRow
}

// ImportFixtures loads category, location, user and ad csv files from dir in
// one transaction. Rows keep their ids and are upserted, so importing the
// same directory twice is harmless.
func (a *Application) ImportFixtures(ctx context.Context, dir string) (*ImportReport, error) {
	set, err := loadFixtures(ctx, dir)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	err = a.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true}).Session(&gorm.Session{})

		for _, row := range set.categories {
			if err := upsert.Create(&domain.Category{ID: row.ID, Name: strings.TrimSpace(row.Name)}).Error; err != nil {
				return errors.Wrapf(err, "import category %d", row.ID)
			}
			report.Categories++
		}

		for _, row := range set.locations {
			loc := domain.Location{ID: row.ID, Name: strings.TrimSpace(row.Name), Lat: row.Lat, Lng: row.Lng}
			if err := upsert.Create(&loc).Error; err != nil {
				return errors.Wrapf(err, "import location %d", row.ID)
			}
			report.Locations++
		}

		for _, row := range set.users {
			role := strings.ToLower(strings.TrimSpace(row.Role))
			if !domain.ValidRole(role) {
				role = domain.RoleMember
			}
			u := domain.User{
				ID:        row.ID,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Username:  row.Username,
				Password:  row.Password,
				Role:      role,
				Age:       row.Age,
			}
			if err := upsert.Omit(clause.Associations).Create(&u).Error; err != nil {
				return errors.Wrapf(err, "import user %d", row.ID)
			}
			if row.LocationID != 0 {
				if err := linkUserLocation(ctx, tx, u.ID, row.LocationID); err != nil {
					return err
				}
			}
			report.Users++
		}

		for _, row := range set.ads {
			ad := domain.Ad{
				ID:          row.ID,
				Name:        row.Name,
				Price:       row.Price,
				Description: row.Description,
				IsPublished: cast.ToBool(strings.TrimSpace(row.IsPublished)),
				CategoryID:  row.CategoryID,
				UserID:      row.AuthorID,
				Image:       strings.TrimSpace(row.Image),
			}
			if err := upsert.Omit(clause.Associations).Create(&ad).Error; err != nil {
				return errors.Wrapf(err, "import ad %d", row.ID)
			}
			report.Ads++
		}

		return resetSequences(tx)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("fixtures imported",
		zap.String("dir", dir),
		zap.Int("categories", report.Categories),
		zap.Int("locations", report.Locations),
		zap.Int("users", report.Users),
		zap.Int("ads", report.Ads))
	return report, nil
}

func loadFixtures(ctx context.Context, dir string) (*fixtureSet, error) {
	set := &fixtureSet{}
	g, _ := errgroup.WithContext(ctx)
	// each goroutine fills its own field of set
	g.Go(func() error { return readFixture(dir, categoryFixture, &set.categories) })
	g.Go(func() error { return readFixture(dir, locationFixture, &set.locations) })
	g.Go(func() error { return readFixture(dir, userFixture, &set.users) })
	g.Go(func() error { return readFixture(dir, adFixture, &set.ads) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

func readFixture(dir, name string, out interface{}) error {
	f, err := os.Open(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		zap.L().Warn("fixture file not found, skipped", zap.String("file", name))
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open fixture %s", name)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return errors.Wrapf(err, "parse fixture %s", name)
	}
	return nil
}

func linkUserLocation(ctx context.Context, tx *gorm.DB, userID, locationID int64) error {
	resolver := store.NewResolver(tx)
	if _, err := resolver.ResolveLocationByID(ctx, locationID); err != nil {
		return errors.Wrapf(err, "user %d refers to location %d", userID, locationID)
	}
	return resolver.LinkLocations(ctx, userID, []int64{locationID})
}

// resetSequences moves postgres id sequences past the imported ids
func resetSequences(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	tables := []string{
		domain.Category{}.TableName(),
		domain.Location{}.TableName(),
		domain.User{}.TableName(),
		domain.Ad{}.TableName(),
	}
	for _, table := range tables {
		stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if err := tx.Exec(stmt).Error; err != nil {
			return errors.Wrapf(err, "reset sequence of %s", table)
		}
	}
	return nil
}
