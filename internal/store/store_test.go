package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talkincode/adboard/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", filepath.Join(t.TempDir(), "store.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u := &domain.User{FirstName: "Test", LastName: "User", Username: username, Password: "secret", Role: domain.RoleMember, Age: 30}
	require.NoError(t, NewRepository[domain.User](db).Create(context.Background(), u))
	return u
}

func seedAd(t *testing.T, db *gorm.DB, user *domain.User, category *domain.Category, price float64, published bool) *domain.Ad {
	t.Helper()
	ad := &domain.Ad{
		Name:        fmt.Sprintf("ad-%v", price),
		Price:       price,
		Description: "test ad",
		IsPublished: published,
		CategoryID:  category.ID,
		UserID:      user.ID,
	}
	require.NoError(t, NewRepository[domain.Ad](db).Create(context.Background(), ad))
	return ad
}

func TestRepositoryCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository[domain.Category](db)

	cat := &domain.Category{Name: "Books"}
	require.NoError(t, repo.Create(ctx, cat))
	require.NotZero(t, cat.ID)

	got, err := repo.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, *cat, *got)

	got.Name = "Used books"
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Used books", again.Name)

	require.NoError(t, repo.Delete(ctx, cat.ID))

	_, err = repo.GetByID(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, cat.ID), ErrNotFound)
}

func TestRepositoryListPagination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "seller")
	cat := &domain.Category{Name: "Misc"}
	require.NoError(t, NewRepository[domain.Category](db).Create(ctx, cat))

	prices := []float64{10, 500, 20, 300, 300, 0, 42}
	for _, p := range prices {
		seedAd(t, db, user, cat, p, false)
	}

	repo := NewRepository[domain.Ad](db)
	const pageSize = 3

	var seen []domain.Ad
	for page := 1; page <= 4; page++ {
		res, err := repo.List(ctx, ListQuery{Order: "price DESC, id ASC", Preload: []string{"User"}, Page: page, PageSize: pageSize})
		require.NoError(t, err)
		assert.EqualValues(t, len(prices), res.Total)
		assert.Equal(t, 3, res.Pages)
		if page == 4 {
			assert.Empty(t, res.Items)
		}
		for _, ad := range res.Items {
			require.NotNil(t, ad.User)
			assert.Equal(t, "seller", ad.User.Username)
		}
		seen = append(seen, res.Items...)
	}

	require.Len(t, seen, len(prices))
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i-1].Price, seen[i].Price)
	}
}

func TestRepositoryListScopes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, "seller")
	cat := &domain.Category{Name: "Misc"}
	require.NoError(t, NewRepository[domain.Category](db).Create(ctx, cat))
	seedAd(t, db, user, cat, 1, true)
	seedAd(t, db, user, cat, 2, false)

	published := func(db *gorm.DB) *gorm.DB { return db.Where("is_published = ?", true) }
	res, err := NewRepository[domain.Ad](db).List(ctx, ListQuery{Scopes: []func(*gorm.DB) *gorm.DB{published}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, 1, res.Pages)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].IsPublished)
}

func TestNumPages(t *testing.T) {
	assert.Equal(t, 0, NumPages(0, 10))
	assert.Equal(t, 1, NumPages(10, 10))
	assert.Equal(t, 2, NumPages(11, 10))
	assert.Equal(t, 1, NumPages(5, 0))
}

func TestResolveCategoryByNameIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(db)

	first, err := r.ResolveCategoryByName(ctx, "Animals")
	require.NoError(t, err)
	second, err := r.ResolveCategoryByName(ctx, "Animals")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := NewRepository[domain.Category](db).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestResolveLocationByNameConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(db)

	const workers = 8
	ids := make([]int64, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			loc, err := r.ResolveLocationByName(ctx, "Kazan")
			if err != nil {
				return err
			}
			ids[i] = loc.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, err := NewRepository[domain.Location](db).Count(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("name = ?", "Kazan")
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestResolveByNameReusesExistingRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	existing := &domain.Location{Name: "Moscow", Lat: 55.75, Lng: 37.62}
	require.NoError(t, NewRepository[domain.Location](db).Create(ctx, existing))

	loc, err := NewResolver(db).ResolveLocationByName(ctx, "Moscow")
	require.NoError(t, err)
	assert.Equal(t, *existing, *loc)
}

func TestResolveLocationByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := NewResolver(db).ResolveLocationByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishedAdCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	cat := &domain.Category{Name: "Misc"}
	require.NoError(t, NewRepository[domain.Category](db).Create(ctx, cat))

	seedAd(t, db, alice, cat, 1, true)
	seedAd(t, db, alice, cat, 2, true)
	seedAd(t, db, alice, cat, 3, false)
	seedAd(t, db, bob, cat, 4, false)
	seedAd(t, db, carol, cat, 5, true)

	counts, err := PublishedAdCounts(ctx, db, []int64{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{alice.ID: 2, bob.ID: 0}, counts)

	empty, err := PublishedAdCounts(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLinkAndUnlinkLocations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(db)
	u := seedUser(t, db, "ivan")

	moscow, err := r.ResolveLocationByName(ctx, "Moscow")
	require.NoError(t, err)
	kazan, err := r.ResolveLocationByName(ctx, "Kazan")
	require.NoError(t, err)

	require.NoError(t, r.LinkLocations(ctx, u.ID, []int64{moscow.ID, moscow.ID}))
	require.NoError(t, r.LinkLocations(ctx, u.ID, []int64{moscow.ID, kazan.ID}))
	require.NoError(t, r.LinkLocations(ctx, u.ID, nil))

	loaded, err := NewRepository[domain.User](db).GetByID(ctx, u.ID, "Locations")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Moscow", "Kazan"}, loaded.LocationNames())

	require.NoError(t, r.UnlinkLocation(ctx, kazan.ID))
	loaded, err = NewRepository[domain.User](db).GetByID(ctx, u.ID, "Locations")
	require.NoError(t, err)
	assert.Equal(t, []string{"Moscow"}, loaded.LocationNames())

	require.NoError(t, r.UnlinkUser(ctx, u.ID))
	require.NoError(t, NewRepository[domain.User](db).Delete(ctx, u.ID))
}

func TestUpdateDeletedRowDoesNotReinsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository[domain.Category](db)

	cat := &domain.Category{Name: "Books"}
	require.NoError(t, repo.Create(ctx, cat))
	require.NoError(t, repo.Delete(ctx, cat.ID))

	cat.Name = "Used books"
	assert.ErrorIs(t, repo.Update(ctx, cat), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateFields(ctx, cat.ID, map[string]interface{}{"name": "Old books"}), ErrNotFound)

	var rows int64
	require.NoError(t, db.Model(&domain.Category{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestUpdateFieldsWritesOnlyNamedColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cat := &domain.Category{Name: "Books"}
	require.NoError(t, NewRepository[domain.Category](db).Create(ctx, cat))
	ad := seedAd(t, db, seedUser(t, db, "ivan"), cat, 100, false)
	repo := NewRepository[domain.Ad](db)

	// stale holds the row as it was before the publish below
	stale, err := repo.GetByID(ctx, ad.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFields(ctx, ad.ID, map[string]interface{}{"is_published": true}))
	require.NoError(t, repo.UpdateFields(ctx, ad.ID, map[string]interface{}{"image": "ads/a.png"}))

	got, err := repo.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.Equal(t, "ads/a.png", got.Image)
	assert.Equal(t, stale.Name, got.Name)
	assert.Equal(t, stale.Price, got.Price)
}

func TestReplaceAdImage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cat := &domain.Category{Name: "Books"}
	require.NoError(t, NewRepository[domain.Category](db).Create(ctx, cat))
	ad := seedAd(t, db, seedUser(t, db, "ivan"), cat, 100, false)

	previous, err := ReplaceAdImage(ctx, db, ad.ID, "ads/first.png")
	require.NoError(t, err)
	assert.Empty(t, previous)

	// a concurrent edit between uploads must survive the second one
	require.NoError(t, NewRepository[domain.Ad](db).UpdateFields(ctx, ad.ID, map[string]interface{}{"is_published": true}))

	previous, err = ReplaceAdImage(ctx, db, ad.ID, "ads/second.png")
	require.NoError(t, err)
	assert.Equal(t, "ads/first.png", previous)

	got, err := NewRepository[domain.Ad](db).GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "ads/second.png", got.Image)
	assert.True(t, got.IsPublished)

	require.NoError(t, NewRepository[domain.Ad](db).Delete(ctx, ad.ID))
	_, err = ReplaceAdImage(ctx, db, ad.ID, "ads/third.png")
	assert.ErrorIs(t, err, ErrNotFound)

	var rows int64
	require.NoError(t, db.Model(&domain.Ad{}).Count(&rows).Error)
	assert.Zero(t, rows)
}
