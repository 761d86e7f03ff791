package api

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/internal/app"
	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/media"
	"github.com/talkincode/adboard/internal/store"
	"github.com/talkincode/adboard/internal/webserver"
)

type adCreatePayload struct {
	Name        *string  `json:"name" validate:"required,notblank,max=200"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description *string  `json:"description" validate:"required,max=2000"`
	UserID      *int64   `json:"user_id" validate:"required,gt=0"`
	Category    *string  `json:"category" validate:"required,notblank,max=100"`
}

type adUpdatePayload struct {
	Name        *string  `json:"name" validate:"required,notblank,max=200"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description *string  `json:"description" validate:"required,max=2000"`
	IsPublished *bool    `json:"is_published" validate:"required"`
	CategoryID  *int64   `json:"category_id" validate:"required,gt=0"`
}

// adView is the detail projection of an ad. Image is the public URL, null
// while no image is attached.
type adView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	IsPublished bool    `json:"is_published"`
	CategoryID  int64   `json:"category_id"`
	UserID      int64   `json:"user_id"`
	Image       *string `json:"image"`
}

// adListItem adds the author's username to the detail projection
type adListItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	IsPublished bool    `json:"is_published"`
	CategoryID  int64   `json:"category_id"`
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	Image       *string `json:"image"`
}

type adResource struct{}

// registerAdRoutes registers ad CRUD routes and the image upload
func registerAdRoutes() {
	registerResource("/ad", adResource{})
	webserver.ApiPOST("/ad/:id/image", attachAdImage)
}

func imageURL(c echo.Context, key string) *string {
	if key == "" {
		return nil
	}
	url := GetAppContext(c).Media().URL(key)
	return &url
}

func toAdView(c echo.Context, ad *domain.Ad) adView {
	return adView{
		ID:          ad.ID,
		Name:        ad.Name,
		Price:       ad.Price,
		Description: ad.Description,
		IsPublished: ad.IsPublished,
		CategoryID:  ad.CategoryID,
		UserID:      ad.UserID,
		Image:       imageURL(c, ad.Image),
	}
}

func (adResource) List(c echo.Context) error {
	cfg := GetAppContext(c).Config()
	page, err := store.NewRepository[domain.Ad](GetDB(c)).List(c.Request().Context(), store.ListQuery{
		Order:    "price DESC, id ASC",
		Preload:  []string{"User"},
		Page:     parsePage(c),
		PageSize: cfg.Web.PageSize,
	})
	if err != nil {
		return storeError(c, err, "Ad", "query")
	}

	items := make([]adListItem, 0, len(page.Items))
	for i := range page.Items {
		ad := &page.Items[i]
		item := adListItem{
			ID:          ad.ID,
			Name:        ad.Name,
			Price:       ad.Price,
			Description: ad.Description,
			IsPublished: ad.IsPublished,
			CategoryID:  ad.CategoryID,
			UserID:      ad.UserID,
			Image:       imageURL(c, ad.Image),
		}
		if ad.User != nil {
			item.Username = ad.User.Username
		}
		items = append(items, item)
	}
	return paged(c, items, page.Total, page.Pages)
}

func (adResource) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid ad ID", nil)
	}
	ad, err := store.NewRepository[domain.Ad](GetDB(c)).GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Ad", "query")
	}
	return ok(c, toAdView(c, ad))
}

// Create writes the ad and, when needed, its category in one transaction.
// An unknown user_id leaves the database untouched.
func (adResource) Create(c echo.Context) error {
	var payload adCreatePayload
	if valid, err := bindAndValidate(c, &payload, "ad"); !valid {
		return err
	}
	ctx := c.Request().Context()

	var ad domain.Ad
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if _, err := store.NewRepository[domain.User](tx).GetByID(ctx, *payload.UserID); err != nil {
			return err
		}
		cat, err := store.NewResolver(tx).ResolveCategoryByName(ctx, strings.TrimSpace(*payload.Category))
		if err != nil {
			return err
		}
		ad = domain.Ad{
			Name:        strings.TrimSpace(*payload.Name),
			Price:       *payload.Price,
			Description: *payload.Description,
			CategoryID:  cat.ID,
			UserID:      *payload.UserID,
		}
		return store.NewRepository[domain.Ad](tx).Create(ctx, &ad)
	})
	if stderrors.Is(err, store.ErrNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	}
	if err != nil {
		return storeError(c, err, "Ad", "create")
	}
	return created(c, toAdView(c, &ad))
}

func (adResource) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid ad ID", nil)
	}
	var payload adUpdatePayload
	if valid, err := bindAndValidate(c, &payload, "ad"); !valid {
		return err
	}
	ctx := c.Request().Context()

	repo := store.NewRepository[domain.Ad](GetDB(c))
	if _, err := repo.GetByID(ctx, id); err != nil {
		return storeError(c, err, "Ad", "query")
	}
	if _, err := store.NewResolver(GetDB(c)).ResolveCategoryByID(ctx, *payload.CategoryID); err != nil {
		return storeError(c, err, "Category", "query")
	}

	// image is owned by the upload endpoint and is not written here
	err = repo.UpdateFields(ctx, id, map[string]interface{}{
		"name":         strings.TrimSpace(*payload.Name),
		"price":        *payload.Price,
		"description":  *payload.Description,
		"is_published": *payload.IsPublished,
		"category_id":  *payload.CategoryID,
	})
	if err != nil {
		return storeError(c, err, "Ad", "update")
	}
	ad, err := repo.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Ad", "query")
	}
	return ok(c, toAdView(c, ad))
}

func (adResource) Delete(c echo.Context) error {
	return deleteResource[domain.Ad](c, "Ad", nil)
}

// attachAdImage stores the multipart "image" field and points the ad at it.
// A previously attached image is removed once the ad row is updated.
func attachAdImage(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid ad ID", nil)
	}
	ctx := c.Request().Context()
	appCtx := GetAppContext(c)

	repo := store.NewRepository[domain.Ad](GetDB(c))
	if _, err := repo.GetByID(ctx, id); err != nil {
		return storeError(c, err, "Ad", "query")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, http.StatusBadRequest, "IMAGE_REQUIRED", "Multipart field image is required", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read uploaded image", err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read uploaded image", err.Error())
	}

	ext, err := media.DetectImage(data)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_IMAGE", "Uploaded file is not an image", err.Error())
	}

	key, err := appCtx.Media().Save(ctx, app.AdImageDir, data, ext)
	if err != nil {
		zap.L().Error("save ad image failed", zap.String("namespace", "api"), zap.Int64("ad", id), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "MEDIA_ERROR", "Failed to store image", err.Error())
	}

	previous, err := store.ReplaceAdImage(ctx, GetDB(c), id, key)
	if err != nil {
		_ = appCtx.Media().Delete(ctx, key)
		return storeError(c, err, "Ad", "update")
	}
	if previous != "" {
		if err := appCtx.Media().Delete(ctx, previous); err != nil {
			zap.L().Warn("remove replaced ad image failed",
				zap.String("namespace", "api"),
				zap.String("key", previous),
				zap.Error(err))
		}
	}

	zap.L().Info("ad image attached", zap.String("namespace", "api"), zap.Int64("ad", id), zap.String("key", key))
	ad, err := repo.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Ad", "query")
	}
	return ok(c, toAdView(c, ad))
}
