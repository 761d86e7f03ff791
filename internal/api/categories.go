package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/store"
)

type categoryPayload struct {
	Name *string `json:"name" validate:"required,notblank,max=100"`
}

type categoryResource struct{}

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	registerResource("/cat", categoryResource{})
}

func (categoryResource) List(c echo.Context) error {
	page, err := store.NewRepository[domain.Category](GetDB(c)).List(c.Request().Context(), store.ListQuery{
		Order: "name ASC",
	})
	if err != nil {
		return storeError(c, err, "Category", "query")
	}
	return ok(c, page.Items)
}

func (categoryResource) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	cat, err := store.NewRepository[domain.Category](GetDB(c)).GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Category", "query")
	}
	return ok(c, cat)
}

func (categoryResource) Create(c echo.Context) error {
	var payload categoryPayload
	if valid, err := bindAndValidate(c, &payload, "category"); !valid {
		return err
	}
	name := strings.TrimSpace(*payload.Name)
	if taken, err := categoryNameTaken(c, name, 0); err != nil {
		return storeError(c, err, "Category", "query")
	} else if taken {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	}

	cat := domain.Category{Name: name}
	if err := store.NewRepository[domain.Category](GetDB(c)).Create(c.Request().Context(), &cat); err != nil {
		return storeError(c, err, "Category", "create")
	}
	return created(c, cat)
}

func (categoryResource) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var payload categoryPayload
	if valid, err := bindAndValidate(c, &payload, "category"); !valid {
		return err
	}

	repo := store.NewRepository[domain.Category](GetDB(c))
	cat, err := repo.GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Category", "query")
	}

	name := strings.TrimSpace(*payload.Name)
	if name != cat.Name {
		if taken, err := categoryNameTaken(c, name, id); err != nil {
			return storeError(c, err, "Category", "query")
		} else if taken {
			return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
		}
	}
	cat.Name = name
	if err := repo.Update(c.Request().Context(), cat); err != nil {
		return storeError(c, err, "Category", "update")
	}
	return ok(c, cat)
}

func (categoryResource) Delete(c echo.Context) error {
	return deleteResource[domain.Category](c, "Category", nil)
}

// categoryNameTaken reports whether another category already uses name. The unique
// index still has the last word when two requests race past this check.
func categoryNameTaken(c echo.Context, name string, exceptID int64) (bool, error) {
	var exists int64
	err := GetDB(c).Model(&domain.Category{}).Where("name = ? AND id <> ?", name, exceptID).Count(&exists).Error
	return exists > 0, err
}
