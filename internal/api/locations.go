package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/store"
)

type locationPayload struct {
	Name *string  `json:"name" validate:"required,notblank,max=200"`
	Lat  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng  *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type locationResource struct{}

// registerLocationRoutes registers location CRUD routes. Locations hang off
// the user namespace.
func registerLocationRoutes() {
	registerResource("/user/loc", locationResource{})
}

func (locationResource) List(c echo.Context) error {
	page, err := store.NewRepository[domain.Location](GetDB(c)).List(c.Request().Context(), store.ListQuery{
		Order: "id ASC",
	})
	if err != nil {
		return storeError(c, err, "Location", "query")
	}
	return ok(c, page.Items)
}

func (locationResource) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid location ID", nil)
	}
	loc, err := store.NewRepository[domain.Location](GetDB(c)).GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Location", "query")
	}
	return ok(c, loc)
}

func (locationResource) Create(c echo.Context) error {
	var payload locationPayload
	if valid, err := bindAndValidate(c, &payload, "location"); !valid {
		return err
	}
	name := strings.TrimSpace(*payload.Name)
	if taken, err := locationNameTaken(c, name, 0); err != nil {
		return storeError(c, err, "Location", "query")
	} else if taken {
		return fail(c, http.StatusConflict, "LOCATION_EXISTS", "Location name already exists", nil)
	}

	loc := domain.Location{Name: name, Lat: *payload.Lat, Lng: *payload.Lng}
	if err := store.NewRepository[domain.Location](GetDB(c)).Create(c.Request().Context(), &loc); err != nil {
		return storeError(c, err, "Location", "create")
	}
	return created(c, loc)
}

func (locationResource) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid location ID", nil)
	}
	var payload locationPayload
	if valid, err := bindAndValidate(c, &payload, "location"); !valid {
		return err
	}

	repo := store.NewRepository[domain.Location](GetDB(c))
	loc, err := repo.GetByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err, "Location", "query")
	}

	name := strings.TrimSpace(*payload.Name)
	if name != loc.Name {
		if taken, err := locationNameTaken(c, name, id); err != nil {
			return storeError(c, err, "Location", "query")
		} else if taken {
			return fail(c, http.StatusConflict, "LOCATION_EXISTS", "Location name already exists", nil)
		}
	}
	loc.Name = name
	loc.Lat = *payload.Lat
	loc.Lng = *payload.Lng
	if err := repo.Update(c.Request().Context(), loc); err != nil {
		return storeError(c, err, "Location", "update")
	}
	return ok(c, loc)
}

func (locationResource) Delete(c echo.Context) error {
	return deleteResource[domain.Location](c, "Location", func(tx *gorm.DB, id int64) error {
		return store.NewResolver(tx).UnlinkLocation(c.Request().Context(), id)
	})
}

// locationNameTaken reports whether another location already uses name. The unique
// index still has the last word when two requests race past this check.
func locationNameTaken(c echo.Context, name string, exceptID int64) (bool, error) {
	var exists int64
	err := GetDB(c).Model(&domain.Location{}).Where("name = ? AND id <> ?", name, exceptID).Count(&exists).Error
	return exists > 0, err
}
