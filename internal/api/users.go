package api

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/internal/domain"
	"github.com/talkincode/adboard/internal/store"
)

// userCreatePayload cites locations by name; missing ones are created
type userCreatePayload struct {
	FirstName *string  `json:"first_name" validate:"required,max=100"`
	LastName  *string  `json:"last_name" validate:"required,max=100"`
	Username  *string  `json:"username" validate:"required,notblank,max=100"`
	Password  *string  `json:"password" validate:"required,max=200"`
	Role      *string  `json:"role" validate:"omitempty,oneof=member moderator admin"`
	Age       *int     `json:"age" validate:"required,gte=0,lte=200"`
	Locations []string `json:"locations" validate:"required,dive,notblank,max=200"`
}

// userUpdatePayload cites locations by id and never creates any
type userUpdatePayload struct {
	FirstName *string `json:"first_name" validate:"required,max=100"`
	LastName  *string `json:"last_name" validate:"required,max=100"`
	Username  *string `json:"username" validate:"required,notblank,max=100"`
	Password  *string `json:"password" validate:"required,max=200"`
	Role      *string `json:"role" validate:"required,oneof=member moderator admin"`
	Age       *int    `json:"age" validate:"required,gte=0,lte=200"`
	Locations []int64 `json:"locations" validate:"required,dive,gt=0"`
}

type userView struct {
	ID        int64    `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username"`
	Role      string   `json:"role"`
	Age       int      `json:"age"`
	Locations []string `json:"locations"`
}

type userListItem struct {
	userView
	TotalAds int64 `json:"total_ads"`
}

type userResource struct{}

// registerUserRoutes registers user CRUD routes
func registerUserRoutes() {
	registerResource("/user", userResource{})
}

func toUserView(u *domain.User) userView {
	return userView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Role:      u.Role,
		Age:       u.Age,
		Locations: u.LocationNames(),
	}
}

// List returns every user with the number of published ads they own
func (userResource) List(c echo.Context) error {
	ctx := c.Request().Context()
	page, err := store.NewRepository[domain.User](GetDB(c)).List(ctx, store.ListQuery{
		Order:   "id ASC",
		Preload: []string{"Locations"},
	})
	if err != nil {
		return storeError(c, err, "User", "query")
	}

	ids := make([]int64, 0, len(page.Items))
	for _, u := range page.Items {
		ids = append(ids, u.ID)
	}
	counts, err := store.PublishedAdCounts(ctx, GetDB(c), ids)
	if err != nil {
		return storeError(c, err, "User", "count ads of")
	}

	items := make([]userListItem, 0, len(page.Items))
	for i := range page.Items {
		u := &page.Items[i]
		items = append(items, userListItem{userView: toUserView(u), TotalAds: counts[u.ID]})
	}
	return ok(c, items)
}

func (userResource) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	u, err := store.NewRepository[domain.User](GetDB(c)).GetByID(c.Request().Context(), id, "Locations")
	if err != nil {
		return storeError(c, err, "User", "query")
	}
	return ok(c, toUserView(u))
}

// Create writes the user, any new locations and the links between them in
// one transaction.
func (userResource) Create(c echo.Context) error {
	var payload userCreatePayload
	if valid, err := bindAndValidate(c, &payload, "user"); !valid {
		return err
	}
	role := domain.RoleMember
	if payload.Role != nil {
		role = *payload.Role
	}
	ctx := c.Request().Context()

	u := domain.User{
		FirstName: *payload.FirstName,
		LastName:  *payload.LastName,
		Username:  strings.TrimSpace(*payload.Username),
		Password:  *payload.Password,
		Role:      role,
		Age:       *payload.Age,
	}
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := store.NewRepository[domain.User](tx).Create(ctx, &u); err != nil {
			return err
		}
		resolver := store.NewResolver(tx)
		ids := make([]int64, 0, len(payload.Locations))
		for _, name := range payload.Locations {
			loc, err := resolver.ResolveLocationByName(ctx, strings.TrimSpace(name))
			if err != nil {
				return err
			}
			ids = append(ids, loc.ID)
		}
		return resolver.LinkLocations(ctx, u.ID, ids)
	})
	if err != nil {
		return storeError(c, err, "User", "create")
	}
	return userDetail(c, u.ID, http.StatusCreated)
}

// Update replaces the user's fields and adds the cited locations. An unknown
// location id rolls the whole update back.
func (userResource) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	var payload userUpdatePayload
	if valid, err := bindAndValidate(c, &payload, "user"); !valid {
		return err
	}
	ctx := c.Request().Context()

	u, err := store.NewRepository[domain.User](GetDB(c)).GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "User", "query")
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		u.FirstName = *payload.FirstName
		u.LastName = *payload.LastName
		u.Username = strings.TrimSpace(*payload.Username)
		u.Password = *payload.Password
		u.Role = *payload.Role
		u.Age = *payload.Age
		if err := store.NewRepository[domain.User](tx).Update(ctx, u); err != nil {
			return err
		}

		resolver := store.NewResolver(tx)
		for _, locID := range payload.Locations {
			if _, err := resolver.ResolveLocationByID(ctx, locID); err != nil {
				return err
			}
		}
		return resolver.LinkLocations(ctx, u.ID, payload.Locations)
	})
	if stderrors.Is(err, store.ErrNotFound) {
		return fail(c, http.StatusNotFound, "LOCATION_NOT_FOUND", "Location not found", nil)
	}
	if err != nil {
		return storeError(c, err, "User", "update")
	}
	return userDetail(c, u.ID, http.StatusOK)
}

func (userResource) Delete(c echo.Context) error {
	return deleteResource[domain.User](c, "User", func(tx *gorm.DB, id int64) error {
		return store.NewResolver(tx).UnlinkUser(c.Request().Context(), id)
	})
}

// userDetail reloads the user with its locations and writes the projection
func userDetail(c echo.Context, id int64, status int) error {
	u, err := store.NewRepository[domain.User](GetDB(c)).GetByID(c.Request().Context(), id, "Locations")
	if err != nil {
		return storeError(c, err, "User", "query")
	}
	return c.JSON(status, toUserView(u))
}
