package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/adboard/internal/app"
	"github.com/talkincode/adboard/internal/store"
	"github.com/talkincode/adboard/internal/webserver"
)

// Resource is the CRUD handler set one entity exposes
type Resource interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// registerResource wires r under prefix and prefix/:id
func registerResource(prefix string, r Resource) {
	webserver.ApiGET(prefix, r.List)
	webserver.ApiGET(prefix+"/:id", r.Get)
	webserver.ApiPOST(prefix, r.Create)
	webserver.ApiPUT(prefix+"/:id", r.Update)
	webserver.ApiDELETE(prefix+"/:id", r.Delete)
}

// Init registers every api route on the web server
func Init() {
	webserver.GET("/", healthCheck)
	registerCategoryRoutes()
	registerLocationRoutes()
	registerAdRoutes()
	registerUserRoutes()
}

func healthCheck(c echo.Context) error {
	return ok(c, map[string]string{"status": "ok"})
}

// GetAppContext returns the application context attached by the web server
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

// GetDB returns the request scoped database handle
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func noContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// paged writes one page of a listing together with the totals of the whole set
func paged(c echo.Context, items interface{}, total int64, numPages int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":     items,
		"total":     total,
		"num_pages": numPages,
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	body := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	return c.JSON(status, body)
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, stderrors.New("invalid id")
	}
	return id, nil
}

// parsePage returns the 1-based page number, falling back to 1 for anything unusable
func parsePage(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// bindAndValidate decodes the json body into payload and runs its validate
// tags. When it returns false the 400 response has already been written and
// the handler must return err without touching payload.
func bindAndValidate(c echo.Context, payload interface{}, what string) (bool, error) {
	if err := c.Bind(payload); err != nil {
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse "+what+" parameters", errMessage(err))
	}
	if err := c.Validate(payload); err != nil {
		return false, handleValidationError(c, err)
	}
	return true, nil
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
	details := make([]fieldError, 0, len(verrs))
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		missing = append(missing, fe.Field())
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing or invalid fields: "+strings.Join(missing, ", "), details)
}

// storeError maps store errors to responses: ErrNotFound becomes a 404 and a
// unique index violation a 409 for entity, anything else is logged and
// reported as a database error.
func storeError(c echo.Context, err error, entity, action string) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return fail(c, http.StatusNotFound, strings.ToUpper(entity)+"_NOT_FOUND", entity+" not found", nil)
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return fail(c, http.StatusConflict, strings.ToUpper(entity)+"_EXISTS", entity+" name already exists", nil)
	}
	zap.L().Error("store operation failed",
		zap.String("namespace", "api"),
		zap.String("entity", entity),
		zap.String("action", action),
		zap.Error(err))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action+" "+strings.ToLower(entity), err.Error())
}

// deleteResource removes the row of type T named by the :id path parameter.
// before runs in the same transaction ahead of the delete.
func deleteResource[T any](c echo.Context, entity string, before func(tx *gorm.DB, id int64) error) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+strings.ToLower(entity)+" ID", nil)
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if before != nil {
			if err := before(tx, id); err != nil {
				return err
			}
		}
		return store.NewRepository[T](tx).Delete(c.Request().Context(), id)
	})
	if err != nil {
		return storeError(c, err, entity, "delete")
	}
	zap.L().Info(strings.ToLower(entity)+" deleted", zap.String("namespace", "api"), zap.Int64("id", id))
	return noContent(c)
}

func errMessage(err error) string {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
