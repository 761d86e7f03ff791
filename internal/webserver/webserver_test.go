package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingPayload struct {
	Name  *string  `json:"name" validate:"required,notblank"`
	Price *float64 `json:"price" validate:"required,gte=0"`
}

func TestValidatorReportsJSONNames(t *testing.T) {
	v := NewValidator()
	price := -1.0
	err := v.Validate(&listingPayload{Price: &price})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{"name": "required", "price": "gte"}, fields)

	zero := 0.0
	name := "x"
	assert.NoError(t, v.Validate(&listingPayload{Name: &name, Price: &zero}))

	blank := "  \t "
	err = v.Validate(&listingPayload{Name: &blank, Price: &zero})
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "notblank", verrs[0].Tag())
}

func TestJSONSerializerDeserializeError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	c := e.NewContext(req, httptest.NewRecorder())

	var p listingPayload
	err := JSONSerializer{}.Deserialize(c, &p)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestHTTPErrorHandlerShape(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	httpErrorHandler(echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request Entity Too Large"), c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"REQUEST_ENTITY_TOO_LARGE","message":"Request Entity Too Large"}`, rec.Body.String())
}
