package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"catalog-service/internal/catalog"
	"catalog-service/internal/middleware"
)

// CustomValidator adapts go-playground/validator to echo's Validator interface
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds the request validator installed on the echo instance
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// fail renders a catalog error with its mapped status code and any
// structured details it carries
func fail(c echo.Context, err error) error {
	e := catalog.AsError(err)
	body := echo.Map{"error": e.Message}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return c.JSON(catalog.HTTPStatus(err), body)
}

// actor returns the authenticated user ID, zero when unauthenticated
func actor(c echo.Context) uint {
	id, _ := middleware.GetUserIDFromContext(c)
	return id
}

// pathID parses the :id route parameter
func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, catalog.BadRequest("invalid id %q", c.Param("id"))
	}
	return id, nil
}

// pagination reads and clamps the page/limit query parameters
func pagination(c echo.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}
