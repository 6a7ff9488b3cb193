package utils

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

// BindRequest binds the echo request (path, query, and body) into T and runs
// struct validation on the result. Both failure modes come back as a 400 so
// route handlers can return the error as-is.
func BindRequest[T any](c echo.Context) (T, error) {
	var req T

	if err := c.Bind(&req); err != nil {
		return req, httperror.WrapError(http.StatusBadRequest, err)
	}

	req, err := Validate(req)
	if err != nil {
		return req, httperror.WrapError(http.StatusBadRequest, err)
	}

	return req, nil
}
