package utils

import (
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.Request().RemoteAddr
}

// ErrResponse writes err as a JSON error body with the status its kind maps to.
func ErrResponse(c echo.Context, err error) error {
	return c.JSON(apperrors.HTTPStatus(err), map[string]string{"error": err.Error()})
}
