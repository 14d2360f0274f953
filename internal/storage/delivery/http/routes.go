package http

import (
	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/labstack/echo/v4"
)

func MapStorageRoutes(storageGroup *echo.Group, h storage.Handler) {
	storageGroup.GET("/*", h.GetObject())
	storageGroup.DELETE("/*", h.DeleteObject())
}
