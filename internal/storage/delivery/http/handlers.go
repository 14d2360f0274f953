package http

import (
	"net/http"
	"strconv"

	"github.com/amankumarsingh77/pixiescale/internal/storage"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/labstack/echo/v4"
)

type storageHandler struct {
	storageUC storage.UseCase
	logger    logger.Logger
}

func NewStorageHandler(storageUC storage.UseCase, log logger.Logger) storage.Handler {
	return &storageHandler{storageUC: storageUC, logger: log}
}

func objectKey(c echo.Context) (string, error) {
	key := c.Param("*")
	if key == "" {
		return "", apperrors.BadRequest("storage key is required")
	}
	return key, nil
}

func (h *storageHandler) GetObject() echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := objectKey(c)
		if err != nil {
			return utils.ErrResponse(c, err)
		}
		obj, err := h.storageUC.Open(c.Request().Context(), key)
		if err != nil {
			h.logger.Errorf("GetObject %s: %v", key, err)
			return utils.ErrResponse(c, err)
		}
		defer obj.Body.Close()

		if obj.Size > 0 {
			c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
		}
		return c.Stream(http.StatusOK, obj.ContentType, obj.Body)
	}
}

func (h *storageHandler) DeleteObject() echo.HandlerFunc {
	return func(c echo.Context) error {
		key, err := objectKey(c)
		if err != nil {
			return utils.ErrResponse(c, err)
		}
		if err := h.storageUC.Delete(c.Request().Context(), key); err != nil {
			h.logger.Errorf("DeleteObject %s: %v", key, err)
			return utils.ErrResponse(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
