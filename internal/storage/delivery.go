package storage

import "github.com/labstack/echo/v4"

type Handler interface {
	GetObject() echo.HandlerFunc
	DeleteObject() echo.HandlerFunc
}
