package worker

import "github.com/labstack/echo/v4"

type Handler interface {
	GetStatus() echo.HandlerFunc
	GetHealth() echo.HandlerFunc
}
