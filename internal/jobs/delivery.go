package jobs

import "github.com/labstack/echo/v4"

type Handler interface {
	CreateJob() echo.HandlerFunc
	GetJob() echo.HandlerFunc
	GetJobTasks() echo.HandlerFunc
	GetJobsByMedia() echo.HandlerFunc
	CancelJob() echo.HandlerFunc
}
