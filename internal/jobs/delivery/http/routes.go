package http

import (
	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/labstack/echo/v4"
)

func MapJobsRoutes(jobsGroup *echo.Group, h jobs.Handler) {
	jobsGroup.POST("", h.CreateJob())
	jobsGroup.GET("/media/:media_id", h.GetJobsByMedia())
	jobsGroup.GET("/:job_id", h.GetJob())
	jobsGroup.GET("/:job_id/tasks", h.GetJobTasks())
	jobsGroup.DELETE("/:job_id", h.CancelJob())
}
