package http

import (
	"net/http"

	"github.com/amankumarsingh77/pixiescale/internal/jobs"
	"github.com/amankumarsingh77/pixiescale/internal/models"
	"github.com/amankumarsingh77/pixiescale/pkg/apperrors"
	"github.com/amankumarsingh77/pixiescale/pkg/logger"
	"github.com/amankumarsingh77/pixiescale/pkg/utils"
	"github.com/labstack/echo/v4"
)

type jobsHandler struct {
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewJobsHandler(jobsUC jobs.UseCase, log logger.Logger) jobs.Handler {
	return &jobsHandler{
		jobsUC: jobsUC,
		logger: log,
	}
}

func (h *jobsHandler) CreateJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.TranscodingJobRequest{}
		if err := c.Bind(input); err != nil {
			return utils.ErrResponse(c, apperrors.BadRequest("invalid request payload"))
		}
		job, err := h.jobsUC.CreateJob(c.Request().Context(), input)
		if err != nil {
			h.logger.Errorf("CreateJob RequestID %s: %v", utils.GetRequestID(c), err)
			return utils.ErrResponse(c, err)
		}
		return c.JSON(http.StatusOK, models.NewJobResponse(job))
	}
}

func (h *jobsHandler) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := h.jobsUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return utils.ErrResponse(c, err)
		}
		return c.JSON(http.StatusOK, models.NewJobResponse(job))
	}
}

func (h *jobsHandler) GetJobTasks() echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := h.jobsUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return utils.ErrResponse(c, err)
		}
		return c.JSON(http.StatusOK, job.Tasks)
	}
}

func (h *jobsHandler) GetJobsByMedia() echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := h.jobsUC.GetJobsByMediaID(c.Request().Context(), c.Param("media_id"))
		if err != nil {
			return utils.ErrResponse(c, err)
		}
		out := make([]*models.TranscodingJobResponse, 0, len(list))
		for _, job := range list {
			out = append(out, models.NewJobResponse(job))
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *jobsHandler) CancelJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := h.jobsUC.CancelJob(c.Request().Context(), c.Param("job_id")); err != nil {
			return utils.ErrResponse(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
