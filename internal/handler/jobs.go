package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/relionflow/api/internal/logging"
	"github.com/relionflow/api/internal/middleware"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/service"
	"github.com/relionflow/api/pkg/response"
)

type JobHandler struct {
	service   *service.JobService
	validator *validator.Validate
}

func NewJobHandler(svc *service.JobService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/jobs
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.UserContext(), &req, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// Validate handles POST /api/jobs/validate
func (h *JobHandler) Validate(c *fiber.Ctx) error {
	var req model.SubmitJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Validate(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Status handles GET /api/jobs/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.UserContext(), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/jobs/:jobId/cancel
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.UserContext(), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Types handles GET /api/jobtypes
func (h *JobHandler) Types(c *fiber.Ctx) error {
	return response.OK(c, h.service.JobTypes())
}

// Tree handles GET /api/projects/:projectId/tree
func (h *JobHandler) Tree(c *fiber.Ctx) error {
	nodes, err := h.service.Tree(c.UserContext(), c.Params("projectId"))
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, nodes)
}

// writeError maps service errors onto API error responses.
func writeError(c *fiber.Ctx, err error) error {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return response.ValidationError(c, ve.Message, fiber.Map{"code": ve.Code, "field": ve.Field})
	case errors.Is(err, model.ErrUnknownJobType):
		return response.ValidationError(c, err.Error(), fiber.Map{"field": "jobType"})
	case errors.Is(err, model.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, model.ErrProjectNotFound):
		return response.NotFound(c, "Project not found")
	case errors.Is(err, model.ErrProjectArchived):
		return response.Forbidden(c, "Project is archived")
	case errors.Is(err, model.ErrTerminal), errors.Is(err, model.ErrAlreadySubmitted), errors.Is(err, model.ErrDuplicateJob):
		return response.Conflict(c, err.Error())
	}
	logging.FromContext(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return response.ServiceError(c, err.Error())
}
