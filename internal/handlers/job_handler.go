package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
)

type JobHandler struct {
	jobRepo  repositories.JobRepository
	validate *validator.Validate
}

func NewJobHandler(jobRepo repositories.JobRepository, validate *validator.Validate) *JobHandler {
	return &JobHandler{
		jobRepo:  jobRepo,
		validate: validate,
	}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.OwnerEmail = strings.TrimSpace(req.OwnerEmail)

	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	job := &models.Job{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		OwnerEmail:  req.OwnerEmail,
	}

	if err := h.jobRepo.Create(c.UserContext(), job); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleGet handles GET /jobs/:id
func (h *JobHandler) HandleGet(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid job ID format")
	}

	job, err := h.jobRepo.FindByID(c.UserContext(), jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Job not found")
		}
		return err
	}

	return c.JSON(job)
}
