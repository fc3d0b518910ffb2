package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-screener/internal/export"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ResultHandler struct {
	batchRepo repositories.BatchRepository
	indexer   services.ResumeIndexer
}

// NewResultHandler builds the read side of batches. indexer may be nil, in
// which case search answers 404.
func NewResultHandler(batchRepo repositories.BatchRepository, indexer services.ResumeIndexer) *ResultHandler {
	return &ResultHandler{
		batchRepo: batchRepo,
		indexer:   indexer,
	}
}

// HandleProgress handles GET /batches/:id
func (h *ResultHandler) HandleProgress(c *fiber.Ctx) error {
	batch, err := h.findBatch(c)
	if err != nil {
		return err
	}

	results := batch.Results
	if results == nil {
		results = []models.MatchResult{}
	}

	return c.JSON(models.BatchProgressResponse{
		BatchID:        batch.ID.String(),
		JobID:          batch.JobID.String(),
		JobTitle:       batch.JobTitle,
		Status:         string(batch.Status),
		TotalCount:     batch.TotalCount,
		ProcessedCount: batch.ProcessedCount,
		Results:        results,
	})
}

// HandleReport handles GET /batches/:id/report
func (h *ResultHandler) HandleReport(c *fiber.Ctx) error {
	batch, err := h.completedBatch(c)
	if err != nil {
		return err
	}

	return c.JSON(models.NewBatchReport(batch))
}

// HandleReportXLSX handles GET /batches/:id/report.xlsx
func (h *ResultHandler) HandleReportXLSX(c *fiber.Ctx) error {
	batch, err := h.completedBatch(c)
	if err != nil {
		return err
	}

	data, err := export.ReportWorkbook(models.NewBatchReport(batch))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="batch-%s.xlsx"`, batch.ID))
	return c.Send(data)
}

// HandleSearch handles GET /batches/:id/search?q=...&limit=...
func (h *ResultHandler) HandleSearch(c *fiber.Ctx) error {
	if h.indexer == nil {
		return fiber.NewError(fiber.StatusNotFound, services.ErrIndexDisabled.Error())
	}

	batch, err := h.findBatch(c)
	if err != nil {
		return err
	}

	query := c.Query("q")
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
	}

	hits, err := h.indexer.Search(c.UserContext(), batch.ID, query, c.QueryInt("limit", 10))
	if err != nil {
		return err
	}

	return c.JSON(models.SearchResponse{
		BatchID: batch.ID.String(),
		Query:   query,
		Hits:    hits,
	})
}

func (h *ResultHandler) findBatch(c *fiber.Ctx) (*models.BatchJob, error) {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid batch ID format")
	}

	batch, err := h.batchRepo.FindByID(c.UserContext(), batchID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Batch not found")
		}
		return nil, err
	}

	return batch, nil
}

func (h *ResultHandler) completedBatch(c *fiber.Ctx) (*models.BatchJob, error) {
	batch, err := h.findBatch(c)
	if err != nil {
		return nil, err
	}

	if batch.Status != models.BatchCompleted {
		return nil, fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("batch is %s; the report is available once it completes", batch.Status))
	}

	return batch, nil
}
