package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/services"
)

const resumeFieldPrefix = "resume_"

type BatchHandler struct {
	batchService services.BatchService
	validate     *validator.Validate
	maxFileSize  int64
}

func NewBatchHandler(batchService services.BatchService, validate *validator.Validate, maxFileSize int64) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		validate:     validate,
		maxFileSize:  maxFileSize,
	}
}

// HandleSubmit handles POST /batches. Files come as resume_0..resume_N or a
// repeated "resumes" field. With ?wait=true the batch is screened before the
// response and the final report is returned.
func (h *BatchHandler) HandleSubmit(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse multipart form")
	}

	req := models.SubmitBatchRequest{
		JobID:     strings.TrimSpace(formValue(form, "job_id")),
		UserEmail: strings.TrimSpace(formValue(form, "user_email")),
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	uploads, err := h.readUploads(form)
	if err != nil {
		return err
	}

	wait := c.QueryBool("wait", false)
	batch, err := h.batchService.Submit(c.UserContext(), services.SubmitBatchInput{
		JobID:          req.JobID,
		RequesterEmail: req.UserEmail,
		Files:          uploads,
		Wait:           wait,
	})
	if err != nil {
		return submissionError(err)
	}

	if wait {
		return c.JSON(models.NewBatchReport(batch))
	}

	return c.Status(fiber.StatusAccepted).JSON(models.SubmitBatchResponse{
		BatchID:    batch.ID.String(),
		Status:     string(batch.Status),
		TotalCount: batch.TotalCount,
	})
}

func (h *BatchHandler) readUploads(form *multipart.Form) ([]services.UploadedFile, error) {
	headers := collectResumeFiles(form)
	uploads := make([]services.UploadedFile, 0, len(headers))

	for _, fh := range headers {
		if fh.Size > h.maxFileSize {
			return nil, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("file %s too large. Max size: %d bytes", fh.Filename, h.maxFileSize))
		}

		data, err := readFileHeader(fh)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("failed to read file %s: %v", fh.Filename, err))
		}

		uploads = append(uploads, services.UploadedFile{FileName: fh.Filename, Data: data})
	}

	return uploads, nil
}

// collectResumeFiles returns the uploaded files in submission order:
// resume_<n> fields by n, then the "resumes" field in the order sent.
func collectResumeFiles(form *multipart.Form) []*multipart.FileHeader {
	keys := make([]string, 0, len(form.File))
	for key := range form.File {
		if strings.HasPrefix(key, resumeFieldPrefix) {
			keys = append(keys, key)
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(strings.TrimPrefix(keys[i], resumeFieldPrefix))
		nj, errJ := strconv.Atoi(strings.TrimPrefix(keys[j], resumeFieldPrefix))
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	var files []*multipart.FileHeader
	for _, key := range keys {
		files = append(files, form.File[key]...)
	}
	files = append(files, form.File["resumes"]...)

	return files
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
