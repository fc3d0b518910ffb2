package models

type CreateJobRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required,min=20"`
	OwnerEmail  string `json:"owner_email" validate:"required,email"`
}

// SubmitBatchRequest holds the non-file fields of a batch upload. Presence is
// checked by the batch service; only formats are validated here.
type SubmitBatchRequest struct {
	JobID     string `form:"job_id" validate:"omitempty,uuid"`
	UserEmail string `form:"user_email" validate:"omitempty,email"`
}

type SubmitBatchResponse struct {
	BatchID    string `json:"batch_id"`
	Status     string `json:"status"`
	TotalCount int    `json:"total_count"`
}

// BatchProgressResponse is what pollers see while a batch is running.
type BatchProgressResponse struct {
	BatchID        string        `json:"batch_id"`
	JobID          string        `json:"job_id"`
	JobTitle       string        `json:"job_title"`
	Status         string        `json:"status"`
	TotalCount     int           `json:"total_count"`
	ProcessedCount int           `json:"processed_count"`
	Results        []MatchResult `json:"results"`
}

type BatchReportResponse struct {
	BatchID        string        `json:"batch_id"`
	JobTitle       string        `json:"job_title"`
	TotalProcessed int           `json:"total_processed"`
	AverageScore   float64       `json:"average_score"`
	Results        []MatchResult `json:"results"`
}

type SearchHit struct {
	Position int     `json:"position"`
	FileName string  `json:"file_name"`
	Score    float32 `json:"score"`
	Snippet  string  `json:"snippet"`
}

type SearchResponse struct {
	BatchID string      `json:"batch_id"`
	Query   string      `json:"query"`
	Hits    []SearchHit `json:"hits"`
}

// NewBatchReport builds the final report surface of a completed batch.
func NewBatchReport(batch *BatchJob) BatchReportResponse {
	results := batch.Results
	if results == nil {
		results = []MatchResult{}
	}
	return BatchReportResponse{
		BatchID:        batch.ID.String(),
		JobTitle:       batch.JobTitle,
		TotalProcessed: batch.ProcessedCount,
		AverageScore:   batch.AverageScore,
		Results:        results,
	}
}
