package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchCreated    BatchStatus = "created"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

type MatchStatus string

const (
	StatusApproved         MatchStatus = "Approved"
	StatusNeedsImprovement MatchStatus = "Needs Improvement"
	StatusNotAMatch        MatchStatus = "Not a Match"
	StatusError            MatchStatus = "Error"
)

// VerdictMethod records which stage of the classifier produced a verdict.
type VerdictMethod string

const (
	VerdictHeuristic       VerdictMethod = "heuristic"
	VerdictOracle          VerdictMethod = "oracle"
	VerdictDefaultFallback VerdictMethod = "default-fallback"
)

type ClassificationVerdict struct {
	IsResume bool
	Method   VerdictMethod
}

// BatchFile is one uploaded résumé waiting in storage.
type BatchFile struct {
	FileName   string `json:"file_name"`
	StoredName string `json:"stored_name"`
}

type BatchJob struct {
	ID             uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID          uuid.UUID   `gorm:"type:uuid;index;not null" json:"job_id"`
	JobTitle       string      `gorm:"type:text" json:"job_title"`
	JobDescription string      `gorm:"type:text;not null" json:"-"`
	RequestedBy    string      `gorm:"type:text" json:"requested_by"`
	Status         BatchStatus `gorm:"not null;default:'created';index" json:"status"`
	TotalCount     int         `gorm:"not null" json:"total_count"`
	ProcessedCount int         `gorm:"not null;default:0" json:"processed_count"`
	AverageScore   float64     `gorm:"not null;default:0" json:"average_score"`
	Files          []BatchFile `gorm:"serializer:json;type:text" json:"-"`
	CreatedAt      time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`

	// Relations
	Results []MatchResult `gorm:"foreignKey:BatchID" json:"results"`
}

func (BatchJob) TableName() string {
	return "batch_jobs"
}

// MatchResult is the outcome of screening one file. Position is the file's
// submission index and breaks ties when results are ranked.
type MatchResult struct {
	ID                  uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"-"`
	BatchID             uuid.UUID     `gorm:"type:uuid;index;not null" json:"-"`
	Position            int           `gorm:"not null" json:"position"`
	FileName            string        `gorm:"type:text" json:"file_name"`
	MatchScore          int           `gorm:"not null;default:0" json:"match_score"`
	Status              MatchStatus   `gorm:"type:text;not null" json:"status"`
	ClassifiedBy        VerdictMethod `gorm:"type:text" json:"classified_by,omitempty"`
	IsResume            bool          `gorm:"not null;default:false" json:"is_resume"`
	MatchingSkills      []string      `gorm:"serializer:json;type:text" json:"matching_skills"`
	MissingSkills       []string      `gorm:"serializer:json;type:text" json:"missing_skills"`
	ImpliedSkills       string        `gorm:"type:text" json:"implied_skills"`
	Strengths           []string      `gorm:"serializer:json;type:text" json:"strengths"`
	Recommendations     []string      `gorm:"serializer:json;type:text" json:"recommendations"`
	ScoreRationale      string        `gorm:"type:text" json:"score_rationale,omitempty"`
	ExtractedTextSample string        `gorm:"type:text" json:"extracted_text_sample"`
	ProcessedAt         time.Time     `json:"processed_at"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

// RankResults orders results by score, highest first. Equal scores keep
// submission order.
func RankResults(results []MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MatchScore != results[j].MatchScore {
			return results[i].MatchScore > results[j].MatchScore
		}
		return results[i].Position < results[j].Position
	})
}
