package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is the job posting a batch is screened against. Only the fields the
// screening pipeline needs are modeled here.
type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	OwnerEmail  string    `gorm:"type:text;index;not null" json:"owner_email"`
	CreatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (j *Job) TableName() string {
	return "jobs"
}
