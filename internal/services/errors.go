package services

import (
	"errors"
	"fmt"
)

// Submission errors. They are returned before any file is processed.
var (
	ErrNoFiles         = errors.New("at least one resume file is required")
	ErrMissingJob      = errors.New("job id is required")
	ErrMissingIdentity = errors.New("requester identity is required")
	ErrJobNotFound     = errors.New("job not found")
	ErrUnauthorized    = errors.New("requester does not own this job")
)

// ExtractionError means a document could not be parsed into text.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("failed to extract text: %v", e.Err)
	}
	return fmt.Sprintf("failed to extract text from %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// OracleError covers every way an oracle call can fail: transport, non-2xx
// status, timeout, open circuit or a reply that does not satisfy the contract.
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s failed: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }
