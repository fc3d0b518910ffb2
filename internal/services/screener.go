package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	textSampleRunes = 5000

	notAResumeRecommendation = "This document does not appear to be a resume or CV. Please upload a valid resume."
	oracleFallbackRationale  = "Unable to analyze resume due to an error with the AI model. Please try again."
	oracleFallbackImplied    = "Analysis could not be completed."
)

// ResumeScreener turns one document into one MatchResult. It never returns
// an error: every failure is folded into the result.
type ResumeScreener interface {
	ScreenText(ctx context.Context, jobDescription string, file ScreeningFile, text string) models.MatchResult
	ErrorResult(file ScreeningFile, err error) models.MatchResult
}

// ScreeningFile identifies a document within a batch.
type ScreeningFile struct {
	Position int
	FileName string
}

type resumeScreener struct {
	classifier DocumentClassifier
	oracle     Oracle
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewResumeScreener(classifier DocumentClassifier, oracle Oracle, log *zap.Logger, m *metrics.Metrics) ResumeScreener {
	return &resumeScreener{
		classifier: classifier,
		oracle:     oracle,
		log:        logger.OrNop(log),
		metrics:    m,
	}
}

// ScreenText classifies the text and scores it when it is accepted. Rejected
// documents never reach the oracle. The flag reports whether the document
// was accepted as a resume.
func (s *resumeScreener) ScreenText(ctx context.Context, jobDescription string, file ScreeningFile, text string) models.MatchResult {
	log := s.log.With(zap.String("file", file.FileName), zap.Int("position", file.Position))

	verdict := s.classifier.Classify(ctx, text)
	if !verdict.IsResume {
		log.Info("document rejected as non-resume", zap.String("method", string(verdict.Method)))
		return s.finish(rejectedResult(file, verdict, text))
	}

	assessment, err := s.oracle.Score(ctx, jobDescription, text)
	if err != nil {
		log.Error("scoring failed, using fallback result", zap.Error(err))
		return s.finish(oracleFallbackResult(file, verdict, text, err))
	}

	log.Info("resume scored",
		zap.Int("score", assessment.MatchScore),
		zap.String("status", string(assessment.Status)))

	return s.finish(models.MatchResult{
		Position:            file.Position,
		FileName:            file.FileName,
		MatchScore:          assessment.MatchScore,
		Status:              assessment.Status,
		ClassifiedBy:        verdict.Method,
		IsResume:            true,
		MatchingSkills:      assessment.MatchingSkills,
		MissingSkills:       assessment.MissingSkills,
		ImpliedSkills:       assessment.ImpliedSkills,
		Strengths:           assessment.Strengths,
		Recommendations:     assessment.Recommendations,
		ScoreRationale:      assessment.ScoreRationale,
		ExtractedTextSample: textSample(text),
		ProcessedAt:         time.Now(),
	})
}

// ErrorResult records a file that could not be processed at all.
func (s *resumeScreener) ErrorResult(file ScreeningFile, err error) models.MatchResult {
	s.log.Error("failed to process file",
		zap.String("file", file.FileName),
		zap.Int("position", file.Position),
		zap.Error(err))

	return s.finish(models.MatchResult{
		Position:        file.Position,
		FileName:        file.FileName,
		MatchScore:      0,
		Status:          models.StatusError,
		MatchingSkills:  []string{},
		MissingSkills:   []string{},
		Strengths:       []string{},
		Recommendations: []string{fmt.Sprintf("Failed to process: %s", failureReason(err))},
		ProcessedAt:     time.Now(),
	})
}

func (s *resumeScreener) finish(result models.MatchResult) models.MatchResult {
	s.metrics.ResumeScreened(string(result.Status))
	return result
}

func rejectedResult(file ScreeningFile, verdict models.ClassificationVerdict, text string) models.MatchResult {
	return models.MatchResult{
		Position:            file.Position,
		FileName:            file.FileName,
		MatchScore:          0,
		Status:              models.StatusNotAMatch,
		ClassifiedBy:        verdict.Method,
		MatchingSkills:      []string{},
		MissingSkills:       []string{},
		Strengths:           []string{},
		Recommendations:     []string{notAResumeRecommendation},
		ExtractedTextSample: textSample(text),
		ProcessedAt:         time.Now(),
	}
}

func oracleFallbackResult(file ScreeningFile, verdict models.ClassificationVerdict, text string, err error) models.MatchResult {
	return models.MatchResult{
		Position:            file.Position,
		FileName:            file.FileName,
		MatchScore:          0,
		Status:              models.StatusNotAMatch,
		ClassifiedBy:        verdict.Method,
		IsResume:            true,
		MatchingSkills:      []string{},
		MissingSkills:       []string{},
		ImpliedSkills:       oracleFallbackImplied,
		Strengths:           []string{},
		Recommendations:     []string{fmt.Sprintf("Scoring unavailable: %s", failureReason(err))},
		ScoreRationale:      oracleFallbackRationale,
		ExtractedTextSample: textSample(text),
		ProcessedAt:         time.Now(),
	}
}

// failureReason unwraps typed pipeline errors to the message a reviewer
// should see.
func failureReason(err error) string {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) && extractionErr.Err != nil {
		return extractionErr.Err.Error()
	}
	return err.Error()
}

func textSample(text string) string {
	if runes := []rune(text); len(runes) > textSampleRunes {
		return string(runes[:textSampleRunes])
	}
	return text
}
