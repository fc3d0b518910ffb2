package services

import (
	"context"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	minResumeRunes     = 100
	minDetectorMatches = 2
)

// resumeDetectors are the signal categories a resume usually shows. Each
// category counts once no matter how often it matches.
var resumeDetectors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(skills?|education|experience|projects?)\b`),
	regexp.MustCompile(`(?i)\b(email|phone|linkedin|github)\b`),
	regexp.MustCompile(`(?i)\b(developer|engineer|analyst|designer|manager)\b`),
	regexp.MustCompile(`(?i)\b(university|college|bachelor|master|degree)\b`),
	regexp.MustCompile(`(?i)\b(python|java|javascript|react|node|sql|aws|docker)\b`),
}

// FallbackPolicy decides the verdict when the oracle cannot classify.
type FallbackPolicy string

const (
	FallbackAccept FallbackPolicy = "accept"
	FallbackReject FallbackPolicy = "reject"
)

type DocumentClassifier interface {
	Classify(ctx context.Context, text string) models.ClassificationVerdict
}

type documentClassifier struct {
	oracle   Oracle
	fallback FallbackPolicy
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewDocumentClassifier(oracle Oracle, fallback FallbackPolicy, log *zap.Logger, m *metrics.Metrics) DocumentClassifier {
	if fallback != FallbackReject {
		fallback = FallbackAccept
	}
	return &documentClassifier{
		oracle:   oracle,
		fallback: fallback,
		log:      logger.OrNop(log),
		metrics:  m,
	}
}

// Classify never fails: an oracle error resolves to the fallback policy.
func (c *documentClassifier) Classify(ctx context.Context, text string) models.ClassificationVerdict {
	verdict := c.classify(ctx, text)
	c.metrics.Classified(string(verdict.Method), verdict.IsResume)
	return verdict
}

func (c *documentClassifier) classify(ctx context.Context, text string) models.ClassificationVerdict {
	if utf8.RuneCountInString(text) < minResumeRunes {
		c.log.Debug("document too short to be a resume", zap.Int("chars", utf8.RuneCountInString(text)))
		return models.ClassificationVerdict{IsResume: false, Method: models.VerdictHeuristic}
	}

	if matches := CountResumeSignals(text); matches >= minDetectorMatches {
		c.log.Debug("document matches resume patterns", zap.Int("categories", matches))
		return models.ClassificationVerdict{IsResume: true, Method: models.VerdictHeuristic}
	}

	isResume, err := c.oracle.Classify(ctx, text)
	if err != nil {
		c.log.Warn("resume classification failed, applying fallback",
			zap.Error(err),
			zap.String("fallback", string(c.fallback)))
		return models.ClassificationVerdict{IsResume: c.fallback == FallbackAccept, Method: models.VerdictDefaultFallback}
	}

	c.log.Debug("oracle classified document", zap.Bool("is_resume", isResume))
	return models.ClassificationVerdict{IsResume: isResume, Method: models.VerdictOracle}
}

// CountResumeSignals returns how many detector categories match text.
func CountResumeSignals(text string) int {
	count := 0
	for _, detector := range resumeDetectors {
		if detector.MatchString(text) {
			count++
		}
	}
	return count
}
