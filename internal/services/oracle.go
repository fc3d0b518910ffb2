package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	classifyTemperature = 0.1
	classifyMaxTokens   = 10
	logPreviewRunes     = 200
)

// Oracle is the external semantic scoring service.
type Oracle interface {
	Score(ctx context.Context, jobDescription, resumeText string) (*Assessment, error)
	Classify(ctx context.Context, text string) (bool, error)
}

// Assessment is the validated scoring reply. Status is derived locally from
// MatchScore.
type Assessment struct {
	MatchScore      int
	Status          models.MatchStatus
	MatchingSkills  []string
	MissingSkills   []string
	ImpliedSkills   string
	Strengths       []string
	Recommendations []string
	ScoreRationale  string
	// Recomputed is true when the score came from the reply's breakdown
	// rather than its matchScore field.
	Recomputed bool
}

type OracleOptions struct {
	Thresholds  Thresholds
	Temperature float32
	MaxTokens   int
}

type chatOracle struct {
	chat    ChatClient
	prompts *PromptBuilder
	opts    OracleOptions
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewOracle(chat ChatClient, opts OracleOptions, log *zap.Logger, m *metrics.Metrics) Oracle {
	return &chatOracle{
		chat:    chat,
		prompts: NewPromptBuilder(opts.Thresholds),
		opts:    opts,
		log:     logger.OrNop(log).With(zap.String("model", chat.Model())),
		metrics: m,
	}
}

func (o *chatOracle) Score(ctx context.Context, jobDescription, resumeText string) (assessment *Assessment, err error) {
	started := time.Now()
	defer func() { o.metrics.ObserveOracle("score", started, err) }()

	reply, err := o.chat.Complete(ctx, ChatRequest{
		Messages:    o.prompts.BuildScoringMessages(jobDescription, resumeText),
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	if err != nil {
		return nil, &OracleError{Op: "score", Err: err}
	}

	assessment, err = ParseAssessment(reply, o.opts.Thresholds)
	if err != nil {
		o.log.Warn("invalid scoring reply",
			zap.Error(err),
			zap.String("reply_preview", logger.TruncateForLog(reply, logPreviewRunes)))
		return nil, &OracleError{Op: "score", Err: err}
	}

	o.log.Debug("resume scored",
		zap.Int("score", assessment.MatchScore),
		zap.String("status", string(assessment.Status)),
		zap.Bool("recomputed", assessment.Recomputed),
		zap.Duration("took", time.Since(started)))

	return assessment, nil
}

func (o *chatOracle) Classify(ctx context.Context, text string) (isResume bool, err error) {
	started := time.Now()
	defer func() { o.metrics.ObserveOracle("classify", started, err) }()

	reply, err := o.chat.Complete(ctx, ChatRequest{
		Messages:    o.prompts.BuildClassificationMessages(text),
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		return false, &OracleError{Op: "classify", Err: err}
	}

	reply = strings.ToLower(strings.TrimSpace(reply))
	if reply == "" {
		return false, &OracleError{Op: "classify", Err: errors.New("empty reply")}
	}

	return strings.Contains(reply, "true"), nil
}

type scoringReply struct {
	MatchScore      json.RawMessage `json:"matchScore"`
	MatchingSkills  *[]string       `json:"matchingSkills"`
	MissingSkills   *[]string       `json:"missingSkills"`
	ImpliedSkills   json.RawMessage `json:"impliedSkills"`
	Strengths       []string        `json:"strengths"`
	Recommendations *[]string       `json:"recommendations"`
	ScoreRationale  string          `json:"scoreRationale"`
	ScoreBreakdown  *ScoreBreakdown `json:"scoreBreakdown"`
}

// ParseAssessment validates a scoring reply. The reply may wrap the JSON
// object in prose or code fences.
func ParseAssessment(reply string, thresholds Thresholds) (*Assessment, error) {
	span, ok := extractJSON(reply)
	if !ok {
		return nil, errors.New("no JSON object in reply")
	}

	var raw scoringReply
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}

	score, err := parseScore(raw.MatchScore)
	if err != nil {
		return nil, err
	}

	switch {
	case raw.MatchingSkills == nil:
		return nil, errors.New("matchingSkills is missing")
	case raw.MissingSkills == nil:
		return nil, errors.New("missingSkills is missing")
	case raw.Recommendations == nil:
		return nil, errors.New("recommendations is missing")
	}

	implied, err := parseImpliedSkills(raw.ImpliedSkills)
	if err != nil {
		return nil, err
	}

	assessment := &Assessment{
		MatchScore:      score,
		MatchingSkills:  DedupeSkills(*raw.MatchingSkills),
		MissingSkills:   DedupeSkills(*raw.MissingSkills),
		ImpliedSkills:   implied,
		Strengths:       nonEmpty(raw.Strengths),
		Recommendations: nonEmpty(*raw.Recommendations),
		ScoreRationale:  strings.TrimSpace(raw.ScoreRationale),
	}

	if raw.ScoreBreakdown != nil && !raw.ScoreBreakdown.isEmpty() {
		assessment.MatchScore = raw.ScoreBreakdown.Compute()
		assessment.Recomputed = true
	}

	assessment.Status = thresholds.StatusFor(assessment.MatchScore)
	return assessment, nil
}

func parseScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("matchScore is missing")
	}

	var value float64
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, fmt.Errorf("matchScore is not a number: %s", raw)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("matchScore is not a number: %w", err)
	}

	return ClampScore(int(math.Round(value))), nil
}

func parseImpliedSkills(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("impliedSkills is missing")
	}

	var narrative string
	if err := json.Unmarshal(raw, &narrative); err == nil {
		return strings.TrimSpace(narrative), nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("impliedSkills must be a string or a list: %w", err)
	}
	return strings.Join(DedupeSkills(list), ", "), nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// extractJSON returns the first balanced top-level object in text. Braces
// inside JSON strings are ignored.
func extractJSON(text string) (string, bool) {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
