package services

import (
	"fmt"
	"math"
	"strings"

	"alfredoptarigan/resume-screener/internal/models"
)

// Thresholds are the lower bounds of the Approved and Needs Improvement
// buckets. Anything below NeedsImprovement is Not a Match.
type Thresholds struct {
	Approved         int
	NeedsImprovement int
}

var (
	StandardThresholds = Thresholds{Approved: 70, NeedsImprovement: 55}
	StrictThresholds   = Thresholds{Approved: 75, NeedsImprovement: 50}
)

func ThresholdsByName(name string) (Thresholds, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard":
		return StandardThresholds, nil
	case "strict":
		return StrictThresholds, nil
	default:
		return Thresholds{}, fmt.Errorf("unknown threshold set %q", name)
	}
}

func (t Thresholds) StatusFor(score int) models.MatchStatus {
	switch {
	case score >= t.Approved:
		return models.StatusApproved
	case score >= t.NeedsImprovement:
		return models.StatusNeedsImprovement
	default:
		return models.StatusNotAMatch
	}
}

const (
	coreMatchedPoints      = 7
	coreMissingPenalty     = 8
	preferredMatchedPoints = 3
	preferredMissingLoss   = 1

	minProjectMultiplier = 0.9
	maxProjectMultiplier = 1.15
)

// ScoreBreakdown is the skill partition an oracle reports alongside its score.
type ScoreBreakdown struct {
	CoreMatched       []string `json:"coreMatched"`
	CoreMissing       []string `json:"coreMissing"`
	PreferredMatched  []string `json:"preferredMatched"`
	PreferredMissing  []string `json:"preferredMissing"`
	ProjectMultiplier float64  `json:"projectMultiplier"`
}

// RawScore is the weighted skill sum before the multiplier and caps.
func (b ScoreBreakdown) RawScore() int {
	return len(b.CoreMatched)*coreMatchedPoints -
		len(b.CoreMissing)*coreMissingPenalty +
		len(b.PreferredMatched)*preferredMatchedPoints -
		len(b.PreferredMissing)*preferredMissingLoss
}

// Multiplier returns the project quality multiplier clamped to its range. A
// missing multiplier counts as neutral.
func (b ScoreBreakdown) Multiplier() float64 {
	m := b.ProjectMultiplier
	if m == 0 {
		return 1
	}
	return math.Min(maxProjectMultiplier, math.Max(minProjectMultiplier, m))
}

// Compute applies the scoring formula: weighted sum, multiplier, the
// missing-core caps and finally the [0, 100] clamp.
func (b ScoreBreakdown) Compute() int {
	score := int(math.Round(float64(b.RawScore()) * b.Multiplier()))

	if coreTotal := len(b.CoreMatched) + len(b.CoreMissing); coreTotal > 0 {
		missing := float64(len(b.CoreMissing)) / float64(coreTotal)
		switch {
		case missing > 0.6:
			score = min(score, 45)
		case missing > 0.4:
			score = min(score, 60)
		}
	}

	return ClampScore(score)
}

func (b ScoreBreakdown) isEmpty() bool {
	return len(b.CoreMatched)+len(b.CoreMissing)+len(b.PreferredMatched)+len(b.PreferredMissing) == 0
}

func ClampScore(score int) int {
	return max(0, min(100, score))
}

// DedupeSkills trims entries and drops case-insensitive duplicates, keeping
// the first spelling and the original order. The result is never nil.
func DedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
