// Package score aggregates claim verdicts into the overall grade.
package score

import (
	"github.com/jmallek/copycheck/internal/model"
)

// Scorer computes the aggregate score and overall verdict from claim
// verdicts. Thresholds are configuration so clients can tune strictness
// without code changes.
type Scorer struct {
	thresholds model.ThresholdConfig
}

// NewScorer creates a scorer with the given thresholds
func NewScorer(thresholds model.ThresholdConfig) *Scorer {
	if thresholds.PassScore <= 0 {
		thresholds.PassScore = 0.9
	}
	if thresholds.FailConfidence <= 0 {
		thresholds.FailConfidence = 0.7
	}
	return &Scorer{thresholds: thresholds}
}

// Aggregate computes the score and overall verdict.
//
// Score: (supported - contradicted) / (supported + contradicted), clamped
// to [0,1]. UNVERIFIABLE claims are excluded from the denominator but keep
// the verdict at NEEDS_REVIEW, so degraded output can never silently pass.
//
// Override: any CONTRADICTED claim at or above the fail-confidence
// threshold forces FAIL regardless of the score. A wrong price must not be
// averaged away by many correct minor claims.
//
// An empty verdict list is vacuously true: score 1.0, PASS.
func (s *Scorer) Aggregate(verdicts []model.ClaimVerdict) (float64, model.OverallVerdict) {
	if len(verdicts) == 0 {
		return 1.0, model.VerdictPass
	}

	var supported, contradicted, unverifiable int
	confidentContradiction := false

	for _, v := range verdicts {
		switch v.Status {
		case model.StatusSupported:
			supported++
		case model.StatusContradicted:
			contradicted++
			if v.Confidence >= s.thresholds.FailConfidence {
				confidentContradiction = true
			}
		case model.StatusUnverifiable:
			unverifiable++
		}
	}

	score := 1.0
	if denom := supported + contradicted; denom > 0 {
		score = float64(supported-contradicted) / float64(denom)
		if score < 0 {
			score = 0
		}
	}

	switch {
	case confidentContradiction:
		return score, model.VerdictFail
	case unverifiable > 0:
		return score, model.VerdictNeedsReview
	case score >= s.thresholds.PassScore:
		return score, model.VerdictPass
	default:
		return score, model.VerdictNeedsReview
	}
}
