package score

import (
	"testing"

	"github.com/jmallek/copycheck/internal/model"
)

func defaultScorer() *Scorer {
	return NewScorer(model.ThresholdConfig{PassScore: 0.9, FailConfidence: 0.7})
}

func verdict(status model.VerdictStatus, confidence float64) model.ClaimVerdict {
	return model.ClaimVerdict{
		Claim:      model.Claim{Text: "claim"},
		Status:     status,
		Confidence: confidence,
	}
}

func TestAggregate_EmptyIsVacuousPass(t *testing.T) {
	score, overall := defaultScorer().Aggregate(nil)
	if score != 1.0 {
		t.Errorf("Expected score 1.0, got %v", score)
	}
	if overall != model.VerdictPass {
		t.Errorf("Expected PASS, got %s", overall)
	}
}

func TestAggregate_AllSupported(t *testing.T) {
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusSupported, 0.95),
		verdict(model.StatusSupported, 0.9),
	}

	score, overall := defaultScorer().Aggregate(verdicts)
	if score != 1.0 {
		t.Errorf("Expected score 1.0, got %v", score)
	}
	if overall != model.VerdictPass {
		t.Errorf("Expected PASS, got %s", overall)
	}
}

func TestAggregate_ConfidentContradictionOverrides(t *testing.T) {
	// One high-confidence contradiction among many supported claims
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusContradicted, 0.95),
	}

	_, overall := defaultScorer().Aggregate(verdicts)
	if overall != model.VerdictFail {
		t.Errorf("High-confidence contradiction must force FAIL, got %s", overall)
	}
}

func TestAggregate_LowConfidenceContradictionNoOverride(t *testing.T) {
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusContradicted, 0.4),
	}

	score, overall := defaultScorer().Aggregate(verdicts)
	if overall == model.VerdictFail {
		t.Errorf("Low-confidence contradiction should not force FAIL")
	}
	if overall != model.VerdictNeedsReview {
		t.Errorf("Expected NEEDS_REVIEW, got %s", overall)
	}
	if score != 0 {
		t.Errorf("Expected score 0 for (1-1)/2, got %v", score)
	}
}

func TestAggregate_UnverifiableFlagged(t *testing.T) {
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusSupported, 0.95),
		verdict(model.StatusUnverifiable, 0),
	}

	score, overall := defaultScorer().Aggregate(verdicts)
	if score != 1.0 {
		t.Errorf("Unverifiable claims excluded from denominator; expected 1.0, got %v", score)
	}
	if overall != model.VerdictNeedsReview {
		t.Errorf("Unverifiable claims must flag NEEDS_REVIEW, got %s", overall)
	}
}

func TestAggregate_AllUnverifiable(t *testing.T) {
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusUnverifiable, 0),
		verdict(model.StatusUnverifiable, 0),
	}

	_, overall := defaultScorer().Aggregate(verdicts)
	if overall != model.VerdictNeedsReview {
		t.Errorf("Fully degraded output must not pass, got %s", overall)
	}
}

func TestAggregate_ScoreClampedAtZero(t *testing.T) {
	verdicts := []model.ClaimVerdict{
		verdict(model.StatusContradicted, 0.5),
		verdict(model.StatusContradicted, 0.5),
	}

	score, _ := defaultScorer().Aggregate(verdicts)
	if score != 0 {
		t.Errorf("Expected clamped score 0, got %v", score)
	}
}

func TestAggregate_CustomThresholds(t *testing.T) {
	strict := NewScorer(model.ThresholdConfig{PassScore: 1.0, FailConfidence: 0.3})

	verdicts := []model.ClaimVerdict{
		verdict(model.StatusSupported, 0.9),
		verdict(model.StatusContradicted, 0.35),
	}

	_, overall := strict.Aggregate(verdicts)
	if overall != model.VerdictFail {
		t.Errorf("Stricter fail-confidence should trigger FAIL, got %s", overall)
	}
}
