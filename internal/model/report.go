package model

import "time"

// VerdictStatus is the model's grounding decision for one claim
type VerdictStatus string

const (
	StatusSupported    VerdictStatus = "SUPPORTED"    // Evidence backs the claim
	StatusContradicted VerdictStatus = "CONTRADICTED" // Evidence conflicts with the claim
	StatusUnverifiable VerdictStatus = "UNVERIFIABLE" // Evidence is silent on the claim
)

// Valid reports whether s is one of the three recognized statuses
func (s VerdictStatus) Valid() bool {
	switch s {
	case StatusSupported, StatusContradicted, StatusUnverifiable:
		return true
	}
	return false
}

// OverallVerdict is the aggregate pass/fail decision for the whole ad
type OverallVerdict string

const (
	VerdictPass        OverallVerdict = "PASS"
	VerdictFail        OverallVerdict = "FAIL"
	VerdictNeedsReview OverallVerdict = "NEEDS_REVIEW"
)

// ClaimVerdict is the validated per-claim result
type ClaimVerdict struct {
	Claim      Claim         `json:"claim"`
	Status     VerdictStatus `json:"status"`
	Confidence float64       `json:"confidence"`         // In [0,1], taken from the model output
	Evidence   string        `json:"evidence,omitempty"` // Cited evidence span, if the model provided one
}

// PageFailure records one reference page that could not be fetched
type PageFailure struct {
	URL    string `json:"url"`
	Kind   string `json:"kind"` // FetchErrorKind
	Reason string `json:"reason"`
}

// VerificationReport is the terminal artifact of one verification request.
// Not mutated after creation.
type VerificationReport struct {
	AdCopy    string    `json:"ad_copy"`              // The ad copy that was graded
	TargetURL string    `json:"target_url,omitempty"` // Primary reference, for display
	CheckedAt time.Time `json:"checked_at"`

	Verdicts  []ClaimVerdict `json:"verdicts"`
	Score     float64        `json:"score"`                // Aggregate in [0,1]
	Verdict   OverallVerdict `json:"verdict"`              // PASS, FAIL, NEEDS_REVIEW
	ToneNotes string         `json:"tone_notes,omitempty"` // Free-text voice analysis; never affects the score

	Latency      time.Duration `json:"latency_ns"`
	PageFailures []PageFailure `json:"page_failures,omitempty"` // Pages that failed to fetch (non-fatal subset)
	Warnings     []string      `json:"warnings,omitempty"`      // Degradations, e.g. malformed model output

	Failed        bool   `json:"failed"`                   // Terminal FAILED state (no score emitted)
	FailureStage  string `json:"failure_stage,omitempty"`  // Pipeline stage that failed
	FailureReason string `json:"failure_reason,omitempty"` // Human-readable reason
}
