// Package verdict parses and validates the model's structured verification
// response. The model is untrusted: nothing about the output shape is
// assumed until it has been checked here.
package verdict

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmallek/copycheck/internal/model"
)

// rawResponse mirrors the JSON structure the grounding prompt requests
type rawResponse struct {
	Verdicts  []rawVerdict `json:"verdicts"`
	ToneNotes string       `json:"tone_notes"`
}

type rawVerdict struct {
	Claim      int     `json:"claim"` // 1-based claim number
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// Parse maps the raw completion text onto claim verdicts aligned one-to-one
// with the claims. It validates that every claim has exactly one verdict,
// the status is recognized, and the confidence is a valid probability.
// Returns the verdicts, the tone notes (may be empty), or a
// *model.ParseError when the response cannot be mapped.
func Parse(completion string, claims []model.Claim) ([]model.ClaimVerdict, string, error) {
	payload := extractJSON(completion)
	if payload == "" {
		return nil, "", &model.ParseError{Kind: model.ParseMalformedOutput, Detail: "no JSON object in response"}
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, "", &model.ParseError{Kind: model.ParseMalformedOutput, Detail: fmt.Sprintf("decode: %v", err)}
	}

	if len(raw.Verdicts) != len(claims) {
		return nil, "", &model.ParseError{
			Kind:   model.ParseMalformedOutput,
			Detail: fmt.Sprintf("expected %d verdicts, got %d", len(claims), len(raw.Verdicts)),
		}
	}

	verdicts := make([]model.ClaimVerdict, len(claims))
	seen := make([]bool, len(claims))

	for _, rv := range raw.Verdicts {
		idx := rv.Claim - 1
		if idx < 0 || idx >= len(claims) {
			return nil, "", &model.ParseError{
				Kind:   model.ParseMalformedOutput,
				Detail: fmt.Sprintf("verdict references unknown claim %d", rv.Claim),
			}
		}
		if seen[idx] {
			return nil, "", &model.ParseError{
				Kind:   model.ParseMalformedOutput,
				Detail: fmt.Sprintf("claim %d has multiple verdicts", rv.Claim),
			}
		}
		seen[idx] = true

		status := model.VerdictStatus(strings.ToUpper(strings.TrimSpace(rv.Status)))
		if !status.Valid() {
			return nil, "", &model.ParseError{
				Kind:   model.ParseMalformedOutput,
				Detail: fmt.Sprintf("claim %d has unrecognized status %q", rv.Claim, rv.Status),
			}
		}
		if rv.Confidence < 0 || rv.Confidence > 1 {
			return nil, "", &model.ParseError{
				Kind:   model.ParseMalformedOutput,
				Detail: fmt.Sprintf("claim %d confidence %v outside [0,1]", rv.Claim, rv.Confidence),
			}
		}

		verdicts[idx] = model.ClaimVerdict{
			Claim:      claims[idx],
			Status:     status,
			Confidence: rv.Confidence,
			Evidence:   strings.TrimSpace(rv.Evidence),
		}
	}

	return verdicts, strings.TrimSpace(raw.ToneNotes), nil
}

// Unverifiable builds the degraded verdict list used when the model output
// is malformed: every claim becomes UNVERIFIABLE instead of the whole
// report being discarded.
func Unverifiable(claims []model.Claim) []model.ClaimVerdict {
	verdicts := make([]model.ClaimVerdict, len(claims))
	for i, c := range claims {
		verdicts[i] = model.ClaimVerdict{
			Claim:      c,
			Status:     model.StatusUnverifiable,
			Confidence: 0,
		}
	}
	return verdicts
}

// extractJSON isolates the JSON object from the completion, tolerating the
// markdown code fences chat models add despite instructions
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}

	return s[start : end+1]
}
