// Package claims decomposes ad copy into discrete, independently checkable
// factual claims.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/jmallek/copycheck/internal/llm"
	"github.com/jmallek/copycheck/internal/model"
)

// Extractor splits ad copy into claims. The default mechanism is a
// deterministic rule-based splitter; an optional model-backed mode
// decomposes via the LLM and falls back to the rules when the model
// output cannot be used. The contract is on the output invariant (every
// factual assertion maps to exactly one claim), not the mechanism.
type Extractor struct {
	useModel  bool
	provider  llm.Provider
	maxClaims int
}

// NewExtractor creates a claim extractor
func NewExtractor(cfg model.ClaimsConfig, provider llm.Provider) *Extractor {
	maxClaims := cfg.MaxClaims
	if maxClaims <= 0 {
		maxClaims = 20
	}

	return &Extractor{
		useModel:  cfg.UseModel && provider != nil,
		provider:  provider,
		maxClaims: maxClaims,
	}
}

// Extract returns the ordered claim list for the ad copy. Empty or purely
// non-factual copy yields an empty list, which is a valid outcome.
func (e *Extractor) Extract(ctx context.Context, adCopy string) ([]model.Claim, error) {
	adCopy = strings.TrimSpace(adCopy)
	if adCopy == "" {
		return nil, nil
	}

	if e.useModel {
		if claims, err := e.extractWithModel(ctx, adCopy); err == nil {
			return claims, nil
		}
		// Model decomposition is best-effort; the rule splitter is the floor
	}

	return e.extractWithRules(adCopy), nil
}

// factualKeywords signal checkable assertions in the absence of numbers
var factualKeywords = []string{
	"free", "guarantee", "guaranteed", "warranty", "ships", "shipping",
	"delivery", "delivered", "available", "in stock", "stock", "refund",
	"returns", "price", "cost", "costs", "discount", "off", "save",
	"certified", "award", "rated", "fastest", "largest", "only", "waterproof",
	"organic", "handmade", "made in", "patented", "lifetime", "24/7",
}

// extractWithRules splits the copy into assertion units and keeps the
// factual ones. Sentences split further on commas and semicolons when both
// sides carry their own factual signal ("Ships in 2 days, $49.99" is two
// claims, not one compound claim).
func (e *Extractor) extractWithRules(adCopy string) []model.Claim {
	var claims []model.Claim
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(adCopy) {
		for _, unit := range splitAssertions(sentence) {
			unit = strings.TrimSpace(strings.Trim(unit, ".!?,;"))
			if unit == "" {
				continue
			}

			heuristic, factual := factualSignal(unit)
			if !factual {
				continue
			}

			key := strings.ToLower(unit)
			if seen[key] {
				continue
			}
			seen[key] = true

			claims = append(claims, model.Claim{
				Text:      unit,
				Category:  categorize(unit),
				Heuristic: heuristic,
				Position:  len(claims),
			})

			if len(claims) >= e.maxClaims {
				return claims
			}
		}
	}

	return claims
}

// splitSentences splits copy on sentence terminators and line breaks
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Avoid splitting decimals like $49.99
			if r == '.' && i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\n' {
				continue
			}
			flush()
		}
	}
	flush()

	return sentences
}

// splitAssertions breaks one sentence on commas/semicolons when every part
// stands alone as a factual unit; otherwise the sentence stays whole
func splitAssertions(sentence string) []string {
	parts := strings.FieldsFunc(sentence, func(r rune) bool {
		return r == ',' || r == ';'
	})
	if len(parts) < 2 {
		return []string{sentence}
	}

	for _, part := range parts {
		if _, ok := factualSignal(strings.TrimSpace(part)); !ok {
			return []string{sentence}
		}
	}

	return parts
}

// factualSignal reports whether the text contains a checkable assertion and
// which rule matched
func factualSignal(text string) (string, bool) {
	if containsDigit(text) {
		return "digit", true
	}
	lower := strings.ToLower(text)
	for _, kw := range factualKeywords {
		if strings.Contains(lower, kw) {
			return "keyword:" + kw, true
		}
	}
	return "", false
}

// categorize assigns the claim category from surface features
func categorize(text string) model.ClaimCategory {
	lower := strings.ToLower(text)

	switch {
	case strings.ContainsAny(text, "$€£") ||
		containsAnyWord(lower, "price", "cost", "costs", "discount", "save", "% off", "fee"):
		return model.CategoryPrice
	case containsAnyWord(lower, "ship", "ships", "shipping", "delivery", "delivered",
		"available", "stock", "hours", "days", "24/7"):
		return model.CategoryAvailability
	case containsAnyWord(lower, "waterproof", "battery", "warranty", "certified",
		"organic", "handmade", "patented", "made in", "material", "capacity"):
		return model.CategoryFeature
	default:
		return model.CategoryOther
	}
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// decompositionPrompt asks the model for a flat JSON list of claims
const decompositionPrompt = `Decompose the following ad copy into discrete factual claims. Each claim must be a single checkable fact; never combine two facts into one claim. Ignore slogans, taglines, and subjective puffery. Return a JSON array of strings only, no Markdown code blocks, e.g. ["Ships in 2 days", "$49.99"]. Return [] if the copy makes no factual claims.

Ad copy:
%s`

// extractWithModel decomposes via the LLM
func (e *Extractor) extractWithModel(ctx context.Context, adCopy string) ([]model.Claim, error) {
	comp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(decompositionPrompt, adCopy),
		MaxTokens:   500,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(comp.Text)
	text = stripCodeFence(text)

	var texts []string
	if err := json.Unmarshal([]byte(text), &texts); err != nil {
		return nil, fmt.Errorf("decomposition output not a JSON array: %w", err)
	}

	var claims []model.Claim
	seen := make(map[string]bool)
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true

		claims = append(claims, model.Claim{
			Text:      t,
			Category:  categorize(t),
			Heuristic: "model",
			Position:  len(claims),
		})
		if len(claims) >= e.maxClaims {
			break
		}
	}

	return claims, nil
}

// stripCodeFence removes a surrounding markdown code block, which chat
// models add despite instructions
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
