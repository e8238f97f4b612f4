// Package evidence builds the bounded evidence context a verification
// query is grounded on.
package evidence

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmallek/copycheck/internal/model"
)

// Assembler selects sentences from fetched documents into a budget-bounded
// evidence set. Selection prefers sentences sharing terms with the ad copy
// over positional truncation, so facts late in long pages are not
// systematically missed.
type Assembler struct {
	budget         int
	minSentenceLen int
	maxSentenceLen int
}

// NewAssembler creates an assembler for the given character budget
func NewAssembler(cfg model.EvidenceConfig) *Assembler {
	budget := cfg.Budget
	if budget <= 0 {
		budget = 30_000
	}
	minLen := cfg.MinSentenceLen
	if minLen <= 0 {
		minLen = 15
	}
	maxLen := cfg.MaxSentenceLen
	if maxLen <= 0 {
		maxLen = 500
	}

	return &Assembler{budget: budget, minSentenceLen: minLen, maxSentenceLen: maxLen}
}

// WithBudget returns a copy of the assembler packing under a different
// budget. Used for the overflow shrink-and-retry path.
func (a *Assembler) WithBudget(budget int) *Assembler {
	clone := *a
	clone.budget = budget
	return &clone
}

// Budget returns the configured character budget
func (a *Assembler) Budget() int { return a.budget }

// candidate is a scored sentence awaiting selection
type candidate struct {
	seg    model.Segment
	score  int
	docIdx int
	pos    int // sentence index within the document
}

// Assemble builds a deterministic evidence set: identical documents, budget,
// and ad copy always produce the identical segment ordering.
func (a *Assembler) Assemble(docs []model.SourceDocument, adCopy string) (model.EvidenceSet, error) {
	if len(docs) == 0 {
		return model.EvidenceSet{}, &model.EvidenceError{Kind: model.EvidenceEmptyInput}
	}

	terms := claimTerms(adCopy)

	var candidates []candidate
	for docIdx, doc := range docs {
		for pos, seg := range SegmentSentences(doc.Text, doc.URL, a.minSentenceLen, a.maxSentenceLen) {
			candidates = append(candidates, candidate{
				seg:    seg,
				score:  overlapScore(seg.Text, terms),
				docIdx: docIdx,
				pos:    pos,
			})
		}
	}

	// Rank by relevance, ties broken by document order then position
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].docIdx != candidates[j].docIdx {
			return candidates[i].docIdx < candidates[j].docIdx
		}
		return candidates[i].pos < candidates[j].pos
	})

	// Greedy pack under the budget. A sentence is never cut mid-way unless
	// it alone exceeds the whole budget and nothing has been packed yet.
	var selected []candidate
	used := 0
	for _, c := range candidates {
		n := len(c.seg.Text)
		if used+n > a.budget {
			if used == 0 && n > a.budget {
				c.seg.Text = c.seg.Text[:runeBoundary(c.seg.Text, a.budget)]
				selected = append(selected, c)
				used = len(c.seg.Text)
			}
			continue
		}
		selected = append(selected, c)
		used += n
	}

	// Present segments in document order so the model reads coherent prose
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].docIdx != selected[j].docIdx {
			return selected[i].docIdx < selected[j].docIdx
		}
		return selected[i].pos < selected[j].pos
	})

	set := model.EvidenceSet{Budget: a.budget}
	for _, c := range selected {
		set.Segments = append(set.Segments, c.seg)
	}

	return set, nil
}

// SegmentSentences splits normalized document text into provenance-tagged
// sentence segments. Lines act as hard boundaries (the extractor emits one
// block per line); within a line, sentence terminators split further.
func SegmentSentences(text, sourceURL string, minLen, maxLen int) []model.Segment {
	var segments []model.Segment

	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		start := 0
		for i, r := range line {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			// Avoid splitting decimals like $49.99
			if i+1 < len(line) && line[i+1] != ' ' {
				continue
			}
			sentence := strings.TrimSpace(line[start : i+1])
			segments = appendSentence(segments, sentence, sourceURL, lineStart+start, minLen, maxLen)
			start = i + 1
		}

		rest := strings.TrimSpace(line[start:])
		segments = appendSentence(segments, rest, sourceURL, lineStart+start, minLen, maxLen)
	}

	return segments
}

// appendSentence emits one sentence as segments. A sentence longer than
// maxLen is chunked into maxLen-sized pieces with advancing offsets rather
// than discarded: a terminator-free wall of text must still yield evidence.
func appendSentence(segments []model.Segment, sentence, sourceURL string, offset, minLen, maxLen int) []model.Segment {
	for len(sentence) > maxLen {
		cut := runeBoundary(sentence, maxLen)
		if cut == 0 {
			cut = maxLen
		}
		segments = append(segments, model.Segment{
			Text:      sentence[:cut],
			SourceURL: sourceURL,
			Offset:    offset,
		})
		sentence = sentence[cut:]
		offset += cut
	}

	if len(sentence) >= minLen {
		segments = append(segments, model.Segment{
			Text:      sentence,
			SourceURL: sourceURL,
			Offset:    offset,
		})
	}
	return segments
}

// runeBoundary returns the largest cut point not exceeding n that does not
// split a UTF-8 rune
func runeBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

// stopwords are too common to signal relevance
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "you": true, "your": true, "our": true, "are": true,
	"was": true, "from": true, "have": true, "has": true, "its": true,
	"all": true, "can": true, "will": true, "not": true, "but": true,
}

// claimTerms tokenizes ad copy into the lexical terms used for relevance
// ranking. Numbers and prices always count: they are the terms most likely
// to be hallucinated.
func claimTerms(adCopy string) map[string]bool {
	terms := make(map[string]bool)

	for _, tok := range tokenize(adCopy) {
		if len(tok) < 3 && !containsDigit(tok) {
			continue
		}
		if stopwords[tok] {
			continue
		}
		terms[tok] = true
	}

	return terms
}

// overlapScore counts distinct claim terms present in the sentence
func overlapScore(sentence string, terms map[string]bool) int {
	score := 0
	seen := make(map[string]bool)
	for _, tok := range tokenize(sentence) {
		if terms[tok] && !seen[tok] {
			seen[tok] = true
			score++
		}
	}
	return score
}

// tokenize lowercases and splits on everything that is not a letter, digit,
// or the characters that keep prices and decimals intact
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '$'
	})

	tokens := fields[:0]
	for _, f := range fields {
		// Sentence-final periods are punctuation, not part of the token
		f = strings.TrimRight(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
