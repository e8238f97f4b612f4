package model

import "fmt"

// FetchErrorKind classifies content-retrieval failures
type FetchErrorKind string

const (
	FetchTimeout      FetchErrorKind = "TIMEOUT"       // Network timeout or unreachable host
	FetchNotFound     FetchErrorKind = "NOT_FOUND"     // 404/410 or otherwise unretrievable content
	FetchBlocked      FetchErrorKind = "BLOCKED"       // robots.txt denial, 401, 403
	FetchParseFailure FetchErrorKind = "PARSE_FAILURE" // Unparseable markup or no extractable prose
)

// FetchError reports a failure to retrieve one reference page
type FetchError struct {
	URL  string
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EvidenceErrorKind classifies evidence assembly failures
type EvidenceErrorKind string

const (
	EvidenceEmptyInput EvidenceErrorKind = "EMPTY_INPUT" // No documents to draw evidence from
)

// EvidenceError reports that no usable grounding material exists
type EvidenceError struct {
	Kind EvidenceErrorKind
}

func (e *EvidenceError) Error() string {
	return fmt.Sprintf("evidence: %s", e.Kind)
}

// ModelErrorKind classifies capability-layer failures
type ModelErrorKind string

const (
	ModelTimeout         ModelErrorKind = "TIMEOUT"
	ModelRateLimited     ModelErrorKind = "RATE_LIMITED"
	ModelContextOverflow ModelErrorKind = "CONTEXT_OVERFLOW"
	ModelServiceError    ModelErrorKind = "SERVICE_ERROR"
)

// ModelError reports a language-model capability failure
type ModelError struct {
	Kind ModelErrorKind
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("model: %s", e.Kind)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ParseErrorKind classifies verdict parsing failures
type ParseErrorKind string

const (
	ParseMalformedOutput ParseErrorKind = "MALFORMED_OUTPUT"
)

// ParseError reports model output that cannot be mapped to claim verdicts
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("parse: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("parse: %s", e.Kind)
}
