package model

import "time"

// SourceDocument is the normalized prose content of one fetched reference page.
// Immutable once fetched.
type SourceDocument struct {
	URL       string    `json:"url"`        // Final URL after redirects
	Text      string    `json:"-"`          // Extracted plain text (not serialized into reports)
	FetchedAt time.Time `json:"fetched_at"` // When the fetch completed
	Meta      FetchMeta `json:"fetch_meta"` // HTTP metadata
}

// FetchMeta contains HTTP metadata from fetching a source page
type FetchMeta struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Bytes       int64  `json:"bytes"` // Raw body bytes read (post size cap)
}

// Segment is one contiguous span of evidence text with provenance
type Segment struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"` // Originating document
	Offset    int    `json:"offset"`     // Character offset within the document text
}

// EvidenceSet is an ordered, budget-bounded selection of segments built fresh
// for a single verification request
type EvidenceSet struct {
	Segments []Segment `json:"segments"`
	Budget   int       `json:"budget"` // Character budget the set was packed under
}

// Size returns the total character length of all segments
func (e EvidenceSet) Size() int {
	total := 0
	for _, s := range e.Segments {
		total += len(s.Text)
	}
	return total
}
