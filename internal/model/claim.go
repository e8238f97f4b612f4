package model

// Claim represents a single, independently checkable factual assertion
// extracted from ad copy
type Claim struct {
	Text      string        `json:"text"`                // The claim text itself
	Category  ClaimCategory `json:"category,omitempty"`  // price, feature, availability, other
	Heuristic string        `json:"heuristic,omitempty"` // Which extraction rule matched (e.g., "keyword:ships")
	Position  int           `json:"position"`            // Order of appearance in the ad copy (0-based)
}

// ClaimCategory categorizes the nature of the claim
type ClaimCategory string

const (
	CategoryPrice        ClaimCategory = "price"        // Prices, discounts, fees
	CategoryFeature      ClaimCategory = "feature"      // Product capabilities and specs
	CategoryAvailability ClaimCategory = "availability" // Shipping, stock, hours, regions
	CategoryOther        ClaimCategory = "other"        // Everything else that is still factual
)
