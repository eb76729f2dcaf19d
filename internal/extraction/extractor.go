package extraction

// Toll is one proposed line item extracted from a page image: a toll amount
// and how many times it appears.
type Toll struct {
	Amount   float64 `json:"amount"`
	Quantity int     `json:"quantity"`
}

// Extractor defines the interface for vision extraction providers.
type Extractor interface {
	// ExtractTolls analyzes a rendered page image (PNG) and proposes toll
	// line items. Totals are never taken from the provider; callers compute
	// them from the returned lines.
	ExtractTolls(pageImage []byte) ([]Toll, error)
	// Close closes the extractor and releases resources
	Close() error
}
