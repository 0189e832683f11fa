package page

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page is a structured data object identified by an Address.
//
// Contract:
// - Identity: Address() must equal the address the page was produced for.
// - Serialization: concrete page types must be JSON-serializable; embedding
//   Base provides the address fields.
type Page interface {
	Address() Address
}

// Base carries the addressing fields shared by all page types. Concrete
// pages embed it:
//
//	type EmailPage struct {
//		page.Base
//		Subject string `json:"subject"`
//	}
type Base struct {
	URI    Address  `json:"uri"`
	Parent *Address `json:"parent_uri,omitempty"`
}

// Address returns the page's own address.
func (b Base) Address() Address { return b.URI }

// NewBase constructs a Base for the given address.
func NewBase(addr Address) Base { return Base{URI: addr} }

// WithParent returns a copy of the base with a parent address attached,
// for provenance tracking.
func (b Base) WithParent(parent Address) Base {
	b.Parent = &parent
	return b
}

// TextPage is a built-in page carrying plain text content.
type TextPage struct {
	Base
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

// NewTextPage builds a TextPage with an estimated token count.
func NewTextPage(addr Address, content string) *TextPage {
	return &TextPage{
		Base:       NewBase(addr),
		Content:    content,
		TokenCount: EstimateTokens(content),
	}
}

// EstimateTokens approximates the token count of text using a fixed
// 4-characters-per-token ratio. A non-empty text estimates at least 1.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Data renders a page as a plain attribute map via a JSON round-trip.
// Address-valued fields appear as their canonical strings.
func Data(p Page) (map[string]any, error) {
	if p == nil {
		return nil, fmt.Errorf("page: cannot render nil page")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("page: serializing %s: %w", p.Address(), err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("page: rendering %s: %w", p.Address(), err)
	}
	return attrs, nil
}

// Ensure built-in pages implement Page
var _ Page = (*TextPage)(nil)
var _ Page = Base{}
