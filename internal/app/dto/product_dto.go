package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
)

var jsonNull = []byte("null")

// CreateProductRequest represents the request to create a product.
// Price and Specs are kept raw because the dashboard form sends price as a string.
type CreateProductRequest struct {
	Title        string          `json:"title"`
	EnglishTitle string          `json:"englishTitle"`
	Description  string          `json:"description"`
	Price        json.RawMessage `json:"price"`
	Image        string          `json:"image"`
	Specs        json.RawMessage `json:"specs"`
}

// UpdateProductRequest represents a partial update. Absent or null fields are not changed.
type UpdateProductRequest struct {
	Title        *string         `json:"title"`
	EnglishTitle *string         `json:"englishTitle"`
	Description  *string         `json:"description"`
	Price        json.RawMessage `json:"price"`
	Image        *string         `json:"image"`
	Specs        json.RawMessage `json:"specs"`
}

// ProductResponse represents the product response
type ProductResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	EnglishTitle string    `json:"englishTitle"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Image        string    `json:"image"`
	Specs        []string  `json:"specs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DeleteProductResponse is returned after a successful delete
type DeleteProductResponse struct {
	Success bool `json:"success"`
}

// Normalize checks required fields and returns the parsed price and specs
func (r *CreateProductRequest) Normalize() (float64, []string, error) {
	price, hasPrice, err := ParsePrice(r.Price)
	if r.Title == "" || r.EnglishTitle == "" || r.Image == "" || (!hasPrice && err == nil) {
		return 0, nil, domain.ErrMissingRequiredFields
	}
	if err != nil {
		return 0, nil, err
	}

	specs, _ := ParseSpecs(r.Specs)
	if specs == nil {
		specs = []string{}
	}
	return price, specs, nil
}

// ToPatch converts the request into a domain patch
func (r *UpdateProductRequest) ToPatch() (domain.ProductPatch, error) {
	patch := domain.ProductPatch{
		Title:        r.Title,
		EnglishTitle: r.EnglishTitle,
		Description:  r.Description,
		Image:        r.Image,
	}

	price, hasPrice, err := ParsePrice(r.Price)
	if err != nil {
		return domain.ProductPatch{}, err
	}
	if hasPrice {
		patch.Price = &price
	}

	if specs, ok := ParseSpecs(r.Specs); ok {
		patch.Specs = &specs
	}

	return patch, nil
}

// ParsePrice accepts a JSON number or a numeric string.
// An absent, null or blank value reports ok=false with no error.
func ParsePrice(raw json.RawMessage) (price float64, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return 0, false, nil
	}

	var text string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, domain.ErrInvalidProductPrice
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, false, nil
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		text = string(raw)
	default:
		return 0, false, domain.ErrInvalidProductPrice
	}

	// ParseFloat also takes Go literal forms such as "1_0" and "0x1p4"
	if strings.ContainsAny(text, "_xX") {
		return 0, false, domain.ErrInvalidProductPrice
	}

	price, err = strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false, domain.ErrInvalidProductPrice
	}
	return price, true, nil
}

// ParseSpecs decodes a specs array. Anything that is not an array becomes an
// empty list; non-string elements are rendered as text. ok is false when the
// field was absent or null.
func ParseSpecs(raw json.RawMessage) (specs []string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}, true
	}

	specs = make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch {
		case bytes.Equal(bytes.TrimSpace(item), jsonNull):
		case json.Unmarshal(item, &s) == nil:
		default:
			s = string(bytes.TrimSpace(item))
		}
		specs = append(specs, s)
	}
	return specs, true
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	specs := p.Specs
	if specs == nil {
		specs = []string{}
	}
	return &ProductResponse{
		ID:           p.ID,
		Title:        p.Title,
		EnglishTitle: p.EnglishTitle,
		Description:  p.Description,
		Price:        p.Price,
		Image:        p.Image,
		Specs:        specs,
		CreatedAt:    p.CreatedAt,
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}
