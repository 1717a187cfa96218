package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingRequiredFields = errors.New("missing required fields")
	ErrInvalidProductPrice   = errors.New("product price must be a number")
)

// Product represents a catalog entry
type Product struct {
	ID           string
	Title        string
	EnglishTitle string
	Description  string
	Price        float64
	Image        string
	Specs        []string
	CreatedAt    time.Time
}

// ProductPatch is a sparse set of field changes. Nil fields are left untouched.
// ID and CreatedAt cannot be patched.
type ProductPatch struct {
	Title        *string
	EnglishTitle *string
	Description  *string
	Price        *float64
	Image        *string
	Specs        *[]string
}

// NewProduct creates a new product with a fresh id and creation time
func NewProduct(title, englishTitle, description string, price float64, image string, specs []string) (*Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	if specs == nil {
		specs = []string{}
	}

	product := &Product{
		ID:           id.String(),
		Title:        title,
		EnglishTitle: englishTitle,
		Description:  description,
		Price:        price,
		Image:        image,
		Specs:        specs,
		CreatedAt:    time.Now().UTC(),
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// Validate checks the fields required at creation time
func (p *Product) Validate() error {
	if p.Title == "" || p.EnglishTitle == "" || p.Image == "" {
		return ErrMissingRequiredFields
	}
	return nil
}

// Apply merges the patch onto the product in place
func (p *Product) Apply(patch ProductPatch) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.EnglishTitle != nil {
		p.EnglishTitle = *patch.EnglishTitle
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Specs != nil {
		p.Specs = append([]string{}, (*patch.Specs)...)
	}
}

// Clone returns a deep copy so callers never share the specs backing array
func (p *Product) Clone() *Product {
	c := *p
	c.Specs = append([]string{}, p.Specs...)
	return &c
}

// IsEmpty reports whether the patch changes nothing
func (patch ProductPatch) IsEmpty() bool {
	return patch.Title == nil &&
		patch.EnglishTitle == nil &&
		patch.Description == nil &&
		patch.Price == nil &&
		patch.Image == nil &&
		patch.Specs == nil
}
