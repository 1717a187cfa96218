package domain

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrMissingProductID = errors.New("product ID required")
)

// ProductRepository defines the contract for product storage
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	// Update merges patch onto the stored product atomically and returns the result.
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	// Delete reports whether a product was removed. A missing id is not an error.
	Delete(ctx context.Context, id string) (bool, error)
}
