package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository.
// Contents are lost when the process exits.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	order    []string
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
		tracer:   tracer,
		logger:   logger,
	}
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.String("product.english_title", product.EnglishTitle),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; !exists {
		r.order = append(r.order, product.ID)
	}
	r.products[product.ID] = product.Clone()

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", product.ID),
		slog.String("product_english_title", product.EnglishTitle),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		r.logger.WarnContext(ctx, "Product not found",
			slog.String("product_id", id),
		)
		return nil, domain.ErrProductNotFound
	}

	r.logger.DebugContext(ctx, "Product found in repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product found")
	return product.Clone(), nil
}

// FindAll retrieves all products in creation order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*domain.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.products[id].Clone())
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))

	r.logger.DebugContext(ctx, "Products retrieved from repository",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update merges the patch onto the stored product under the write lock
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	product, exists := r.products[id]
	if !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}

	product.Apply(patch)

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return product.Clone(), nil
}

// Delete removes a product and reports whether it existed
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[id]; !exists {
		span.SetAttributes(attribute.Bool("product.deleted", false))
		return false, nil
	}

	delete(r.products, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id),
	)

	span.SetAttributes(attribute.Bool("product.deleted", true))
	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}
