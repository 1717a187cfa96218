package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/app/dto"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productDeletedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productDeletedCounter, _ := meter.Int64Counter(
		"products.deleted.total",
		metric.WithDescription("Total number of products deleted"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productDeletedCounter: productDeletedCounter,
		productOperations:     productOperations,
	}
}

func (s *ProductService) recordOperation(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// CreateProduct validates the request and stores a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.english_title", req.EnglishTitle))

	price, specs, err := req.Normalize()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Rejected product",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "create", "invalid")
		return nil, err
	}

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("english_title", req.EnglishTitle),
		slog.Float64("price", price),
		slog.Int("specs", len(specs)),
	)

	product, err := domain.NewProduct(req.Title, req.EnglishTitle, req.Description, price, req.Image, specs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.ErrorContext(ctx, "Failed to create product",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "create", "failure")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.Float64("product.price", product.Price),
	)

	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		s.logger.ErrorContext(ctx, "Failed to store product",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "create", "failure")
		return nil, err
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.recordOperation(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", product.ID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get product")
		result := "failure"
		if errors.Is(err, domain.ErrProductNotFound) {
			result = "not_found"
		}
		s.recordOperation(ctx, "read", result)
		return nil, err
	}

	s.recordOperation(ctx, "read", "success")

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// ListProducts retrieves all products
func (s *ProductService) ListProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	products, err := s.repo.FindAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve products")
		s.logger.ErrorContext(ctx, "Failed to list products",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "list", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	s.recordOperation(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductResponseList(products), nil
}

// UpdateProduct applies a partial update. id and createdAt are never changed.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	if id == "" {
		span.SetStatus(codes.Error, "Missing product id")
		s.recordOperation(ctx, "update", "invalid")
		return nil, domain.ErrMissingProductID
	}

	patch, err := req.ToPatch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Rejected product update",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "update", "invalid")
		return nil, err
	}

	var product *domain.Product
	if patch.IsEmpty() {
		span.AddEvent("empty patch")
		s.logger.DebugContext(ctx, "Update carries no changes, returning stored product",
			slog.String("product_id", id),
		)
		product, err = s.repo.FindByID(ctx, id)
	} else {
		product, err = s.repo.Update(ctx, id, patch)
	}
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrProductNotFound) {
			span.SetStatus(codes.Error, "Product not found")
			s.logger.WarnContext(ctx, "Product not found",
				slog.String("product_id", id),
			)
			s.recordOperation(ctx, "update", "not_found")
			return nil, err
		}
		span.SetStatus(codes.Error, "Failed to update product")
		s.logger.ErrorContext(ctx, "Failed to update product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "update", "failure")
		return nil, err
	}

	s.recordOperation(ctx, "update", "success")

	s.logger.InfoContext(ctx, "Product updated successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return dto.ToProductResponse(product), nil
}

// DeleteProduct removes a product and reports whether one was removed
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	if id == "" {
		span.SetStatus(codes.Error, "Missing product id")
		s.recordOperation(ctx, "delete", "invalid")
		return false, domain.ErrMissingProductID
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete product")
		s.logger.ErrorContext(ctx, "Failed to delete product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "delete", "failure")
		return false, err
	}

	if !removed {
		span.SetStatus(codes.Error, "Product not found")
		s.logger.WarnContext(ctx, "Product not found",
			slog.String("product_id", id),
		)
		s.recordOperation(ctx, "delete", "not_found")
		return false, nil
	}

	s.productDeletedCounter.Add(ctx, 1)
	s.recordOperation(ctx, "delete", "success")

	s.logger.InfoContext(ctx, "Product deleted successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return true, nil
}
