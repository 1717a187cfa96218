package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const schema = `CREATE TABLE IF NOT EXISTS products (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	english_title TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         DOUBLE PRECISION NOT NULL,
	image         TEXT NOT NULL,
	specs         TEXT[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL
)`

const productColumns = `id, title, english_title, description, price, image, specs, created_at`

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ProductRepository is a PostgreSQL implementation of domain.ProductRepository
type ProductRepository struct {
	db     *sql.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sql.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		tracer: tracer,
		logger: logger,
	}
}

// EnsureSchema creates the products table if it does not exist
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	return nil
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("product.id", product.ID),
	)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID,
		product.Title,
		product.EnglishTitle,
		product.Description,
		product.Price,
		product.Image,
		pq.Array(product.Specs),
		product.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert product")
		return fmt.Errorf("failed to insert product: %w", err)
	}

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", product.ID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("product.id", id),
	)

	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	span.SetStatus(codes.Ok, "Product found")
	return product, nil
}

// FindAll retrieves all products in creation order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	span.SetAttributes(attribute.String("db.system", "postgresql"))

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to scan product")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to iterate products")
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update applies the patch in a single statement. Nil patch fields keep the stored value.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("product.id", id),
	)

	var specs []string
	if patch.Specs != nil {
		specs = *patch.Specs
		if specs == nil {
			specs = []string{}
		}
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE products SET
			title = COALESCE($2::text, title),
			english_title = COALESCE($3::text, english_title),
			description = COALESCE($4::text, description),
			price = COALESCE($5::double precision, price),
			image = COALESCE($6::text, image),
			specs = COALESCE($7::text[], specs)
		WHERE id = $1
		RETURNING `+productColumns,
		id,
		patch.Title,
		patch.EnglishTitle,
		patch.Description,
		patch.Price,
		patch.Image,
		pq.Array(specs),
	)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return product, nil
}

// Delete removes a product and reports whether it existed
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("product.id", id),
	)

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read affected rows")
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	span.SetAttributes(attribute.Bool("product.deleted", n > 0))
	span.SetStatus(codes.Ok, "Delete completed")
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var p domain.Product
	err := s.Scan(
		&p.ID,
		&p.Title,
		&p.EnglishTitle,
		&p.Description,
		&p.Price,
		&p.Image,
		pq.Array(&p.Specs),
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Specs == nil {
		p.Specs = []string{}
	}
	return &p, nil
}
