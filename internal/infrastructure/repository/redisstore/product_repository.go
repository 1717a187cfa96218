package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	indexKey         = "products:index"
	maxUpdateRetries = 5
)

// record is the JSON document stored per product
type record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	EnglishTitle string    `json:"englishTitle"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Image        string    `json:"image"`
	Specs        []string  `json:"specs"`
	CreatedAt    time.Time `json:"createdAt"`
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// ProductRepository is a Redis implementation of domain.ProductRepository.
// Each product is a JSON string; a sorted set scored by creation time keeps order.
type ProductRepository struct {
	client *redis.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a new Redis product repository
func NewProductRepository(client *redis.Client, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		client: client,
		tracer: tracer,
		logger: logger,
	}
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("product.id", product.ID),
	)

	data, err := json.Marshal(toRecord(product))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode product")
		return fmt.Errorf("failed to encode product: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, productKey(product.ID), data, 0)
		pipe.ZAdd(ctx, indexKey, redis.Z{
			Score:  float64(product.CreatedAt.UnixMilli()),
			Member: product.ID,
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		return fmt.Errorf("failed to store product: %w", err)
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
		attribute.String("db.system", "redis"),
		attribute.String("product.id", id),
	)

	data, err := r.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read product")
		return nil, fmt.Errorf("failed to read product: %w", err)
	}

	product, err := decode(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode product")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Product found")
	return product, nil
}

// FindAll retrieves all products in creation order
func (r *ProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	span.SetAttributes(attribute.String("db.system", "redis"))

	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read index")
		return nil, fmt.Errorf("failed to read product index: %w", err)
	}

	products := make([]*domain.Product, 0, len(ids))
	if len(ids) == 0 {
		span.SetStatus(codes.Ok, "Products retrieved successfully")
		return products, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read products")
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// index entry without a document; a concurrent delete is in flight
			r.logger.DebugContext(ctx, "Skipping dangling index entry",
				slog.String("product_id", ids[i]),
			)
			continue
		}
		product, err := decode([]byte(s))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to decode product")
			return nil, err
		}
		products = append(products, product)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update merges the patch inside an optimistic WATCH transaction
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("product.id", id),
	)

	key := productKey(id)
	var updated *domain.Product

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrProductNotFound
			}
			return err
		}

		product, err := decode(data)
		if err != nil {
			return err
		}
		product.Apply(patch)

		out, err := json.Marshal(toRecord(product))
		if err != nil {
			return fmt.Errorf("failed to encode product: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = product
		return nil
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			r.logger.InfoContext(ctx, "Product updated in repository",
				slog.String("product_id", id),
			)
			span.SetStatus(codes.Ok, "Product updated successfully")
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			span.AddEvent("transaction conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
			continue
		}
		if errors.Is(err, domain.ErrProductNotFound) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	span.SetStatus(codes.Error, "Too many transaction conflicts")
	return nil, fmt.Errorf("failed to update product %s: %w", id, redis.TxFailedErr)
}

// Delete removes a product and reports whether it existed
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("product.id", id),
	)

	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, productKey(id))
		pipe.ZRem(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	removed := del.Val() > 0
	span.SetAttributes(attribute.Bool("product.deleted", removed))
	span.SetStatus(codes.Ok, "Delete completed")
	return removed, nil
}

func toRecord(p *domain.Product) record {
	return record{
		ID:           p.ID,
		Title:        p.Title,
		EnglishTitle: p.EnglishTitle,
		Description:  p.Description,
		Price:        p.Price,
		Image:        p.Image,
		Specs:        p.Specs,
		CreatedAt:    p.CreatedAt,
	}
}

func decode(data []byte) (*domain.Product, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	specs := rec.Specs
	if specs == nil {
		specs = []string{}
	}
	return &domain.Product{
		ID:           rec.ID,
		Title:        rec.Title,
		EnglishTitle: rec.EnglishTitle,
		Description:  rec.Description,
		Price:        rec.Price,
		Image:        rec.Image,
		Specs:        specs,
		CreatedAt:    rec.CreatedAt,
	}, nil
}
