package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/app/dto"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/repository/memory"
)

var processStart = time.Now().UTC()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo domain.ProductRepository) *ProductService {
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewProductService(repo, tracer, metricnoop.NewMeterProvider().Meter("test"), discardLogger())
}

func newMemoryService() *ProductService {
	tracer := noop.NewTracerProvider().Tracer("test")
	return newTestService(memory.NewProductRepository(tracer, discardLogger()))
}

func createRequest(t *testing.T, body string) *dto.CreateProductRequest {
	t.Helper()
	var req dto.CreateProductRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func updateRequest(t *testing.T, body string) *dto.UpdateProductRequest {
	t.Helper()
	var req dto.UpdateProductRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

// failingRepository returns err from every call
type failingRepository struct{ err error }

func (r failingRepository) Create(context.Context, *domain.Product) error { return r.err }
func (r failingRepository) FindByID(context.Context, string) (*domain.Product, error) {
	return nil, r.err
}
func (r failingRepository) FindAll(context.Context) ([]*domain.Product, error) { return nil, r.err }
func (r failingRepository) Update(context.Context, string, domain.ProductPatch) (*domain.Product, error) {
	return nil, r.err
}
func (r failingRepository) Delete(context.Context, string) (bool, error) { return false, r.err }

func TestProductService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	before, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, before)

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"data:...","specs":["a",""]}`))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 10.5, created.Price)
	assert.Equal(t, []string{"a", ""}, created.Specs)
	assert.Equal(t, "", created.Description)
	assert.False(t, created.CreatedAt.Before(processStart))

	after, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, created, after[0])
}

func TestProductService_CreateProduct_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		p, err := svc.CreateProduct(ctx, createRequest(t,
			`{"title":"فحم","englishTitle":"Coal","price":1,"image":"x"}`))
		require.NoError(t, err)
		_, dup := seen[p.ID]
		require.False(t, dup)
		seen[p.ID] = struct{}{}
	}
}

func TestProductService_CreateProduct_Invalid(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	_, err := svc.CreateProduct(ctx, createRequest(t, `{"englishTitle":"Coal","price":"1","image":"x"}`))
	assert.ErrorIs(t, err, domain.ErrMissingRequiredFields)

	_, err = svc.CreateProduct(ctx, createRequest(t, `{"title":"فحم","englishTitle":"Coal","price":"abc","image":"x"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidProductPrice)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","description":"d","price":"10.50","image":"img","specs":["a"]}`))
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, created.ID, updateRequest(t,
		`{"price":"20.00","id":"hijack","createdAt":"2000-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	expected := *created
	expected.Price = 20
	assert.Equal(t, &expected, updated)
}

// countingRepository counts writes reaching the wrapped repository
type countingRepository struct {
	domain.ProductRepository
	updates int
}

func (r *countingRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	r.updates++
	return r.ProductRepository.Update(ctx, id, patch)
}

func TestProductService_UpdateProduct_EmptyPatch(t *testing.T) {
	ctx := context.Background()
	tracer := noop.NewTracerProvider().Tracer("test")
	repo := &countingRepository{ProductRepository: memory.NewProductRepository(tracer, discardLogger())}
	svc := newTestService(repo)

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"img"}`))
	require.NoError(t, err)

	unchanged, err := svc.UpdateProduct(ctx, created.ID, updateRequest(t, `{"id":"other"}`))
	require.NoError(t, err)
	assert.Equal(t, created, unchanged)
	assert.Zero(t, repo.updates)

	_, err = svc.UpdateProduct(ctx, "missing", updateRequest(t, `{}`))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Zero(t, repo.updates)
}

func TestProductService_UpdateProduct_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	_, err := svc.UpdateProduct(ctx, "", updateRequest(t, `{"price":1}`))
	assert.ErrorIs(t, err, domain.ErrMissingProductID)

	_, err = svc.UpdateProduct(ctx, "missing", updateRequest(t, `{"price":1}`))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"img"}`))
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, created.ID, updateRequest(t, `{"price":"ten"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidProductPrice)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 10.5, products[0].Price)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService()

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"img"}`))
	require.NoError(t, err)

	removed, err := svc.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.DeleteProduct(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingProductID)
}

func TestProductService_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	svc := newTestService(failingRepository{err: boom})

	_, err := svc.ListProducts(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"img"}`))
	assert.ErrorIs(t, err, boom)

	_, err = svc.UpdateProduct(ctx, "id", updateRequest(t, `{"price":1}`))
	assert.ErrorIs(t, err, boom)

	_, err = svc.DeleteProduct(ctx, "id")
	assert.ErrorIs(t, err, boom)

	_, err = svc.GetProductByID(ctx, "id")
	assert.ErrorIs(t, err, boom)
}

func TestProductService_Metrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer := noop.NewTracerProvider().Tracer("test")
	repo := memory.NewProductRepository(tracer, discardLogger())
	svc := NewProductService(repo, tracer, provider.Meter("test"), discardLogger())

	created, err := svc.CreateProduct(ctx, createRequest(t,
		`{"title":"فحم","englishTitle":"Coal","price":"10.50","image":"img"}`))
	require.NoError(t, err)
	_, err = svc.DeleteProduct(ctx, created.ID)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), totals["products.created.total"])
	assert.Equal(t, int64(1), totals["products.deleted.total"])
	assert.Equal(t, int64(2), totals["products.operations"])
}
