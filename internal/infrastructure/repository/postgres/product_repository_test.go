package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
)

var columns = []string{"id", "title", "english_title", "description", "price", "image", "specs", "created_at"}

func setupRepository(t *testing.T) (*ProductRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProductRepository(db, noop.NewTracerProvider().Tracer("test"), logger), mock
}

func TestProductRepository_EnsureSchema(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create(t *testing.T) {
	repo, mock := setupRepository(t)

	p, err := domain.NewProduct("فحم", "Coal", "", 10.5, "data:...", []string{"a", ""})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, "فحم", "Coal", "", 10.5, "data:...", sqlmock.AnyArg(), p.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_Error(t *testing.T) {
	repo, mock := setupRepository(t)

	p, err := domain.NewProduct("فحم", "Coal", "", 10.5, "data:...", nil)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO products").WillReturnError(errors.New("connection reset"))

	err = repo.Create(context.Background(), p)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindAll(t *testing.T) {
	repo, mock := setupRepository(t)
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow("1", "فحم", "Coal", "", 10.5, "img1", "{a,b}", createdAt).
		AddRow("2", "فحم نباتي", "Charcoal", "hardwood", 7.25, "img2", "{}", createdAt.Add(time.Second))

	mock.ExpectQuery("SELECT (.+) FROM products ORDER BY created_at, id").WillReturnRows(rows)

	products, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, []string{"a", "b"}, products[0].Specs)
	assert.Equal(t, createdAt, products[0].CreatedAt)
	assert.Equal(t, "Charcoal", products[1].EnglishTitle)
	assert.Equal(t, []string{}, products[1].Specs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindAll_Empty(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM products").WillReturnRows(sqlmock.NewRows(columns))

	products, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update(t *testing.T) {
	repo, mock := setupRepository(t)
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	price := 20.0

	mock.ExpectQuery("UPDATE products SET").
		WithArgs("1", nil, nil, nil, 20.0, nil, nil).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("1", "فحم", "Coal", "", 20.0, "img1", "{a}", createdAt))

	p, err := repo.Update(context.Background(), "1", domain.ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.Price)
	assert.Equal(t, createdAt, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupRepository(t)
	title := "x"

	mock.ExpectQuery("UPDATE products SET").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Update(context.Background(), "missing", domain.ProductPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.NoError(t, mock.ExpectationsWereMet())
}
