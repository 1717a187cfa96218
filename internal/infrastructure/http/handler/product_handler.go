package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/app/dto"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/app/service"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/domain"
	"github.com/m7modfayez/Nile-carbon-coal-comapny/internal/infrastructure/http/response"
)

// ProductHandler handles HTTP requests for the /api/products resource
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to fetch products", err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			response.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.internalError(w, r, "failed to fetch product", err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.decodeError(w, r, "failed to create product", err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingRequiredFields), errors.Is(err, domain.ErrInvalidProductPrice):
			response.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "failed to create product", err)
		}
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products?id=
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, domain.ErrMissingProductID.Error())
		return
	}

	var req dto.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.decodeError(w, r, "failed to update product", err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			response.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrMissingProductID), errors.Is(err, domain.ErrInvalidProductPrice):
			response.Error(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "failed to update product", err)
		}
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products?id=
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, domain.ErrMissingProductID.Error())
		return
	}

	removed, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "failed to delete product", err)
		return
	}
	if !removed {
		response.Error(w, http.StatusNotFound, domain.ErrProductNotFound.Error())
		return
	}

	response.JSON(w, http.StatusOK, dto.DeleteProductResponse{Success: true})
}

// decodeError maps a body decoding failure. Oversized bodies and well-formed
// JSON with a wrongly typed field are client errors; a body that is not JSON
// at all is an internal failure.
func (h *ProductHandler) decodeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.WarnContext(r.Context(), "Request body too large",
			slog.Int64("limit", tooLarge.Limit),
		)
		response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		h.logger.WarnContext(r.Context(), "Request field has wrong type",
			slog.String("field", typeErr.Field),
			slog.String("value", typeErr.Value),
		)
		response.Error(w, http.StatusBadRequest, "invalid type for field "+typeErr.Field)
		return
	}

	h.internalError(w, r, message, err)
}

// internalError logs the cause and sends a generic 500
func (h *ProductHandler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.ErrorContext(r.Context(), "Request failed",
		slog.String("message", message),
		slog.String("error", err.Error()),
	)
	response.Error(w, http.StatusInternalServerError, message)
}
