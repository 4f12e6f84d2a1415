package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
)

type productResponse struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Supplier  string          `json:"supplier"`
	Sku       string          `json:"sku"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Stock     int             `json:"stock"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Markup    string          `json:"markup"`
	Barcode   string          `json:"barcode"`
	Year      *int            `json:"year"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Supplier:  p.Supplier,
		Sku:       p.Sku,
		Color:     p.Color,
		Size:      p.Size,
		Stock:     p.Stock,
		CostPrice: p.CostPrice,
		SalePrice: p.SalePrice,
		Markup:    p.Markup,
		Barcode:   p.Barcode,
		Year:      p.Year,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func newProductResponses(products []model.Product) []productResponse {
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, newProductResponse(p))
	}
	return items
}

type createProductRequest struct {
	Code      string          `json:"code,omitempty" validate:"omitempty,productcode"`
	Name      string          `json:"name" validate:"required,max=255"`
	Supplier  string          `json:"supplier"`
	Sku       string          `json:"sku"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Stock     int             `json:"stock" validate:"gte=0"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Markup    string          `json:"markup"`
	Barcode   string          `json:"barcode"`
	Year      *int            `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

type updateProductFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

type productHandler struct {
	productSvc service.ProductService
}

func newProductHandler(productSvc service.ProductService) *productHandler {
	return &productHandler{productSvc: productSvc}
}

func (h *productHandler) listProducts(w http.ResponseWriter, r *http.Request, _ request) error {
	products, err := h.productSvc.ListProducts(r.Context(), service.ListProductsParams{
		Name: r.URL.Query().Get("name"),
	})
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponses(products))
}

func (h *productHandler) getProduct(w http.ResponseWriter, r *http.Request, req request) error {
	id, err := req.pathID()
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) nextCode(w http.ResponseWriter, r *http.Request, _ request) error {
	code, err := h.productSvc.NextCode(r.Context())
	if err != nil {
		return fmt.Errorf("product service next code: %w", err)
	}

	return writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *productHandler) createProduct(w http.ResponseWriter, r *http.Request, req request) error {
	var body createProductRequest
	if err := req.bind(w, &body); err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), service.CreateProductParams{
		Code:      body.Code,
		Name:      body.Name,
		Supplier:  body.Supplier,
		Sku:       body.Sku,
		Color:     body.Color,
		Size:      body.Size,
		Stock:     body.Stock,
		CostPrice: body.CostPrice,
		SalePrice: body.SalePrice,
		Markup:    body.Markup,
		Barcode:   body.Barcode,
		Year:      body.Year,
	})
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *productHandler) updateProductField(w http.ResponseWriter, r *http.Request, req request) error {
	id, err := req.pathID()
	if err != nil {
		return err
	}

	var body updateProductFieldRequest
	if err := req.bind(w, &body); err != nil {
		return err
	}

	product, err := h.productSvc.UpdateProductField(r.Context(), service.UpdateProductFieldParams{
		ID:    id,
		Field: body.Field,
		Value: body.Value,
	})
	if err != nil {
		return fmt.Errorf("product service update product field: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) deleteProduct(w http.ResponseWriter, r *http.Request, req request) error {
	id, err := req.pathID()
	if err != nil {
		return err
	}

	product, err := h.productSvc.DeleteProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) undoDelete(w http.ResponseWriter, r *http.Request, _ request) error {
	product, err := h.productSvc.UndoDelete(r.Context())
	if err != nil {
		return fmt.Errorf("product service undo delete: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) listDeleted(w http.ResponseWriter, r *http.Request, _ request) error {
	return writeJSON(w, http.StatusOK, newProductResponses(h.productSvc.ListDeleted(r.Context())))
}

func (h *productHandler) deleteAllProducts(w http.ResponseWriter, r *http.Request, req request) error {
	var body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := req.bind(w, &body); err != nil {
		return err
	}

	deleted, err := h.productSvc.DeleteAllProducts(r.Context(), service.DeleteAllProductsParams{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		return fmt.Errorf("product service delete all products: %w", err)
	}

	return writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
