package http

import (
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
)

type supplierHandler struct {
	supplierSvc service.SupplierService
}

func newSupplierHandler(supplierSvc service.SupplierService) *supplierHandler {
	return &supplierHandler{supplierSvc: supplierSvc}
}

func (h *supplierHandler) listSuppliers(w http.ResponseWriter, r *http.Request, _ request) error {
	suppliers, err := h.supplierSvc.ListSuppliers(r.Context())
	if err != nil {
		return fmt.Errorf("supplier service list suppliers: %w", err)
	}
	if suppliers == nil {
		suppliers = []model.Supplier{}
	}

	return writeJSON(w, http.StatusOK, suppliers)
}

func (h *supplierHandler) createSupplier(w http.ResponseWriter, r *http.Request, req request) error {
	var body struct {
		Name string `json:"name" validate:"required,max=120"`
	}
	if err := req.bind(w, &body); err != nil {
		return err
	}

	supplier, err := h.supplierSvc.CreateSupplier(r.Context(), body.Name)
	if err != nil {
		return fmt.Errorf("supplier service create supplier: %w", err)
	}

	return writeJSON(w, http.StatusCreated, supplier)
}

func (h *supplierHandler) deleteSupplier(w http.ResponseWriter, r *http.Request, req request) error {
	id, err := req.pathID()
	if err != nil {
		return err
	}

	if err := h.supplierSvc.DeleteSupplier(r.Context(), id); err != nil {
		return fmt.Errorf("supplier service delete supplier: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
