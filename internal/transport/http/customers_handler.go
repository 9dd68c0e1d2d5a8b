package http

import (
	"net/http"

	"github.com/go-chi/render"

	"exportcheck/internal/customers"
	"exportcheck/internal/validation"
)

// CustomersHandler serves the selectable customers and export kinds
type CustomersHandler struct {
	list     *customers.List
	selector *validation.ColumnSelector
}

// NewCustomersHandler creates a handler. list may be nil.
func NewCustomersHandler(list *customers.List, selector *validation.ColumnSelector) *CustomersHandler {
	if selector == nil {
		selector = validation.DefaultColumnSelector()
	}
	return &CustomersHandler{list: list, selector: selector}
}

// ListCustomers handles GET /api/customers
func (h *CustomersHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.list != nil {
		names = h.list.Sorted()
	}
	render.JSON(w, r, map[string]interface{}{
		"customers": names,
		"count":     len(names),
	})
}

// ListKinds handles GET /api/export-kinds
func (h *CustomersHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	kinds := h.selector.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	render.JSON(w, r, map[string]interface{}{
		"export_kinds": out,
		"environments": []string{string(validation.EnvironmentCert), string(validation.EnvironmentProd)},
	})
}
