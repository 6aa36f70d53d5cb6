package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
)

// ProductHandler exposes the ledger over HTTP. It owns the translation from
// error kinds to status codes; the service below it knows nothing about HTTP.
type ProductHandler struct {
	ledger *service.LedgerService
}

func NewProductHandler(ledger *service.LedgerService) *ProductHandler {
	return &ProductHandler{ledger: ledger}
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func toProductResponse(item *domain.Item) productResponse {
	return productResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Quantity:    item.Quantity,
	}
}

// HandleProducts serves /products: POST creates, GET lists.
func (h *ProductHandler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleProduct serves /products/{id} and the /inventory, /purchase and
// /restock sub-resources.
func (h *ProductHandler) HandleProduct(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case action == "inventory" && r.Method == http.MethodPatch:
		h.handleSetInventory(w, r, id)
	case action == "purchase" && r.Method == http.MethodPost:
		h.handlePurchase(w, r, id)
	case action == "restock" && r.Method == http.MethodPost:
		h.handleRestock(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.ledger.CreateItem(r.Context(), req.Name, req.Description, req.Price, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(item))
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	minStock := -1
	if raw := r.URL.Query().Get("min_stock"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "min_stock must be a non-negative integer")
			return
		}
		minStock = parsed
	}

	items, err := h.ledger.ListItems(r.Context(), minStock)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toProductResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.ledger.GetItem(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(item))
}

func (h *ProductHandler) handleSetInventory(w http.ResponseWriter, r *http.Request, id string) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ledger.SetQuantity(r.Context(), id, req.Quantity); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "inventory updated",
		"quantity": req.Quantity,
	})
}

func (h *ProductHandler) handlePurchase(w http.ResponseWriter, r *http.Request, id string) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	remaining, err := h.ledger.Purchase(r.Context(), id, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "purchase successful",
		"remaining_quantity": remaining,
	})
}

func (h *ProductHandler) handleRestock(w http.ResponseWriter, r *http.Request, id string) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity, err := h.ledger.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "stock replenished",
		"quantity": quantity,
	})
}

func (h *ProductHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeLedgerError maps ledger error kinds onto status codes: unknown item
// and sold out stay distinguishable.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
