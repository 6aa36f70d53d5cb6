package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/core/service"
)

// FlashHandler serves the cache-backed purchase path used under sale load.
type FlashHandler struct {
	orders *service.OrderService
}

type purchaseRequest struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
}

// Remaining is always serialized: selling the last unit must still report
// remaining_quantity 0 rather than dropping the field.
type purchaseResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Remaining int    `json:"remaining_quantity"`
}

func NewFlashHandler(orders *service.OrderService) *FlashHandler {
	return &FlashHandler{orders: orders}
}

func (h *FlashHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, purchaseResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	remaining, err := h.orders.Purchase(r.Context(), req.RequestID, req.UserID, req.ItemID, req.Quantity)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"

		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			status = http.StatusBadRequest
			message = "missing or invalid fields"
		case errors.Is(err, service.ErrDuplicateRequest):
			status = http.StatusConflict
			message = "duplicate request"
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
			message = "unknown item"
		case errors.Is(err, domain.ErrInsufficientStock):
			status = http.StatusConflict
			message = "sold out"
		}

		writeJSON(w, status, purchaseResponse{
			Success: false,
			Message: message,
		})
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Success:   true,
		Message:   "order placed successfully",
		Remaining: remaining,
	})
}
