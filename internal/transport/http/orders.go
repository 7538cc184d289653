package http

import (
	"context"
	"net/http"

	"github.com/cimillas/client-ledger/internal/app"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// OrderAPI is the order surface served under /api/orders.
type OrderAPI interface {
	Create(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Order, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]domain.Order, error)
	ListByConsumer(ctx context.Context, consumerID string) ([]domain.Order, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (domain.Order, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// createOrder blocks for the whole processing window. A client that
// disconnects mid-window interrupts the order.
func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	order, err := h.orders.Create(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *handler) listOrders(list func(context.Context, string) ([]domain.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := list(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newOrderList(orders))
	}
}

func (h *handler) updateOrderPrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	order, err := h.orders.UpdatePrice(r.Context(), chi.URLParam(r, "id"), req.Price)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *handler) deactivateOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
