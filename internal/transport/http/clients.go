package http

import (
	"context"
	"net/http"

	"github.com/cimillas/client-ledger/internal/app"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ClientAPI is the client management surface served under /api/clients.
type ClientAPI interface {
	Create(ctx context.Context, in app.CreateClientInput) (domain.Client, error)
	Get(ctx context.Context, id string) (domain.Client, error)
	Profit(ctx context.Context, id string) (decimal.Decimal, error)
	Search(ctx context.Context, keyword string, page domain.Page) ([]domain.Client, error)
	ListByProfit(ctx context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error)
	Update(ctx context.Context, id string, in app.UpdateClientInput) (domain.Client, error)
	ResetAllProfit(ctx context.Context) (int64, error)
}

type LifecycleAPI interface {
	Deactivate(ctx context.Context, id string) error
	Recover(ctx context.Context, id string) error
}

func (h *handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	client, err := h.clients.Create(r.Context(), req.input())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newClientResponse(client))
}

func (h *handler) getClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClientResponse(client))
}

func (h *handler) clientProfit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	profit, err := h.clients.Profit(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profitResponse{ClientID: id, Profit: money(profit)})
}

// searchClients serves GET /api/clients?q=keyword.
func (h *handler) searchClients(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	clients, err := h.clients.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClientList(clients))
}

func (h *handler) clientsByProfit(w http.ResponseWriter, r *http.Request) {
	min, err := decimalFromQuery(r, "min")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	max, err := decimalFromQuery(r, "max")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	clients, err := h.clients.ListByProfit(r.Context(), min, max, page)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClientList(clients))
}

func (h *handler) updateClient(w http.ResponseWriter, r *http.Request) {
	var req updateClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	client, err := h.clients.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newClientResponse(client))
}

func (h *handler) deactivateClient(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) recoverClient(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Recover(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resetProfit(w http.ResponseWriter, r *http.Request) {
	n, err := h.clients.ResetAllProfit(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Reset: n})
}
