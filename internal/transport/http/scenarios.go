package http

import (
	"context"
	"net/http"

	"github.com/cimillas/client-ledger/internal/scenario"
	"github.com/go-chi/chi/v5"
)

type ScenarioRunner interface {
	Run(ctx context.Context, name string) (scenario.Report, error)
}

func (h *handler) runScenario(w http.ResponseWriter, r *http.Request) {
	rep, err := h.scenarios.Run(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
