package http

import (
	"net/http"

	"github.com/carritosync/carrito/internal/aggregate"
	"github.com/go-chi/chi/v5"
)

type reportHandler struct {
	encoder    encoder
	aggregator aggregate.Service
}

func newReportHandler(encoder encoder, aggregator aggregate.Service) *reportHandler {
	return &reportHandler{
		encoder:    encoder,
		aggregator: aggregator,
	}
}

func (h reportHandler) Routes(r chi.Router) {
	r.Get("/pending-carts", h.pendingCarts)
}

func (h reportHandler) pendingCarts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.aggregator.BuildReport(r.Context())
	if err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, summaries, http.StatusOK)
}
