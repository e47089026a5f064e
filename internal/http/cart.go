package http

import (
	"net/http"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type cartHandler struct {
	encoder encoder
	store   cartstore.Service
}

func newCartHandler(encoder encoder, store cartstore.Service) *cartHandler {
	return &cartHandler{
		encoder: encoder,
		store:   store,
	}
}

func (h cartHandler) Routes(r chi.Router) {
	r.Get("/", h.getCart)
	r.Put("/items", h.upsertItem)
	r.Delete("/items/{itemKey}", h.removeItem)
	r.Delete("/", h.clearCart)
}

func (h cartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": "userID is required"}, http.StatusBadRequest)
		return
	}

	state, _ := h.store.Load(userID)
	h.encoder.StatusResponse(r.Context(), w, state, http.StatusOK)
}

type upsertItemRequest struct {
	ClienteID string              `json:"cliente_id"`
	Item      domain.CartLineItem `json:"item"`
}

func (h cartHandler) upsertItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req upsertItemRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	state, err := h.store.Mutate(userID, func(state domain.CartState) domain.CartState {
		if req.ClienteID != "" {
			state.ClienteID = req.ClienteID
		}
		state.UpsertItem(req.Item)
		return state
	})
	if err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, state, http.StatusOK)
}

func (h cartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	itemKey := chi.URLParam(r, "itemKey")

	state, err := h.store.Mutate(userID, func(state domain.CartState) domain.CartState {
		state.RemoveItem(itemKey)
		return state
	})
	if err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, state, http.StatusOK)
}

func (h cartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.store.Clear(userID); err != nil {
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}
