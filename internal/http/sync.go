package http

import (
	"net/http"

	"github.com/carritosync/carrito/internal/domain"
	syncengine "github.com/carritosync/carrito/internal/sync"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type syncHandler struct {
	encoder encoder
	engine  *syncengine.Engine
}

func newSyncHandler(encoder encoder, engine *syncengine.Engine) *syncHandler {
	return &syncHandler{
		encoder: encoder,
		engine:  engine,
	}
}

func (h syncHandler) Routes(r chi.Router) {
	r.Get("/state", h.getState)
	r.Post("/start", h.start)
	r.Post("/stop", h.stop)
	r.Post("/force", h.force)
}

type sessionRequest struct {
	UserID    string `json:"user_id"`
	ClienteID string `json:"cliente_id"`
}

func (h syncHandler) getState(w http.ResponseWriter, r *http.Request) {
	h.encoder.StatusResponse(r.Context(), w, h.engine.State(), http.StatusOK)
}

func (h syncHandler) start(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.engine.StartAutoSync(req.UserID, req.ClienteID); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	h.encoder.NoContent(w)
}

func (h syncHandler) stop(w http.ResponseWriter, r *http.Request) {
	h.engine.StopAutoSync()
	h.encoder.NoContent(w)
}

func (h syncHandler) force(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	// Misuse is reported inside the result, not as an HTTP failure; the UI
	// renders it as a status indicator.
	result := h.engine.ForceSyncNow(r.Context(), req.UserID, req.ClienteID)
	h.encoder.StatusResponse(r.Context(), w, result, http.StatusOK)
}

type snapshotHandler struct {
	encoder     encoder
	engine      *syncengine.Engine
	snapshotSvc snapshotService
}

// snapshotService is the slice of the snapshot manager the handler needs.
type snapshotService interface {
	Recover(userID string) error
	List(userID string) ([]domain.Snapshot, error)
}

func newSnapshotHandler(encoder encoder, engine *syncengine.Engine, snapshotSvc snapshotService) *snapshotHandler {
	return &snapshotHandler{
		encoder:     encoder,
		engine:      engine,
		snapshotSvc: snapshotSvc,
	}
}

func (h snapshotHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Post("/recover", h.recover)
	r.Get("/{userID}", h.list)
}

type snapshotRequest struct {
	UserID string                `json:"user_id"`
	Reason domain.SnapshotReason `json:"reason"`
}

func (h snapshotHandler) create(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	created := h.engine.CreateManualSnapshot(req.UserID, req.Reason)
	h.encoder.StatusResponse(r.Context(), w, map[string]bool{"created": created}, http.StatusOK)
}

func (h snapshotHandler) recover(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.encoder.StatusResponse(r.Context(), w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.snapshotSvc.Recover(req.UserID); err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.NoContent(w)
}

func (h snapshotHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	snapshots, err := h.snapshotSvc.List(userID)
	if err != nil {
		h.encoder.Error(w, err)
		return
	}

	h.encoder.StatusResponse(r.Context(), w, snapshots, http.StatusOK)
}
