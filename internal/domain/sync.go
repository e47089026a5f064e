package domain

import (
	"context"
	"time"
)

// SyncStatus is the externally observable state of a sync engine instance.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusError   SyncStatus = "error"
)

// SyncState is the snapshot handed to listeners on every transition.
// PendingChanges mirrors the cart store's flag; it is the copy the UI reads.
type SyncState struct {
	Status         SyncStatus `json:"status"`
	LastSyncTime   *time.Time `json:"last_sync_time"`
	LastError      string     `json:"last_error,omitempty"`
	PendingChanges bool       `json:"pending_changes"`
}

// SyncResult is returned from a forced sync. Engine misuse (missing ids,
// engine not started) is reported here, never as a panic or error value,
// since these calls come straight from UI event handlers.
type SyncResult struct {
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
	SnapshotCreated bool   `json:"snapshot_created,omitempty"`
}

// DraftRepo is the remote order-draft record collaborator. A draft is
// identified by (userID, clienteID); every successful push produces a new
// revision tag, which the engine uses to detect remote divergence.
type DraftRepo interface {
	// GetRevision returns the current revision of the draft, or nil if no
	// draft record exists.
	GetRevision(ctx context.Context, userID string, clienteID string) (*string, error)
	// Push creates or replaces the draft with the given cart contents and
	// returns the new revision.
	Push(ctx context.Context, userID string, clienteID string, state CartState) (*string, error)
}
