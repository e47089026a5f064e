package domain

import "time"

// SnapshotReason tags why a snapshot was taken.
type SnapshotReason string

const (
	SnapshotReasonManual       SnapshotReason = "manual"
	SnapshotReasonAutoPeriodic SnapshotReason = "auto-periodic"
	SnapshotReasonPreRecovery  SnapshotReason = "pre-recovery"
	SnapshotReasonErrorTrigger SnapshotReason = "error-triggered"
)

// Snapshot is an immutable point-in-time copy of a user's cart, used purely
// for recovery. Snapshots are only ever created and read.
type Snapshot struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Reason    SnapshotReason `json:"reason"`
	Payload   []byte         `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
