package scheduler

import (
	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/snapshot"
	"github.com/rs/zerolog"
)

// PeriodicSnapshotJob takes a safety snapshot of every cart on the device
// that still has unsynced changes.
type PeriodicSnapshotJob struct {
	Name        string
	Log         zerolog.Logger
	KV          domain.KVStore
	Store       cartstore.Service
	SnapshotSvc snapshot.Service
}

func (j *PeriodicSnapshotJob) Run() {
	keys, err := j.KV.ListKeys(cartstore.ItemsKeyPrefix())
	if err != nil {
		j.Log.Error().Err(err).Msg("Failed to enumerate cart slots")
		return
	}

	taken := 0
	for _, key := range keys {
		userID, ok := cartstore.ParseItemsKey(key)
		if !ok {
			continue
		}
		state, _ := j.Store.Load(userID)
		if state.IsEmpty() || !state.PendingChanges {
			continue
		}
		if j.SnapshotSvc.Create(userID, domain.SnapshotReasonAutoPeriodic) {
			taken++
		}
	}

	if taken > 0 {
		j.Log.Debug().Int("snapshots", taken).Msg("Periodic cart snapshots taken")
	}
}

// SnapshotPruneJob enforces the per-user snapshot retention cap.
type SnapshotPruneJob struct {
	Name        string
	Log         zerolog.Logger
	SnapshotSvc snapshot.Service
}

func (j *SnapshotPruneJob) Run() {
	if err := j.SnapshotSvc.PruneAll(); err != nil {
		j.Log.Error().Err(err).Msg("Snapshot prune failed")
	}
}
