package scheduler

import (
	"testing"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/database"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/carritosync/carrito/internal/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicSnapshotJob_Run(t *testing.T) {
	kv := database.NewMemoryKV()
	store := cartstore.NewService(logger.Mock(), kv)
	snapshotSvc := snapshot.NewService(logger.Mock(), kv, store, 10)

	addItem := func(userID string) {
		_, err := store.Mutate(userID, func(state domain.CartState) domain.CartState {
			state.UpsertItem(domain.CartLineItem{
				ProductID: "prod-1",
				Curve: domain.CurveSelection{
					Kind:       domain.CurveKindPredefined,
					Predefined: &domain.PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 1},
				},
				UnitPrice: decimal.NewFromInt(5),
			})
			return state
		})
		require.NoError(t, err)
	}

	// u1 has pending changes, u2 was already synced, u3's slot is empty.
	addItem("u1")
	addItem("u2")
	synced, _ := store.Load("u2")
	require.NoError(t, store.MarkSynced("u2", synced.LastMutationAt))
	_, err := store.Mutate("u3", func(state domain.CartState) domain.CartState { return state })
	require.NoError(t, err)

	job := &PeriodicSnapshotJob{
		Name:        "cart-snapshot-periodic",
		Log:         logger.Mock().With().Logger(),
		KV:          kv,
		Store:       store,
		SnapshotSvc: snapshotSvc,
	}
	job.Run()

	u1Snapshots, err := snapshotSvc.List("u1")
	require.NoError(t, err)
	require.Len(t, u1Snapshots, 1)
	assert.Equal(t, domain.SnapshotReasonAutoPeriodic, u1Snapshots[0].Reason)

	u2Snapshots, err := snapshotSvc.List("u2")
	require.NoError(t, err)
	assert.Empty(t, u2Snapshots, "synced carts are not snapshotted")

	u3Snapshots, err := snapshotSvc.List("u3")
	require.NoError(t, err)
	assert.Empty(t, u3Snapshots, "empty carts are not snapshotted")
}

func TestSnapshotPruneJob_Run(t *testing.T) {
	kv := database.NewMemoryKV()
	store := cartstore.NewService(logger.Mock(), kv)

	loose := snapshot.NewService(logger.Mock(), kv, store, 10)
	_, err := store.Mutate("u1", func(state domain.CartState) domain.CartState {
		state.UpsertItem(domain.CartLineItem{
			ProductID: "prod-1",
			Curve: domain.CurveSelection{
				Kind:       domain.CurveKindPredefined,
				Predefined: &domain.PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: 5, Multiplier: 1},
			},
		})
		return state
	})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.True(t, loose.Create("u1", domain.SnapshotReasonAutoPeriodic))
	}

	tight := snapshot.NewService(logger.Mock(), kv, store, 2)
	job := &SnapshotPruneJob{
		Name:        "cart-snapshot-prune",
		Log:         logger.Mock().With().Logger(),
		SnapshotSvc: tight,
	}
	job.Run()

	snapshots, err := tight.List("u1")
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}
