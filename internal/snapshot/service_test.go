package snapshot

import (
	"testing"
	"time"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/database"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T, maxPerUser int) (*database.MemoryKV, cartstore.Service, Service) {
	t.Helper()
	kv := database.NewMemoryKV()
	store := cartstore.NewService(logger.Mock(), kv)
	return kv, store, NewService(logger.Mock(), kv, store, maxPerUser)
}

func addItem(t *testing.T, store cartstore.Service, userID, productID string, units int) {
	t.Helper()
	_, err := store.Mutate(userID, func(state domain.CartState) domain.CartState {
		state.UpsertItem(domain.CartLineItem{
			ProductID: productID,
			Curve: domain.CurveSelection{
				Kind:       domain.CurveKindPredefined,
				Predefined: &domain.PredefinedCurve{CurveID: "curve-a", UnitsPerCurve: units, Multiplier: 1},
			},
			UnitPrice: decimal.NewFromInt(10),
		})
		return state
	})
	require.NoError(t, err)
}

func TestService_CreateAndRecoverRoundTrip(t *testing.T) {
	_, store, svc := newTestStack(t, 10)

	addItem(t, store, "u1", "prod-1", 5)
	addItem(t, store, "u1", "prod-2", 3)
	before, _ := store.Load("u1")

	require.True(t, svc.Create("u1", domain.SnapshotReasonManual))

	// Wreck the live cart, then restore.
	require.NoError(t, store.Clear("u1"))

	require.NoError(t, svc.Recover("u1"))

	after, corrupted := store.Load("u1")
	assert.False(t, corrupted)
	require.Len(t, after.Items, len(before.Items))
	for i := range before.Items {
		assert.Equal(t, before.Items[i].Key(), after.Items[i].Key())
	}
	assert.True(t, after.PendingChanges, "recovered data has not been pushed yet")
}

func TestService_RecoverUsesMostRecentSnapshot(t *testing.T) {
	_, store, svc := newTestStack(t, 10)

	addItem(t, store, "u1", "prod-1", 5)
	require.True(t, svc.Create("u1", domain.SnapshotReasonManual))

	addItem(t, store, "u1", "prod-2", 3)
	require.True(t, svc.Create("u1", domain.SnapshotReasonAutoPeriodic))

	require.NoError(t, store.Clear("u1"))
	require.NoError(t, svc.Recover("u1"))

	after, _ := store.Load("u1")
	assert.Len(t, after.Items, 2, "the newer two-item snapshot must win")
}

func TestService_RecoverWithoutSnapshotsIsNoOp(t *testing.T) {
	_, store, svc := newTestStack(t, 10)

	addItem(t, store, "u1", "prod-1", 5)

	require.NoError(t, svc.Recover("u1"))

	after, _ := store.Load("u1")
	assert.Len(t, after.Items, 1, "nothing to recover must leave the cart alone")
}

func TestService_CreateEnforcesRetention(t *testing.T) {
	_, store, svc := newTestStack(t, 2)

	addItem(t, store, "u1", "prod-1", 5)
	require.True(t, svc.Create("u1", domain.SnapshotReasonManual))
	require.True(t, svc.Create("u1", domain.SnapshotReasonAutoPeriodic))
	require.True(t, svc.Create("u1", domain.SnapshotReasonErrorTrigger))

	snapshots, err := svc.List("u1")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, domain.SnapshotReasonAutoPeriodic, snapshots[0].Reason)
	assert.Equal(t, domain.SnapshotReasonErrorTrigger, snapshots[1].Reason, "newest snapshots are the ones kept")
}

func TestService_CreateReportsWriteFailure(t *testing.T) {
	kv, store, svc := newTestStack(t, 10)

	addItem(t, store, "u1", "prod-1", 5)
	kv.FailWrites = true

	assert.False(t, svc.Create("u1", domain.SnapshotReasonManual))
}

func TestService_CreateWithoutUserIDIsRefused(t *testing.T) {
	_, _, svc := newTestStack(t, 10)
	assert.False(t, svc.Create("", domain.SnapshotReasonManual))
}

func TestService_PruneAll(t *testing.T) {
	kv, store, _ := newTestStack(t, 10)

	// Build with a generous cap, then prune with a tight one to simulate the
	// retention setting shrinking between runs.
	loose := NewService(logger.Mock(), kv, store, 10)
	addItem(t, store, "u1", "prod-1", 5)
	for i := 0; i < 4; i++ {
		require.True(t, loose.Create("u1", domain.SnapshotReasonAutoPeriodic))
	}
	addItem(t, store, "u2", "prod-2", 3)
	require.True(t, loose.Create("u2", domain.SnapshotReasonManual))

	tight := NewService(logger.Mock(), kv, store, 2)
	require.NoError(t, tight.PruneAll())

	u1Snapshots, err := tight.List("u1")
	require.NoError(t, err)
	assert.Len(t, u1Snapshots, 2)

	u2Snapshots, err := tight.List("u2")
	require.NoError(t, err)
	assert.Len(t, u2Snapshots, 1, "users under the cap are untouched")
}

func TestService_SnapshotTimestamps(t *testing.T) {
	kv, store, _ := newTestStack(t, 10)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(logger.Mock(), kv, store, 10).(*service)
	svc.nowFn = func() time.Time { return now }

	addItem(t, store, "u1", "prod-1", 5)
	require.True(t, svc.Create("u1", domain.SnapshotReasonManual))

	snapshots, err := svc.List("u1")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].CreatedAt.Equal(now))
	assert.NotEmpty(t, snapshots[0].ID)
}
