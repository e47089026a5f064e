package sync

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/carritosync/carrito/internal/snapshot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// EventTopic is the bus topic sync state transitions are published on.
const EventTopic = "carrito:sync"

var errMissingSession = errors.New("userID and clienteID are required")

const defaultInterval = 30 * time.Second

// Engine reconciles one user's local cart with the remote order-draft
// record, on a timer and on demand. One engine serves one (userID,
// clienteID) session; construct a new one per session.
//
// Concurrent pushes for the session are coalesced: a force call issued while
// another push is in flight joins it instead of racing it, so a stale local
// copy can never overwrite a newer remote write.
type Engine struct {
	log       zerolog.Logger
	store     cartstore.Service
	snapshots snapshot.Service
	drafts    domain.DraftRepo
	bus       EventBus.Bus
	clock     func() time.Time
	interval  time.Duration

	group singleflight.Group

	mu           sync.Mutex
	state        domain.SyncState
	listeners    []listenerEntry
	nextListener int
	userID       string
	clienteID    string
	running      bool
	epoch        uint64
	done         chan struct{}
	lastRevision *string
}

type listenerEntry struct {
	id int
	fn func(domain.SyncState)
}

// Option configures an Engine. The clock and interval are injectable so
// tests control timing.
type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

func NewEngine(log logger.Logger, store cartstore.Service, snapshots snapshot.Service, drafts domain.DraftRepo, bus EventBus.Bus, opts ...Option) *Engine {
	e := &Engine{
		log:       log.With().Str("module", "sync").Logger(),
		store:     store,
		snapshots: snapshots,
		drafts:    drafts,
		bus:       bus,
		clock:     time.Now,
		interval:  defaultInterval,
		state:     domain.SyncState{Status: domain.SyncStatusIdle},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.interval <= 0 {
		e.interval = defaultInterval
	}

	return e
}

// StartAutoSync begins the periodic push loop for the session. Starting an
// already running engine restarts it with the new session.
func (e *Engine) StartAutoSync(userID string, clienteID string) error {
	if userID == "" || clienteID == "" {
		return errMissingSession
	}

	e.StopAutoSync()

	e.mu.Lock()
	e.userID = userID
	e.clienteID = clienteID
	e.running = true
	e.done = make(chan struct{})
	state, _ := e.store.Load(userID)
	e.state = domain.SyncState{
		Status:         domain.SyncStatusIdle,
		PendingChanges: state.PendingChanges,
	}
	epoch := e.epoch
	done := e.done
	e.mu.Unlock()

	go e.tickLoop(done, epoch, userID, clienteID)

	e.log.Info().Str("userID", userID).Str("clienteID", clienteID).Dur("interval", e.interval).Msg("Auto sync started")
	return nil
}

func (e *Engine) tickLoop(done chan struct{}, epoch uint64, userID string, clienteID string) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.push(context.Background(), epoch, userID, clienteID)
		}
	}
}

// StopAutoSync clears the timer and releases listeners. An in-flight push is
// not aborted, but its results are discarded: no state update, no listener
// notification.
func (e *Engine) StopAutoSync() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	close(e.done)
	e.running = false
	e.epoch++
	e.listeners = nil

	e.log.Info().Str("userID", e.userID).Msg("Auto sync stopped")
}

// AddListener registers a callback fired on every state transition, in
// registration order. The returned function unsubscribes it.
func (e *Engine) AddListener(fn func(domain.SyncState)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListener
	e.nextListener++
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for idx, entry := range e.listeners {
			if entry.id == id {
				e.listeners = append(e.listeners[:idx], e.listeners[idx+1:]...)
				return
			}
		}
	}
}

// State returns a copy of the current sync state.
func (e *Engine) State() domain.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ForceSyncNow awaits one push attempt outside the timer cadence. Calls
// issued while a push is in flight coalesce into it and all callers receive
// the same result.
func (e *Engine) ForceSyncNow(ctx context.Context, userID string, clienteID string) domain.SyncResult {
	if userID == "" || clienteID == "" {
		return domain.SyncResult{Success: false, Error: "userID and clienteID are required"}
	}

	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	return e.push(ctx, epoch, userID, clienteID)
}

// CreateManualSnapshot is a pass-through checkpoint for callers, e.g. before
// navigating away. An empty reason defaults to manual.
func (e *Engine) CreateManualSnapshot(userID string, reason domain.SnapshotReason) bool {
	if userID == "" {
		e.log.Warn().Msg("Manual snapshot requested without a userID")
		return false
	}
	if reason == "" {
		reason = domain.SnapshotReasonManual
	}
	return e.snapshots.Create(userID, reason)
}

func (e *Engine) push(ctx context.Context, epoch uint64, userID string, clienteID string) domain.SyncResult {
	key := userID + "|" + clienteID

	result, _, _ := e.group.Do(key, func() (interface{}, error) {
		return e.doPush(ctx, epoch, userID, clienteID), nil
	})

	return result.(domain.SyncResult)
}

func (e *Engine) doPush(ctx context.Context, epoch uint64, userID string, clienteID string) domain.SyncResult {
	snapshotCreated := false

	state, corrupted := e.store.Load(userID)
	if corrupted {
		// Local corruption while the engine is active: checkpoint whatever
		// is left, then restore the most recent snapshot.
		e.log.Warn().Str("userID", userID).Msg("Local cart corrupted, attempting snapshot recovery")
		e.snapshots.Create(userID, domain.SnapshotReasonPreRecovery)
		if err := e.snapshots.Recover(userID); err != nil {
			e.log.Error().Err(err).Str("userID", userID).Msg("Snapshot recovery failed")
		}
		state, _ = e.store.Load(userID)
	}

	if !state.PendingChanges {
		// Nothing to reconcile; stay in the current status.
		return domain.SyncResult{Success: true, SnapshotCreated: snapshotCreated}
	}

	remoteRevision, err := e.drafts.GetRevision(ctx, userID, clienteID)
	if err != nil {
		e.setState(epoch, func(s *domain.SyncState) {
			s.Status = domain.SyncStatusError
			s.LastError = err.Error()
			s.PendingChanges = true
		})
		return domain.SyncResult{Success: false, Error: err.Error(), SnapshotCreated: snapshotCreated}
	}

	e.mu.Lock()
	lastRevision := e.lastRevision
	e.mu.Unlock()

	if lastRevision != nil && (remoteRevision == nil || *remoteRevision != *lastRevision) {
		// The remote record vanished or was written by someone else.
		// Checkpoint local state, then overwrite remote with local; merging
		// is deliberately not attempted.
		e.log.Warn().
			Str("userID", userID).
			Str("clienteID", clienteID).
			Msg("Remote draft diverged from last known revision, snapshotting before overwrite")
		if e.snapshots.Create(userID, domain.SnapshotReasonErrorTrigger) {
			snapshotCreated = true
		}
	}

	e.setState(epoch, func(s *domain.SyncState) {
		s.Status = domain.SyncStatusSyncing
		s.PendingChanges = true
	})

	mutationTime := state.LastMutationAt

	newRevision, err := e.drafts.Push(ctx, userID, clienteID, state)
	if err != nil {
		e.setState(epoch, func(s *domain.SyncState) {
			s.Status = domain.SyncStatusError
			s.LastError = err.Error()
			s.PendingChanges = true
		})
		e.log.Error().Err(err).Str("userID", userID).Msg("Cart push failed, will retry")
		return domain.SyncResult{Success: false, Error: err.Error(), SnapshotCreated: snapshotCreated}
	}

	e.mu.Lock()
	if e.epoch == epoch {
		e.lastRevision = newRevision
	}
	stillCurrent := e.epoch == epoch
	e.mu.Unlock()

	if stillCurrent {
		if err := e.store.MarkSynced(userID, mutationTime); err != nil {
			e.log.Warn().Err(err).Str("userID", userID).Msg("Failed to clear pending flag after push")
		}
	}

	reloaded, _ := e.store.Load(userID)
	now := e.clock()
	e.setState(epoch, func(s *domain.SyncState) {
		s.Status = domain.SyncStatusIdle
		s.LastError = ""
		s.LastSyncTime = &now
		s.PendingChanges = reloaded.PendingChanges
	})

	e.log.Debug().Str("userID", userID).Str("clienteID", clienteID).Msg("Cart pushed")
	return domain.SyncResult{Success: true, SnapshotCreated: snapshotCreated}
}

// setState applies the transition and notifies listeners in registration
// order, unless the engine was stopped (or restarted) after the push that
// produced it began.
func (e *Engine) setState(epoch uint64, apply func(*domain.SyncState)) {
	e.mu.Lock()
	if !e.running || e.epoch != epoch {
		e.mu.Unlock()
		return
	}

	apply(&e.state)
	newState := e.state

	notify := make([]func(domain.SyncState), 0, len(e.listeners))
	for _, entry := range e.listeners {
		notify = append(notify, entry.fn)
	}
	e.mu.Unlock()

	for _, fn := range notify {
		fn(newState)
	}

	if e.bus != nil {
		e.bus.Publish(EventTopic, newState)
	}
}
