package snapshot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/carritosync/carrito/internal/cartstore"
	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const snapshotsKeyPrefix = "cartSnapshots_"

// SnapshotsKey returns the storage slot holding a user's snapshot list.
func SnapshotsKey(userID string) string {
	return snapshotsKeyPrefix + userID
}

func parseSnapshotsKey(key string) (string, bool) {
	if !strings.HasPrefix(key, snapshotsKeyPrefix) {
		return "", false
	}
	userID := strings.TrimPrefix(key, snapshotsKeyPrefix)
	return userID, userID != ""
}

type Service interface {
	// Create serializes the user's current cart and appends a snapshot.
	// Returns false when the underlying write fails; callers decide whether
	// to proceed without the checkpoint.
	Create(userID string, reason domain.SnapshotReason) bool
	// Recover restores the most recent snapshot through the cart store's
	// mutate path. No snapshot is a no-op.
	Recover(userID string) error
	// List returns a user's snapshots, oldest first.
	List(userID string) ([]domain.Snapshot, error)
	// PruneAll enforces the retention cap for every user with snapshots on
	// the device.
	PruneAll() error
}

func NewService(log logger.Logger, kv domain.KVStore, store cartstore.Service, maxPerUser int) Service {
	if maxPerUser < 1 {
		maxPerUser = 10
	}
	return &service{
		log:        log.With().Str("module", "snapshot").Logger(),
		kv:         kv,
		store:      store,
		maxPerUser: maxPerUser,
		nowFn:      time.Now,
	}
}

type service struct {
	log        zerolog.Logger
	kv         domain.KVStore
	store      cartstore.Service
	maxPerUser int
	nowFn      func() time.Time
}

func (s *service) Create(userID string, reason domain.SnapshotReason) bool {
	if userID == "" {
		s.log.Warn().Msg("Snapshot requested without a userID, skipping")
		return false
	}

	state, _ := s.store.Load(userID)

	payload, err := json.Marshal(state)
	if err != nil {
		s.log.Error().Err(err).Str("userID", userID).Msg("Failed to serialize cart state for snapshot")
		return false
	}

	snapshots, err := s.List(userID)
	if err != nil {
		s.log.Error().Err(err).Str("userID", userID).Msg("Failed to read existing snapshots")
		return false
	}

	snapshots = append(snapshots, domain.Snapshot{
		ID:        uuid.NewString(),
		UserID:    userID,
		Reason:    reason,
		Payload:   payload,
		CreatedAt: s.nowFn(),
	})

	// Retention cap: newest wins.
	if len(snapshots) > s.maxPerUser {
		snapshots = snapshots[len(snapshots)-s.maxPerUser:]
	}

	if err := s.write(userID, snapshots); err != nil {
		s.log.Error().Err(err).Str("userID", userID).Msg("Failed to write snapshot list")
		return false
	}

	s.log.Debug().
		Str("userID", userID).
		Str("reason", string(reason)).
		Str("size", humanize.Bytes(uint64(len(payload)))).
		Msg("Snapshot created")
	return true
}

func (s *service) Recover(userID string) error {
	snapshots, err := s.List(userID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		s.log.Debug().Str("userID", userID).Msg("No snapshot to recover from")
		return nil
	}

	latest := snapshots[len(snapshots)-1]

	var recovered domain.CartState
	if err := json.Unmarshal(latest.Payload, &recovered); err != nil {
		return errors.Wrap(err, "failed to decode snapshot payload")
	}

	// Writing through Mutate keeps pendingChanges and lastMutationAt
	// consistent: recovered data has not been pushed yet.
	_, err = s.store.Mutate(userID, func(domain.CartState) domain.CartState {
		return recovered
	})
	if err != nil {
		return errors.Wrap(err, "failed to restore snapshot")
	}

	s.log.Info().
		Str("userID", userID).
		Str("snapshotID", latest.ID).
		Time("createdAt", latest.CreatedAt).
		Msg("Cart recovered from snapshot")
	return nil
}

func (s *service) List(userID string) ([]domain.Snapshot, error) {
	raw, err := s.kv.Get(SnapshotsKey(userID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot list")
	}
	if raw == nil {
		return nil, nil
	}

	var snapshots []domain.Snapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		s.log.Warn().Err(err).Str("userID", userID).Msg("Stored snapshot list failed to parse, treating as empty")
		return nil, nil
	}
	return snapshots, nil
}

func (s *service) PruneAll() error {
	keys, err := s.kv.ListKeys(snapshotsKeyPrefix)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate snapshot slots")
	}

	for _, key := range keys {
		userID, ok := parseSnapshotsKey(key)
		if !ok {
			continue
		}
		snapshots, err := s.List(userID)
		if err != nil {
			s.log.Warn().Err(err).Str("userID", userID).Msg("Skipping snapshot prune for user")
			continue
		}
		if len(snapshots) <= s.maxPerUser {
			continue
		}
		trimmed := snapshots[len(snapshots)-s.maxPerUser:]
		if err := s.write(userID, trimmed); err != nil {
			s.log.Warn().Err(err).Str("userID", userID).Msg("Failed to prune snapshots for user")
			continue
		}
		s.log.Debug().Str("userID", userID).Int("removed", len(snapshots)-len(trimmed)).Msg("Snapshots pruned")
	}
	return nil
}

func (s *service) write(userID string, snapshots []domain.Snapshot) error {
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot list")
	}
	return s.kv.Set(SnapshotsKey(userID), raw)
}
