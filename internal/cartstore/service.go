package cartstore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Storage slot naming. Collaborators that enumerate carts (the aggregator)
// depend on the items prefix staying stable.
const (
	itemsKeyPrefix = "cartItems_"
	metaKeyPrefix  = "cartMeta_"
)

// ItemsKey returns the storage slot holding a user's cart line items.
func ItemsKey(userID string) string {
	return itemsKeyPrefix + userID
}

// MetaKey returns the storage slot holding a user's cart metadata.
func MetaKey(userID string) string {
	return metaKeyPrefix + userID
}

// ItemsKeyPrefix is the enumeration prefix for every cart items slot.
func ItemsKeyPrefix() string {
	return itemsKeyPrefix
}

// ParseItemsKey extracts the owning userID from an items slot key.
func ParseItemsKey(key string) (string, bool) {
	if !strings.HasPrefix(key, itemsKeyPrefix) {
		return "", false
	}
	userID := strings.TrimPrefix(key, itemsKeyPrefix)
	if userID == "" {
		return "", false
	}
	return userID, true
}

// cartMeta is the serialized shape of the metadata slot.
type cartMeta struct {
	ClienteID      string    `json:"cliente_id"`
	PendingChanges bool      `json:"pending_changes"`
	LastMutationAt time.Time `json:"last_mutation_at"`
}

type Service interface {
	// Load returns the user's cart. A missing entry or an unparseable stored
	// value both yield an empty cart; the second return reports whether the
	// stored value was corrupt (recoverable, already logged).
	Load(userID string) (domain.CartState, bool)
	// Mutate applies the updater, marks pending changes, stamps the mutation
	// time and writes back. The updater's result is validated before the
	// write.
	Mutate(userID string, update func(domain.CartState) domain.CartState) (domain.CartState, error)
	// Clear removes the user's cart slots entirely.
	Clear(userID string) error
	// MarkSynced clears the pending-changes flag, unless the cart mutated
	// after the given instant (the push carried a stale copy).
	MarkSynced(userID string, asOf time.Time) error
}

func NewService(log logger.Logger, kv domain.KVStore) Service {
	return &service{
		log:   log.With().Str("module", "cartstore").Logger(),
		kv:    kv,
		nowFn: time.Now,
	}
}

type service struct {
	log   zerolog.Logger
	kv    domain.KVStore
	nowFn func() time.Time
}

func (s *service) Load(userID string) (domain.CartState, bool) {
	state := domain.CartState{UserID: userID}
	corrupted := false

	raw, err := s.kv.Get(ItemsKey(userID))
	if err != nil {
		s.log.Warn().Err(err).Str("userID", userID).Msg("Failed to read cart items slot, treating as empty")
		return state, false
	}
	if raw != nil {
		var items []domain.CartLineItem
		if err := json.Unmarshal(raw, &items); err != nil {
			s.log.Warn().Err(err).Str("userID", userID).Msg("Stored cart items failed to parse, treating as empty cart")
			corrupted = true
		} else {
			state.Items = items
		}
	}

	rawMeta, err := s.kv.Get(MetaKey(userID))
	if err != nil {
		s.log.Warn().Err(err).Str("userID", userID).Msg("Failed to read cart meta slot")
		return state, corrupted
	}
	if rawMeta != nil {
		var meta cartMeta
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			s.log.Warn().Err(err).Str("userID", userID).Msg("Stored cart meta failed to parse, ignoring")
		} else {
			state.ClienteID = meta.ClienteID
			state.PendingChanges = meta.PendingChanges
			state.LastMutationAt = meta.LastMutationAt
		}
	}

	return state, corrupted
}

func (s *service) Mutate(userID string, update func(domain.CartState) domain.CartState) (domain.CartState, error) {
	state, _ := s.Load(userID)

	state = update(state)
	state.UserID = userID
	state.PendingChanges = true
	state.LastMutationAt = s.nowFn()

	for _, item := range state.Items {
		if err := item.Validate(); err != nil {
			return domain.CartState{}, errors.Wrap(err, "invalid cart mutation")
		}
	}

	if err := s.write(state); err != nil {
		return domain.CartState{}, err
	}

	return state, nil
}

func (s *service) Clear(userID string) error {
	if err := s.kv.Delete(ItemsKey(userID)); err != nil {
		return errors.Wrap(err, "failed to clear cart items")
	}
	if err := s.kv.Delete(MetaKey(userID)); err != nil {
		return errors.Wrap(err, "failed to clear cart meta")
	}
	s.log.Debug().Str("userID", userID).Msg("Cart cleared")
	return nil
}

func (s *service) MarkSynced(userID string, asOf time.Time) error {
	state, _ := s.Load(userID)

	if state.LastMutationAt.After(asOf) {
		// The cart changed while the push was in flight; the next tick
		// carries the newer copy.
		s.log.Debug().Str("userID", userID).Msg("Cart mutated during push, keeping pending flag")
		return nil
	}

	state.PendingChanges = false
	return s.writeMeta(state)
}

func (s *service) write(state domain.CartState) error {
	raw, err := json.Marshal(state.Items)
	if err != nil {
		return errors.Wrap(err, "failed to encode cart items")
	}
	if err := s.kv.Set(ItemsKey(state.UserID), raw); err != nil {
		return errors.Wrap(err, "failed to write cart items")
	}
	return s.writeMeta(state)
}

func (s *service) writeMeta(state domain.CartState) error {
	rawMeta, err := json.Marshal(cartMeta{
		ClienteID:      state.ClienteID,
		PendingChanges: state.PendingChanges,
		LastMutationAt: state.LastMutationAt,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode cart meta")
	}
	if err := s.kv.Set(MetaKey(state.UserID), rawMeta); err != nil {
		return errors.Wrap(err, "failed to write cart meta")
	}
	return nil
}
