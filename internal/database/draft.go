package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OrderDraft is a row in the 'order_drafts' table: the durable remote record
// a user's cart is reconciled against. Revision changes on every push, which
// is how the engine detects writes it did not make.
type OrderDraft struct {
	UserID    string    `gorm:"primaryKey;column:user_id"`
	ClienteID string    `gorm:"primaryKey;column:cliente_id"`
	Payload   []byte    `gorm:"column:payload"`
	Revision  string    `gorm:"column:revision"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (OrderDraft) TableName() string {
	return "order_drafts"
}

func NewDraftRepo(log logger.Logger, db *DB) domain.DraftRepo {
	return &DraftRepo{
		log: log.With().Str("repo", "draft").Logger(),
		db:  db,
	}
}

type DraftRepo struct {
	log zerolog.Logger
	db  *DB
}

// GetRevision retrieves only the revision tag for a draft, or nil when no
// draft record exists.
func (r *DraftRepo) GetRevision(ctx context.Context, userID string, clienteID string) (*string, error) {
	var draft OrderDraft
	result := r.db.Get().WithContext(ctx).
		Model(&OrderDraft{}).
		Select("revision").
		Where("user_id = ? AND cliente_id = ?", userID, clienteID).
		First(&draft)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("userID", userID).Str("clienteID", clienteID).Msg("Failed to get draft revision")
		return nil, errors.Wrap(result.Error, "failed to get draft revision")
	}

	return &draft.Revision, nil
}

// Push creates or replaces the draft with the cart contents (UPSERT logic)
// and returns the new revision.
func (r *DraftRepo) Push(ctx context.Context, userID string, clienteID string, state domain.CartState) (*string, error) {
	payload, err := json.Marshal(state.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode cart items")
	}

	newRevision := "uuid=" + uuid.NewString()
	now := time.Now()

	db := r.db.Get().WithContext(ctx)

	// Try to update first
	updateResult := db.Model(&OrderDraft{}).
		Where("user_id = ? AND cliente_id = ?", userID, clienteID).
		Updates(map[string]interface{}{
			"payload":    payload,
			"revision":   newRevision,
			"updated_at": now,
		})

	if updateResult.Error != nil {
		r.log.Error().Err(updateResult.Error).Str("userID", userID).Msg("Error updating order draft")
		return nil, errors.Wrap(updateResult.Error, "error updating order draft")
	}

	// If no rows were affected by the update, insert a new record
	if updateResult.RowsAffected == 0 {
		draft := OrderDraft{
			UserID:    userID,
			ClienteID: clienteID,
			Payload:   payload,
			Revision:  newRevision,
			UpdatedAt: now,
		}
		createResult := db.Create(&draft)
		if createResult.Error != nil {
			r.log.Error().Err(createResult.Error).Str("userID", userID).Msg("Error inserting order draft after failed update")
			return nil, errors.Wrap(createResult.Error, "error inserting order draft")
		}
		if createResult.RowsAffected == 0 {
			r.log.Error().Str("userID", userID).Msg("Insert operation affected 0 rows unexpectedly")
			return nil, errors.New("failed to insert order draft, 0 rows affected")
		}
		r.log.Debug().Str("userID", userID).Str("clienteID", clienteID).Msg("Order draft inserted")
	} else {
		r.log.Debug().Str("userID", userID).Str("clienteID", clienteID).Msg("Order draft updated")
	}

	return &newRevision, nil
}
