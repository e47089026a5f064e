package database

import (
	"time"

	"github.com/carritosync/carrito/internal/domain"
	"github.com/carritosync/carrito/internal/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LocalKVEntry is a row in the 'local_kv' table: one named storage slot on
// the device. The cart store and snapshot manager address slots by key, the
// aggregator enumerates them by prefix.
type LocalKVEntry struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (LocalKVEntry) TableName() string {
	return "local_kv"
}

func NewKVRepo(log logger.Logger, db *DB) domain.KVStore {
	return &KVRepo{
		log: log.With().Str("repo", "kv").Logger(),
		db:  db,
	}
}

type KVRepo struct {
	log zerolog.Logger
	db  *DB
}

// Get returns the slot value, or nil when the key is absent.
func (r *KVRepo) Get(key string) ([]byte, error) {
	var entry LocalKVEntry
	result := r.db.Get().Where("key = ?", key).First(&entry)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error().Err(result.Error).Str("key", key).Msg("Failed to read local kv slot")
		return nil, errors.Wrap(result.Error, "failed to read local kv slot")
	}

	return entry.Value, nil
}

// Set creates or replaces the slot. Last write wins.
func (r *KVRepo) Set(key string, value []byte) error {
	db := r.db.Get()

	updateResult := db.Model(&LocalKVEntry{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"value":      value,
			"updated_at": time.Now(),
		})

	if updateResult.Error != nil {
		r.log.Error().Err(updateResult.Error).Str("key", key).Msg("Error updating local kv slot")
		return errors.Wrap(updateResult.Error, "error updating local kv slot")
	}

	if updateResult.RowsAffected == 0 {
		entry := LocalKVEntry{Key: key, Value: value}
		if createResult := db.Create(&entry); createResult.Error != nil {
			r.log.Error().Err(createResult.Error).Str("key", key).Msg("Error inserting local kv slot after failed update")
			return errors.Wrap(createResult.Error, "error inserting local kv slot")
		}
	}

	return nil
}

func (r *KVRepo) Delete(key string) error {
	result := r.db.Get().Where("key = ?", key).Delete(&LocalKVEntry{})
	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("key", key).Msg("Failed to delete local kv slot")
		return errors.Wrap(result.Error, "failed to delete local kv slot")
	}
	return nil
}

// ListKeys returns every slot key starting with prefix.
func (r *KVRepo) ListKeys(prefix string) ([]string, error) {
	var keys []string
	result := r.db.Get().Model(&LocalKVEntry{}).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Pluck("key", &keys)

	if result.Error != nil {
		r.log.Error().Err(result.Error).Str("prefix", prefix).Msg("Failed to list local kv slots")
		return nil, errors.Wrap(result.Error, "failed to list local kv slots")
	}

	return keys, nil
}
