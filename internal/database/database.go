package database

import (
	"encoding/json"
	"fmt"

	"solana-sniper-bot-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.StorageSlot{}, &models.Order{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return db, nil
}

// SlotStore reads and writes named JSON slots. It is the durable half of
// every store in the application; callers own their in-memory caches and
// write through here after each mutation.
type SlotStore struct {
	db *gorm.DB
}

// NewSlotStore wraps a database connection.
func NewSlotStore(db *gorm.DB) *SlotStore {
	return &SlotStore{db: db}
}

// Load reads the payload of a slot. The second return value reports whether
// the slot exists.
func (s *SlotStore) Load(key string) ([]byte, bool, error) {
	var slot models.StorageSlot
	err := s.db.First(&slot, "slot_key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load slot %q: %w", key, err)
	}
	return slot.Payload, true, nil
}

// Save JSON-encodes the value and upserts it under the key.
func (s *SlotStore) Save(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode slot %q: %w", key, err)
	}

	slot := models.StorageSlot{Key: key, Payload: payload}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&slot).Error
	if err != nil {
		return fmt.Errorf("failed to save slot %q: %w", key, err)
	}
	return nil
}

// Delete removes a slot. Deleting a missing slot is not an error.
func (s *SlotStore) Delete(key string) error {
	if err := s.db.Delete(&models.StorageSlot{}, "slot_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

// ReplaceOrders mirrors the ledger's order list into the typed orders table
// so it can be queried with SQL. The slot payload stays the source of truth.
func (s *SlotStore) ReplaceOrders(orders []models.Order) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Order{}).Error; err != nil {
			return fmt.Errorf("failed to clear orders table: %w", err)
		}
		if len(orders) == 0 {
			return nil
		}
		if err := tx.Create(&orders).Error; err != nil {
			return fmt.Errorf("failed to insert orders: %w", err)
		}
		return nil
	})
}
