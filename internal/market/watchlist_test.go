package market

import (
	"encoding/json"
	"testing"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) *database.SlotStore {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&models.StorageSlot{})
	assert.NoError(t, err)
	return database.NewSlotStore(db)
}

func TestWatchlist_AddRemove(t *testing.T) {
	slots := setupTest(t)
	list := NewFollowedTraders(slots, zap.NewNop())

	assert.True(t, list.Add("trader-1"))
	assert.True(t, list.Add("trader-2"))
	assert.False(t, list.Add("trader-1"))

	assert.True(t, list.Contains("trader-1"))
	assert.Equal(t, []string{"trader-1", "trader-2"}, list.List())

	assert.True(t, list.Remove("trader-1"))
	assert.False(t, list.Remove("trader-1"))
	assert.False(t, list.Contains("trader-1"))
	assert.Equal(t, []string{"trader-2"}, list.List())
}

func TestWatchlist_PersistsAcrossReload(t *testing.T) {
	slots := setupTest(t)

	list := NewWatchedTokens(slots, zap.NewNop())
	list.Add("mint-1")
	list.Add("mint-2")

	reloaded := NewWatchedTokens(slots, zap.NewNop())
	assert.Equal(t, []string{"mint-1", "mint-2"}, reloaded.List())
}

func TestWatchlist_SeparateSlots(t *testing.T) {
	slots := setupTest(t)

	traders := NewFollowedTraders(slots, zap.NewNop())
	tokens := NewWatchedTokens(slots, zap.NewNop())

	traders.Add("trader-1")
	tokens.Add("mint-1")

	assert.False(t, tokens.Contains("trader-1"))
	assert.False(t, traders.Contains("mint-1"))
}

func TestWatchlist_CorruptPayloadStartsEmpty(t *testing.T) {
	slots := setupTest(t)
	assert.NoError(t, slots.Save(models.SlotFollowedTraders, json.RawMessage(`{"not":"a list"}`)))

	list := NewFollowedTraders(slots, zap.NewNop())
	assert.Empty(t, list.List())
}
