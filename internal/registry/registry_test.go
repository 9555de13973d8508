package registry

import (
	"testing"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func baseConfig() models.SniperConfig {
	return models.SniperConfig{
		Name:         "Moon Token",
		TokenAddress: "So11111111111111111111111111111111111111112",
		BuyAmount:    "0.5",
		SellTarget:   "10",
		StopLoss:     "5",
		TokenType:    models.TokenSOL,
	}
}

func TestRegistry_Add(t *testing.T) {
	reg := New(nil, zap.NewNop())

	saved, err := reg.Add(baseConfig())
	assert.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	configs := reg.List()
	assert.Len(t, configs, 1)
	assert.Equal(t, "Moon Token", configs[0].Name)
}

func TestRegistry_AddValidation(t *testing.T) {
	reg := New(nil, zap.NewNop())

	noName := baseConfig()
	noName.Name = ""
	_, err := reg.Add(noName)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	noAddress := baseConfig()
	noAddress.TokenAddress = ""
	_, err = reg.Add(noAddress)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token address is required")

	assert.Empty(t, reg.List())
}

func TestRegistry_UpdatePartialPatch(t *testing.T) {
	reg := New(nil, zap.NewNop())
	saved, err := reg.Add(baseConfig())
	assert.NoError(t, err)

	newTarget := "25"
	autoApprove := true
	updated, err := reg.Update(saved.ID, Patch{
		SellTarget:  &newTarget,
		AutoApprove: &autoApprove,
	})
	assert.NoError(t, err)
	assert.Equal(t, "25", updated.SellTarget)
	assert.True(t, updated.AutoApprove)
	// Untouched fields survive
	assert.Equal(t, "Moon Token", updated.Name)
	assert.Equal(t, "5", updated.StopLoss)

	_, err = reg.Update("missing", Patch{SellTarget: &newTarget})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Delete(t *testing.T) {
	reg := New(nil, zap.NewNop())
	saved, err := reg.Add(baseConfig())
	assert.NoError(t, err)

	assert.NoError(t, reg.Delete(saved.ID))
	assert.ErrorIs(t, reg.Delete(saved.ID), ErrNotFound)
	assert.Empty(t, reg.List())
}

func TestRegistry_SessionOnlyByDefault(t *testing.T) {
	reg := New(nil, zap.NewNop())
	_, err := reg.Add(baseConfig())
	assert.NoError(t, err)

	// A second session-only registry starts empty
	fresh := New(nil, zap.NewNop())
	assert.Empty(t, fresh.List())
}

func TestRegistry_OptionalPersistence(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.StorageSlot{}))
	slots := database.NewSlotStore(db)

	reg := New(slots, zap.NewNop())
	saved, err := reg.Add(baseConfig())
	assert.NoError(t, err)

	// A registry over the same slots picks the config back up
	reloaded := New(slots, zap.NewNop())
	configs := reloaded.List()
	assert.Len(t, configs, 1)
	assert.Equal(t, saved.ID, configs[0].ID)
}
