// Package registry holds the user-authored sniper configurations for the
// session. Unlike the ledger, the registry is ephemeral by default; durable
// storage is an opt-in policy switch.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no config matches the requested id.
var ErrNotFound = errors.New("sniper config not found")

// Patch is a partial update to a config. Nil fields are left untouched.
type Patch struct {
	Name          *string                   `json:"name,omitempty"`
	TokenAddress  *string                   `json:"tokenAddress,omitempty"`
	BuyAmount     *string                   `json:"buyAmount,omitempty"`
	SellTarget    *string                   `json:"sellTarget,omitempty"`
	StopLoss      *string                   `json:"stopLoss,omitempty"`
	MaxSlippage   *string                   `json:"maxSlippage,omitempty"`
	TokenType     *models.TokenType         `json:"tokenType,omitempty"`
	AutoApprove   *bool                     `json:"autoApprove,omitempty"`
	Notifications *models.NotificationPrefs `json:"notifications,omitempty"`
}

// Registry is the in-memory list of sniper configs. When constructed with a
// slot store it also writes through to the sniperConfigs slot, mirroring the
// ledger's persistence idiom.
type Registry struct {
	logger *zap.Logger
	slots  *database.SlotStore // nil disables persistence

	mu      sync.RWMutex
	configs []models.SniperConfig
}

// New creates a registry. Pass a nil slot store for a session-only registry.
func New(slots *database.SlotStore, logger *zap.Logger) *Registry {
	r := &Registry{
		logger: logger.Named("registry"),
		slots:  slots,
	}
	r.load()
	return r
}

func (r *Registry) load() {
	if r.slots == nil {
		return
	}
	payload, ok, err := r.slots.Load(models.SlotSniperConfigs)
	if err != nil {
		r.logger.Error("Failed to load persisted configs, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var configs []models.SniperConfig
	if err := json.Unmarshal(payload, &configs); err != nil {
		r.logger.Error("Corrupt config payload, discarding", zap.Error(err))
		return
	}
	r.configs = configs
	r.logger.Info("Loaded persisted configs", zap.Int("count", len(configs)))
}

// Add validates and stores a new config, assigning it a generated id. The
// only hard requirements are a name and a token address; everything else has
// engine-side defaults.
func (r *Registry) Add(cfg models.SniperConfig) (models.SniperConfig, error) {
	if cfg.Name == "" {
		return models.SniperConfig{}, fmt.Errorf("config name is required")
	}
	if cfg.TokenAddress == "" {
		return models.SniperConfig{}, fmt.Errorf("token address is required")
	}

	cfg.ID = uuid.NewString()

	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.persistLocked()
	r.mu.Unlock()

	r.logger.Info("Added sniper config", zap.String("id", cfg.ID), zap.String("name", cfg.Name))
	return cfg, nil
}

// Update applies a partial patch to the config with the given id.
func (r *Registry) Update(id string, patch Patch) (models.SniperConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.configs {
		if r.configs[i].ID != id {
			continue
		}
		applyPatch(&r.configs[i], patch)
		r.persistLocked()
		return r.configs[i], nil
	}
	return models.SniperConfig{}, ErrNotFound
}

// Delete removes the config with the given id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.configs {
		if r.configs[i].ID == id {
			r.configs = append(r.configs[:i], r.configs[i+1:]...)
			r.persistLocked()
			r.logger.Info("Deleted sniper config", zap.String("id", id))
			return nil
		}
	}
	return ErrNotFound
}

// Get returns the config with the given id.
func (r *Registry) Get(id string) (models.SniperConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.configs {
		if r.configs[i].ID == id {
			return r.configs[i], true
		}
	}
	return models.SniperConfig{}, false
}

// List returns a snapshot copy of all configs.
func (r *Registry) List() []models.SniperConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]models.SniperConfig, len(r.configs))
	copy(snapshot, r.configs)
	return snapshot
}

func (r *Registry) persistLocked() {
	if r.slots == nil {
		return
	}
	if err := r.slots.Save(models.SlotSniperConfigs, r.configs); err != nil {
		r.logger.Error("Failed to persist configs, continuing with in-memory state", zap.Error(err))
	}
}

func applyPatch(cfg *models.SniperConfig, patch Patch) {
	if patch.Name != nil {
		cfg.Name = *patch.Name
	}
	if patch.TokenAddress != nil {
		cfg.TokenAddress = *patch.TokenAddress
	}
	if patch.BuyAmount != nil {
		cfg.BuyAmount = *patch.BuyAmount
	}
	if patch.SellTarget != nil {
		cfg.SellTarget = *patch.SellTarget
	}
	if patch.StopLoss != nil {
		cfg.StopLoss = *patch.StopLoss
	}
	if patch.MaxSlippage != nil {
		cfg.MaxSlippage = *patch.MaxSlippage
	}
	if patch.TokenType != nil {
		cfg.TokenType = *patch.TokenType
	}
	if patch.AutoApprove != nil {
		cfg.AutoApprove = *patch.AutoApprove
	}
	if patch.Notifications != nil {
		cfg.Notifications = *patch.Notifications
	}
}
