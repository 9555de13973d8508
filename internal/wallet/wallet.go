// Package wallet holds the signing-identity session. The secret is only ever
// parsed to derive the public key; it is never logged or persisted.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"strings"
	"sync"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// Wallet is the connect/disconnect session state. Every transition writes the
// walletState slot so the connection survives a restart for display purposes.
type Wallet struct {
	logger       *zap.Logger
	slots        *database.SlotStore
	onDisconnect func() // cancels auto-sell watchers, may be nil

	mu        sync.Mutex
	connected bool
	address   string
}

// New creates a wallet session. onDisconnect runs after every disconnect.
func New(slots *database.SlotStore, logger *zap.Logger, onDisconnect func()) *Wallet {
	return &Wallet{
		logger:       logger.Named("wallet"),
		slots:        slots,
		onDisconnect: onDisconnect,
	}
}

// Connect parses a base58-encoded 64-byte ed25519 secret key, verifies it is
// internally consistent and derives the public address. It returns the
// address on success.
func (w *Wallet) Connect(secret string) (string, error) {
	raw, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return "", fmt.Errorf("invalid private key encoding: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid private key length: got %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}

	// The second half of a Solana secret key is the public key; reject keys
	// whose halves do not agree.
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return "", fmt.Errorf("secret key does not match its embedded public key")
	}

	address := base58.Encode(raw[ed25519.SeedSize:])

	w.mu.Lock()
	w.connected = true
	w.address = address
	w.persistLocked()
	w.mu.Unlock()

	w.logger.Info("Wallet connected", zap.String("address", address))
	return address, nil
}

// Disconnect clears the session, persists the state and runs the disconnect
// hook.
func (w *Wallet) Disconnect() {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.address = ""
	w.persistLocked()
	w.mu.Unlock()

	if wasConnected {
		w.logger.Info("Wallet disconnected")
	}
	if w.onDisconnect != nil {
		w.onDisconnect()
	}
}

// Connected reports whether a wallet session is active.
func (w *Wallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// Address returns the public key of the active session, or empty.
func (w *Wallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

// State returns the persistable view of the session.
func (w *Wallet) State() models.WalletState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Wallet) stateLocked() models.WalletState {
	state := models.WalletState{Connected: w.connected}
	if w.connected {
		addr := w.address
		state.Address = &addr
	}
	return state
}

func (w *Wallet) persistLocked() {
	if err := w.slots.Save(models.SlotWalletState, w.stateLocked()); err != nil {
		w.logger.Error("Failed to persist wallet state", zap.Error(err))
	}
}
