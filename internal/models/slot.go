package models

import "time"

// Well-known slot keys. They mirror the storage keys the original ledger
// format used, so a dump of the slots table reads the same way.
const (
	SlotTransactions    = "transactions"
	SlotWalletState     = "walletState"
	SlotSniperConfigs   = "sniperConfigs"
	SlotFollowedTraders = "followedTraders"
	SlotWatchedTokens   = "watchedTokens"
)

// StorageSlot is one persisted key-value entry. Every durable piece of state
// (ledger, wallet session, watchlists) lives in a named slot holding a JSON
// payload.
type StorageSlot struct {
	Key       string    `gorm:"column:slot_key;primaryKey"`
	Payload   []byte    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// WalletState is the payload of the walletState slot, written on every
// connect/disconnect transition.
type WalletState struct {
	Connected bool    `json:"connected"`
	Address   *string `json:"address"`
}
