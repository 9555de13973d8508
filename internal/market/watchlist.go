// Package market covers the social surface of the dashboard: followed
// traders, watched tokens and the deterministic mock metrics shown when the
// chain-query service cannot serve real data.
package market

import (
	"encoding/json"
	"sync"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"go.uber.org/zap"
)

// Watchlist is a persisted, ordered set of address strings. Followed traders
// and watched tokens are both watchlists over different slots.
type Watchlist struct {
	logger *zap.Logger
	slots  *database.SlotStore
	key    string

	mu    sync.Mutex
	addrs []string
}

// NewWatchlist loads (or starts) the watchlist stored under the given slot
// key.
func NewWatchlist(key string, slots *database.SlotStore, logger *zap.Logger) *Watchlist {
	l := &Watchlist{
		logger: logger.Named("watchlist").With(zap.String("slot", key)),
		slots:  slots,
		key:    key,
	}
	l.load()
	return l
}

func (l *Watchlist) load() {
	payload, ok, err := l.slots.Load(l.key)
	if err != nil {
		l.logger.Error("Failed to load watchlist, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var addrs []string
	if err := json.Unmarshal(payload, &addrs); err != nil {
		l.logger.Error("Corrupt watchlist payload, discarding", zap.Error(err))
		return
	}
	l.addrs = addrs
}

// Add appends an address; it reports false when the address is already
// present.
func (l *Watchlist) Add(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.addrs {
		if a == address {
			return false
		}
	}
	l.addrs = append(l.addrs, address)
	l.persistLocked()
	return true
}

// Remove deletes an address; it reports whether a removal occurred.
func (l *Watchlist) Remove(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, a := range l.addrs {
		if a == address {
			l.addrs = append(l.addrs[:i], l.addrs[i+1:]...)
			l.persistLocked()
			return true
		}
	}
	return false
}

// Contains reports whether the address is on the list.
func (l *Watchlist) Contains(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.addrs {
		if a == address {
			return true
		}
	}
	return false
}

// List returns a snapshot copy of the addresses.
func (l *Watchlist) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]string, len(l.addrs))
	copy(snapshot, l.addrs)
	return snapshot
}

func (l *Watchlist) persistLocked() {
	if err := l.slots.Save(l.key, l.addrs); err != nil {
		l.logger.Error("Failed to persist watchlist", zap.Error(err))
	}
}

// NewFollowedTraders is the followed-trader watchlist.
func NewFollowedTraders(slots *database.SlotStore, logger *zap.Logger) *Watchlist {
	return NewWatchlist(models.SlotFollowedTraders, slots, logger)
}

// NewWatchedTokens is the watched-token watchlist.
func NewWatchedTokens(slots *database.SlotStore, logger *zap.Logger) *Watchlist {
	return NewWatchlist(models.SlotWatchedTokens, slots, logger)
}
