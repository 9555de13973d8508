// Package ledger is the single source of truth for simulated orders. It keeps
// a newest-first in-memory cache, capped at MaxOrders, and writes through to a
// durable storage slot after every mutation. Storage failures are logged and
// swallowed; the in-memory state stays authoritative until the next load.
package ledger

import (
	"encoding/json"
	"sync"

	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/models"

	"go.uber.org/zap"
)

// MaxOrders caps the ledger. When a new order would push it past the cap, the
// oldest entry is evicted.
const MaxOrders = 100

// ClearGuard is the explicit capability a caller passes to ClearAll. A clear
// is suppressed while a new-order flow is in flight or while the caller has
// the ledger view pinned, so switching views never wipes a list the user is
// looking at. The store itself never inspects navigation state.
type ClearGuard struct {
	NewOrderFlow bool `json:"newOrderFlow"`
	ViewPinned   bool `json:"viewPinned"`
}

func (g ClearGuard) suppressed() bool {
	return g.NewOrderFlow || g.ViewPinned
}

// Store owns the order ledger. All mutation goes through Append, DeleteByID
// and ClearAll so the cache and the durable copy stay consistent.
type Store struct {
	logger *zap.Logger
	slots  *database.SlotStore

	mu          sync.Mutex
	orders      []models.Order // newest first
	initialized bool
}

// NewStore creates a ledger store on top of the given slot store. Call
// Initialize before first use.
func NewStore(slots *database.SlotStore, logger *zap.Logger) *Store {
	return &Store{
		logger: logger.Named("ledger"),
		slots:  slots,
	}
}

// Initialize loads the persisted orders into the cache. It is idempotent:
// only the first call per process lifetime does any work. A corrupt payload
// is discarded and the store starts empty rather than failing the caller.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.initialized = true

	payload, ok, err := s.slots.Load(models.SlotTransactions)
	if err != nil {
		s.logger.Error("Failed to load persisted orders, starting empty", zap.Error(err))
		return
	}
	if !ok {
		s.logger.Info("No persisted orders found")
		return
	}

	var orders []models.Order
	if err := json.Unmarshal(payload, &orders); err != nil {
		s.logger.Error("Corrupt order payload, discarding", zap.Error(err))
		if err := s.slots.Delete(models.SlotTransactions); err != nil {
			s.logger.Error("Failed to delete corrupt order payload", zap.Error(err))
		}
		return
	}

	if len(orders) > MaxOrders {
		orders = orders[:MaxOrders]
	}
	s.orders = orders
	s.logger.Info("Loaded persisted orders", zap.Int("count", len(orders)))
}

// Append inserts a new order at the front, or, when an order with the same id
// already exists, overwrites it in place. The capped list is re-persisted
// after every mutation.
func (s *Store) Append(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.orders {
		if s.orders[i].ID == order.ID {
			s.orders[i] = order
			merged = true
			break
		}
	}
	if !merged {
		s.orders = append([]models.Order{order}, s.orders...)
		if len(s.orders) > MaxOrders {
			s.orders = s.orders[:MaxOrders]
		}
	}

	s.persistLocked()
}

// List returns a snapshot copy of the current orders, newest first. Callers
// never see the live slice.
func (s *Store) List() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]models.Order, len(s.orders))
	copy(snapshot, s.orders)
	return snapshot
}

// Get returns the order with the given id, if present.
func (s *Store) Get(id string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			return s.orders[i], true
		}
	}
	return models.Order{}, false
}

// DeleteByID removes the matching order and reports whether a removal
// occurred.
func (s *Store) DeleteByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			s.persistLocked()
			s.logger.Info("Deleted order", zap.String("id", id), zap.Int("remaining", len(s.orders)))
			return true
		}
	}
	s.logger.Debug("No order to delete", zap.String("id", id))
	return false
}

// ClearAll empties the cache and the durable copy. A guarded clear is a
// logged no-op; it returns whether the ledger was actually cleared.
func (s *Store) ClearAll(guard ClearGuard) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guard.suppressed() {
		s.logger.Info("Skipping ledger clear",
			zap.Bool("new_order_flow", guard.NewOrderFlow),
			zap.Bool("view_pinned", guard.ViewPinned),
		)
		return false
	}

	s.orders = nil
	if err := s.slots.Delete(models.SlotTransactions); err != nil {
		s.logger.Error("Failed to clear persisted orders", zap.Error(err))
	}
	if err := s.slots.ReplaceOrders(nil); err != nil {
		s.logger.Error("Failed to clear orders table", zap.Error(err))
	}
	s.logger.Info("Cleared all orders")
	return true
}

// Len returns the current size of the ledger.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// persistLocked writes the current list through to storage. Callers must hold
// the mutex. Write failures degrade to in-memory-only state.
func (s *Store) persistLocked() {
	if err := s.slots.Save(models.SlotTransactions, s.orders); err != nil {
		s.logger.Error("Failed to persist orders, continuing with in-memory state", zap.Error(err))
		return
	}
	if err := s.slots.ReplaceOrders(s.orders); err != nil {
		s.logger.Error("Failed to mirror orders table", zap.Error(err))
	}
}
