// Package sniper contains the simulated trading engine: it turns a sniper
// config into a sequence of order state transitions (pending to confirmed or
// failed) recorded in the ledger, and arms the auto-sell watcher after a
// confirmed buy. No real transaction is ever submitted anywhere.
package sniper

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"solana-sniper-bot-go/internal/config"
	"solana-sniper-bot-go/internal/ledger"
	"solana-sniper-bot-go/internal/models"
	"solana-sniper-bot-go/internal/notify"
	"solana-sniper-bot-go/internal/registry"
	"solana-sniper-bot-go/internal/solana"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine drives the simulated order lifecycle. Resolution is asynchronous:
// every buy and sell is recorded as pending immediately and resolved by a
// delayed task. Resolution tasks are cancellable and re-check that the order
// and its config still exist before touching the ledger, so a cleared ledger
// or deleted config can never be resurrected by a stale timer.
type Engine struct {
	logger   *zap.Logger
	sim      *config.Simulation
	ledger   *ledger.Store
	registry *registry.Registry
	notifier notify.Notifier
	watcher  *Watcher

	mu          sync.Mutex
	rng         *rand.Rand
	resolutions map[string]*time.Timer // order id -> in-flight resolution
}

// NewEngine creates the engine and its auto-sell watcher.
func NewEngine(sim *config.Simulation, store *ledger.Store, reg *registry.Registry, notifier notify.Notifier, logger *zap.Logger) *Engine {
	seed := sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		logger:      logger.Named("sniper"),
		sim:         sim,
		ledger:      store,
		registry:    reg,
		notifier:    notifier,
		rng:         rand.New(rand.NewSource(seed)),
		resolutions: make(map[string]*time.Timer),
	}
	e.watcher = NewWatcher(sim, e.autoSell, logger)
	return e
}

// Watcher exposes the auto-sell watcher, mainly for wallet-disconnect and
// shutdown paths that need CancelAll.
func (e *Engine) Watcher() *Watcher {
	return e.watcher
}

// ValidateTokenAddress reports whether the address parses as a well-formed
// Solana public key. Empty and malformed addresses are rejected before any
// order is created.
func (e *Engine) ValidateTokenAddress(address string) bool {
	return solana.IsValidAddress(strings.TrimSpace(address))
}

// Buy records a pending buy order and schedules its resolution. An invalid
// token address records a terminal failed order instead, so the attempt stays
// visible in the ledger.
func (e *Engine) Buy(cfg models.SniperConfig) models.Order {
	cfg = ensureID(cfg)
	if !e.ValidateTokenAddress(cfg.TokenAddress) {
		e.notifier.Notify(notify.Notification{Type: notify.TypeError, Message: "Invalid token address"})
		failed := e.newOrder(cfg, models.SideBuy, models.StatusFailed)
		e.ledger.Append(failed)
		return failed
	}

	pending := e.newOrder(cfg, models.SideBuy, models.StatusPending)
	e.ledger.Append(pending)
	e.logger.Info("Recorded pending buy order", zap.String("order_id", pending.ID), zap.String("token", cfg.DisplayName()))

	e.scheduleBuyResolution(cfg, pending)
	return pending
}

// Sell records a pending sell order and schedules its resolution. When
// overridePct is set, the realized profit is buyAmount x overridePct / 100;
// otherwise a pseudo-random outcome is drawn at resolution time.
func (e *Engine) Sell(cfg models.SniperConfig, overridePct *float64) models.Order {
	return e.sell(ensureID(cfg), overridePct, nil)
}

// Snipe is the orchestration entry point: exactly one buy per call. When a
// pending order from StartSnipe is supplied, that order is resolved in place
// instead of creating a second one. Internal failures surface as a
// notification, never as a panic to the caller.
func (e *Engine) Snipe(cfg models.SniperConfig, pending *models.Order) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Snipe failed", zap.Any("panic", r))
			e.notifier.Notify(notify.Notification{
				Type:    notify.TypeError,
				Message: fmt.Sprintf("Error sniping %s", e.configLabel(cfg)),
			})
		}
	}()

	if pending == nil {
		e.Buy(cfg)
		return
	}
	e.scheduleBuyResolution(cfg, *pending)
}

// StartSnipe is the user-facing trigger. It validates the address, records a
// single authoritative pending order for immediate visibility, notifies the
// start and hands off to Snipe after the start delay. The pending order
// created here is the same object the buy later resolves.
func (e *Engine) StartSnipe(cfg models.SniperConfig) (models.Order, error) {
	cfg = ensureID(cfg)
	if !e.ValidateTokenAddress(cfg.TokenAddress) {
		e.notifier.Notify(notify.Notification{Type: notify.TypeError, Message: "Invalid token address"})
		return models.Order{}, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	pending := e.newOrder(cfg, models.SideBuy, models.StatusPending)
	e.ledger.Append(pending)

	e.notifier.Notify(notify.Notification{
		Type: notify.TypeSuccess,
		Message: fmt.Sprintf("Starting snipe for %s with %s",
			e.configLabel(cfg), strings.ToUpper(string(cfg.Denomination()))),
	})

	order := pending
	registered := e.isRegistered(cfg)
	e.schedule(order.ID, e.sim.StartDelay(), func() {
		if !e.shouldResolve(cfg, order.ID, registered) {
			return
		}
		e.Snipe(cfg, &order)
	})
	return pending, nil
}

// RemoveConfig deletes a config from the registry and disarms its watcher.
// In-flight resolutions for the config drop themselves on the existence
// re-check.
func (e *Engine) RemoveConfig(id string) error {
	if err := e.registry.Delete(id); err != nil {
		return err
	}
	e.watcher.Cancel(id)
	return nil
}

// ClearLedger clears the order ledger and, when the clear actually happens,
// cancels every in-flight resolution so no stale timer re-inserts an order.
func (e *Engine) ClearLedger(guard ledger.ClearGuard) bool {
	cleared := e.ledger.ClearAll(guard)
	if cleared {
		e.CancelResolutions()
	}
	return cleared
}

// CancelResolution stops the in-flight resolution for one order, if any.
func (e *Engine) CancelResolution(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer, ok := e.resolutions[orderID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(e.resolutions, orderID)
	return true
}

// CancelResolutions stops every in-flight resolution.
func (e *Engine) CancelResolutions() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, timer := range e.resolutions {
		timer.Stop()
		delete(e.resolutions, id)
	}
}

// PendingResolutions reports how many resolutions are in flight.
func (e *Engine) PendingResolutions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.resolutions)
}

// Shutdown cancels all timers and watchers. Orders already pending stay
// pending in the ledger; they resolve on no one's behalf after shutdown.
func (e *Engine) Shutdown() {
	e.CancelResolutions()
	e.watcher.CancelAll()
}

// scheduleBuyResolution resolves a recorded pending buy after the simulated
// settlement delay: confirmed with the configured success probability (price
// fixed to the buy amount), failed otherwise. A confirmed buy arms the
// auto-sell watcher when a threshold is configured.
func (e *Engine) scheduleBuyResolution(cfg models.SniperConfig, pending models.Order) {
	registered := e.isRegistered(cfg)
	e.schedule(pending.ID, e.sim.ResolveDelay(), func() {
		if !e.shouldResolve(cfg, pending.ID, registered) {
			return
		}

		if e.rollSuccess() {
			confirmed := pending
			confirmed.Status = models.StatusConfirmed
			confirmed.Price = cfg.BuyAmountValue()
			e.ledger.Append(confirmed)
			e.notifier.Notify(notify.Notification{
				Type:    notify.TypeSuccess,
				Message: fmt.Sprintf("Successfully bought %s", e.configLabel(cfg)),
			})

			if cfg.SellTargetValue() > 0 || cfg.StopLossValue() > 0 {
				e.watcher.Arm(cfg)
			}
			return
		}

		failed := pending
		failed.Status = models.StatusFailed
		e.ledger.Append(failed)
		e.notifier.Notify(notify.Notification{
			Type:    notify.TypeError,
			Message: fmt.Sprintf("Failed to buy %s", e.configLabel(cfg)),
		})
	})
}

func (e *Engine) sell(cfg models.SniperConfig, overridePct *float64, onResolved func(models.Order)) models.Order {
	buyAmount := cfg.BuyAmountValue()

	// Profit is attached only on confirmation; pending and failed sells
	// carry none.
	pending := e.newOrder(cfg, models.SideSell, models.StatusPending)
	e.ledger.Append(pending)
	e.logger.Info("Recorded pending sell order", zap.String("order_id", pending.ID), zap.String("token", cfg.DisplayName()))

	registered := e.isRegistered(cfg)
	e.schedule(pending.ID, e.sim.ResolveDelay(), func() {
		if !e.shouldResolve(cfg, pending.ID, registered) {
			return
		}

		if !e.rollSuccess() {
			failed := pending
			failed.Status = models.StatusFailed
			e.ledger.Append(failed)
			e.notifier.Notify(notify.Notification{
				Type:    notify.TypeError,
				Message: fmt.Sprintf("Failed to sell %s", e.configLabel(cfg)),
			})
			if onResolved != nil {
				onResolved(failed)
			}
			return
		}

		var profit float64
		if overridePct != nil {
			profit = buyAmount * *overridePct / 100
		} else {
			// Uniform in [-0.1 x buy, +0.4 x buy).
			profit = e.randFloat()*buyAmount*0.5 - buyAmount*0.1
		}

		confirmed := pending
		confirmed.Status = models.StatusConfirmed
		confirmed.Price = e.randFloat() * 0.01
		confirmed.Profit = &profit
		e.ledger.Append(confirmed)

		denom := strings.ToUpper(string(cfg.Denomination()))
		profitMsg := fmt.Sprintf("loss: %.4f %s", profit, denom)
		if profit >= 0 {
			profitMsg = fmt.Sprintf("profit: +%.4f %s", profit, denom)
		}
		e.notifier.Notify(notify.Notification{
			Type:    notify.TypeSuccess,
			Message: fmt.Sprintf("Successfully sold %s (%s)", e.configLabel(cfg), profitMsg),
		})
		if onResolved != nil {
			onResolved(confirmed)
		}
	})
	return pending
}

// autoSell is the watcher's trigger. The framing notification fires only when
// the sell actually confirms.
func (e *Engine) autoSell(cfg models.SniperConfig, changePct float64, takeProfit bool) {
	pct := changePct
	e.sell(cfg, &pct, func(o models.Order) {
		if o.Status != models.StatusConfirmed {
			return
		}
		if takeProfit {
			e.notifier.Notify(notify.Notification{
				Type:    notify.TypeSuccess,
				Message: fmt.Sprintf("Take profit executed: +%.2f%%", changePct),
			})
			return
		}
		e.notifier.Notify(notify.Notification{
			Type:    notify.TypeWarning,
			Message: fmt.Sprintf("Stop loss executed: %.2f%%", changePct),
		})
	})
}

// schedule registers a cancellable delayed task keyed by order id. The entry
// removes itself before running so CancelResolution never races a live timer.
func (e *Engine) schedule(orderID string, delay time.Duration, fn func()) {
	timer := time.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.resolutions, orderID)
		e.mu.Unlock()
		fn()
	})

	e.mu.Lock()
	e.resolutions[orderID] = timer
	e.mu.Unlock()
}

// isRegistered reports whether the config is in the registry. Ad-hoc configs
// never are; their generated id exists only for watcher and timer bookkeeping.
func (e *Engine) isRegistered(cfg models.SniperConfig) bool {
	if e.registry == nil || cfg.ID == "" {
		return false
	}
	_, ok := e.registry.Get(cfg.ID)
	return ok
}

// shouldResolve re-checks existence at resolution time: the order must still
// be in the ledger, and a config that was registered when the work was
// scheduled must still be in the registry. Ad-hoc configs skip the registry
// check; there is nothing to delete them from.
func (e *Engine) shouldResolve(cfg models.SniperConfig, orderID string, registered bool) bool {
	if _, ok := e.ledger.Get(orderID); !ok {
		e.logger.Info("Dropping resolution, order no longer in ledger", zap.String("order_id", orderID))
		return false
	}
	if registered {
		if _, ok := e.registry.Get(cfg.ID); !ok {
			e.logger.Info("Dropping resolution, config was deleted",
				zap.String("order_id", orderID), zap.String("config_id", cfg.ID))
			return false
		}
	}
	return true
}

// newOrder is the single authoritative order constructor; every code path
// that records an order goes through it.
func (e *Engine) newOrder(cfg models.SniperConfig, side models.Side, status models.Status) models.Order {
	now := time.Now().UnixMilli()

	e.mu.Lock()
	suffix := e.rng.Intn(1_000_000)
	amount := int64(e.rng.Intn(10_000) + 1_000)
	variation := e.rng.Float64()*0.2 - 0.1
	e.mu.Unlock()

	price := cfg.BuyAmountValue()
	if side == models.SideSell {
		price = price * (1 + variation)
	}

	id := fmt.Sprintf("tx-%d-%d", now, suffix)
	return models.Order{
		ID:           id,
		TokenName:    cfg.DisplayName(),
		TokenAddress: cfg.TokenAddress,
		Side:         side,
		Amount:       amount,
		Price:        price,
		Status:       status,
		Timestamp:    now,
		ExternalRef:  "simulated-" + id,
		TokenType:    cfg.Denomination(),
	}
}

func (e *Engine) rollSuccess() bool {
	e.mu.Lock()
	v := e.rng.Float64()
	e.mu.Unlock()
	return v < e.sim.SuccessProbability
}

func (e *Engine) randFloat() float64 {
	e.mu.Lock()
	v := e.rng.Float64()
	e.mu.Unlock()
	return v
}

// ensureID gives ad-hoc configs a unique id so watcher tasks and resolution
// bookkeeping never collide on the empty string.
func ensureID(cfg models.SniperConfig) models.SniperConfig {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	return cfg
}

func (e *Engine) configLabel(cfg models.SniperConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	if cfg.TokenAddress != "" {
		return cfg.TokenAddress
	}
	return "Unknown Token"
}
