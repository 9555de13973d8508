package sniper

import (
	"math/rand"
	"sync"
	"time"

	"solana-sniper-bot-go/internal/config"
	"solana-sniper-bot-go/internal/models"

	"go.uber.org/zap"
)

// sellTrigger is invoked when a watcher crosses a threshold. takeProfit
// distinguishes the framing of the resulting notification.
type sellTrigger func(cfg models.SniperConfig, changePct float64, takeProfit bool)

// Watcher simulates price drift against confirmed positions and triggers an
// automatic sell when the configured take-profit or stop-loss threshold is
// crossed. At most one watch task exists per config id.
type Watcher struct {
	logger *zap.Logger
	sim    *config.Simulation
	sell   sellTrigger

	mu    sync.Mutex
	rng   *rand.Rand
	tasks map[string]chan struct{} // config id -> stop channel

	// Overridable draw functions; tests pin these to deterministic sequences.
	interval func() time.Duration
	drift    func() float64
}

// NewWatcher creates a watcher that reports threshold crossings to sell.
func NewWatcher(sim *config.Simulation, sell sellTrigger, logger *zap.Logger) *Watcher {
	seed := sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	w := &Watcher{
		logger: logger.Named("autosell"),
		sim:    sim,
		sell:   sell,
		rng:    rand.New(rand.NewSource(seed + 1)),
		tasks:  make(map[string]chan struct{}),
	}
	w.interval = w.randomInterval
	w.drift = w.randomDrift
	return w
}

// Arm starts a watch task for the config. It is a no-op when neither
// threshold parses to a positive number, or when a task for the config is
// already running.
func (w *Watcher) Arm(cfg models.SniperConfig) bool {
	target := cfg.SellTargetValue()
	stop := cfg.StopLossValue()
	if target <= 0 && stop <= 0 {
		return false
	}

	w.mu.Lock()
	if _, exists := w.tasks[cfg.ID]; exists {
		w.mu.Unlock()
		return false
	}
	stopCh := make(chan struct{})
	w.tasks[cfg.ID] = stopCh
	w.mu.Unlock()

	w.logger.Info("Armed auto-sell watcher",
		zap.String("config_id", cfg.ID),
		zap.String("token", cfg.DisplayName()),
		zap.Float64("sell_target_pct", target),
		zap.Float64("stop_loss_pct", stop),
	)

	go w.watch(cfg, target, stop, stopCh)
	return true
}

// Cancel stops the watch task for one config. It reports whether a task was
// running.
func (w *Watcher) Cancel(configID string) bool {
	w.mu.Lock()
	stopCh, ok := w.tasks[configID]
	if ok {
		delete(w.tasks, configID)
	}
	w.mu.Unlock()

	if ok {
		close(stopCh)
		w.logger.Info("Cancelled auto-sell watcher", zap.String("config_id", configID))
	}
	return ok
}

// CancelAll stops every active watch task. Used on wallet disconnect and
// shutdown.
func (w *Watcher) CancelAll() {
	w.mu.Lock()
	tasks := w.tasks
	w.tasks = make(map[string]chan struct{})
	w.mu.Unlock()

	for id, stopCh := range tasks {
		close(stopCh)
		w.logger.Info("Cancelled auto-sell watcher", zap.String("config_id", id))
	}
}

// Active reports whether a watch task is running for the config.
func (w *Watcher) Active(configID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tasks[configID]
	return ok
}

// Count returns the number of active watch tasks.
func (w *Watcher) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// watch ticks at a randomized period, drawing a simulated percentage change
// each tick, until a bound is crossed or the task is cancelled. Crossing a
// bound disarms the task before the sell is issued, so a slow sell can never
// fire twice.
func (w *Watcher) watch(cfg models.SniperConfig, target, stop float64, stopCh chan struct{}) {
	for {
		timer := time.NewTimer(w.interval())
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		change := w.drift()
		w.logger.Debug("Simulated price change",
			zap.String("token", cfg.DisplayName()),
			zap.Float64("change_pct", change),
		)

		switch {
		case target > 0 && change >= target:
			w.deregister(cfg.ID)
			w.logger.Info("Sell target reached",
				zap.String("token", cfg.DisplayName()),
				zap.Float64("change_pct", change),
			)
			w.trigger(cfg, change, true)
			return
		case stop > 0 && change <= -stop:
			w.deregister(cfg.ID)
			w.logger.Info("Stop loss triggered",
				zap.String("token", cfg.DisplayName()),
				zap.Float64("change_pct", change),
			)
			w.trigger(cfg, change, false)
			return
		}
	}
}

func (w *Watcher) deregister(configID string) {
	w.mu.Lock()
	delete(w.tasks, configID)
	w.mu.Unlock()
}

// trigger issues the sell; a failure inside the trigger must not take down
// the caller, the task is already disarmed at this point.
func (w *Watcher) trigger(cfg models.SniperConfig, change float64, takeProfit bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Auto-sell trigger failed", zap.Any("panic", r))
		}
	}()
	w.sell(cfg, change, takeProfit)
}

func (w *Watcher) randomInterval() time.Duration {
	min := w.sim.WatchMinInterval()
	max := w.sim.WatchMaxInterval()
	if max <= min {
		return min
	}
	w.mu.Lock()
	jitter := time.Duration(w.rng.Int63n(int64(max - min)))
	w.mu.Unlock()
	return min + jitter
}

func (w *Watcher) randomDrift() float64 {
	w.mu.Lock()
	v := w.rng.Float64()
	w.mu.Unlock()
	return w.sim.DriftMinPct + v*(w.sim.DriftMaxPct-w.sim.DriftMinPct)
}
