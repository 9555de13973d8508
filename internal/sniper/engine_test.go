package sniper

import (
	"strings"
	"sync"
	"testing"
	"time"

	"solana-sniper-bot-go/internal/config"
	"solana-sniper-bot-go/internal/database"
	"solana-sniper-bot-go/internal/ledger"
	"solana-sniper-bot-go/internal/models"
	"solana-sniper-bot-go/internal/notify"
	"solana-sniper-bot-go/internal/registry"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// captureNotifier records notifications for assertions.
type captureNotifier struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (c *captureNotifier) Notify(n notify.Notification) {
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.mu.Unlock()
}

func (c *captureNotifier) contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notes {
		if strings.Contains(n.Message, substr) {
			return true
		}
	}
	return false
}

// fastSim shrinks all delays so resolutions settle within the test timeout.
func fastSim(successProbability float64) *config.Simulation {
	return &config.Simulation{
		StartDelayMs:       5,
		ResolveDelayMs:     10,
		SuccessProbability: successProbability,
		WatchMinIntervalMs: 5,
		WatchMaxIntervalMs: 10,
		DriftMinPct:        -10,
		DriftMaxPct:        15,
		Seed:               42,
	}
}

func newTestEngine(t *testing.T, sim *config.Simulation) (*Engine, *ledger.Store, *registry.Registry, *captureNotifier) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&models.StorageSlot{}, &models.Order{})
	assert.NoError(t, err)

	store := ledger.NewStore(database.NewSlotStore(db), zap.NewNop())
	store.Initialize()
	reg := registry.New(nil, zap.NewNop())
	notifier := &captureNotifier{}

	eng := NewEngine(sim, store, reg, notifier, zap.NewNop())
	t.Cleanup(eng.Shutdown)
	return eng, store, reg, notifier
}

func testConfig() models.SniperConfig {
	return models.SniperConfig{
		Name:         "Test Token",
		TokenAddress: "So11111111111111111111111111111111111111112",
		BuyAmount:    "1.0",
		TokenType:    models.TokenSOL,
	}
}

func statusOf(t *testing.T, store *ledger.Store, id string) models.Status {
	t.Helper()
	order, ok := store.Get(id)
	assert.True(t, ok)
	return order.Status
}

func TestEngine_BuyInvalidAddressRecordsFailedOrder(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	cfg := testConfig()
	cfg.TokenAddress = "not-a-solana-address"
	order := eng.Buy(cfg)

	assert.Equal(t, models.StatusFailed, order.Status)
	assert.Equal(t, 1, store.Len())
	assert.True(t, notifier.contains("Invalid token address"))
	assert.Equal(t, 0, eng.PendingResolutions())
}

func TestEngine_BuyResolvesConfirmed(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	order := eng.Buy(testConfig())
	assert.Equal(t, models.StatusPending, order.Status)

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)

	// The resolution merges in place, never inserts a second row.
	assert.Equal(t, 1, store.Len())
	confirmed, _ := store.Get(order.ID)
	assert.Equal(t, 1.0, confirmed.Price)
	assert.Nil(t, confirmed.Profit)
	assert.True(t, notifier.contains("Successfully bought Test Token"))
}

func TestEngine_BuyResolvesFailed(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(0.0))

	order := eng.Buy(testConfig())

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusFailed
	}, time.Second, 5*time.Millisecond)
	assert.True(t, notifier.contains("Failed to buy Test Token"))
}

func TestEngine_ConfirmedBuyArmsWatcher(t *testing.T) {
	eng, _, reg, _ := newTestEngine(t, fastSim(1.0))
	// Pin the drift to zero so no threshold is crossed during the test.
	eng.watcher.drift = func() float64 { return 0 }

	cfg := testConfig()
	cfg.SellTarget = "20"
	cfg.StopLoss = "10"
	cfg, err := reg.Add(cfg)
	assert.NoError(t, err)

	eng.Buy(cfg)

	assert.Eventually(t, func() bool {
		return eng.watcher.Active(cfg.ID)
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_AdHocConfigsArmSeparateWatchers(t *testing.T) {
	eng, store, _, _ := newTestEngine(t, fastSim(1.0))
	eng.watcher.drift = func() float64 { return 0 }

	// Two inline configs, neither registered, both with thresholds. Each must
	// get its own watcher slot and its own resolution.
	first := testConfig()
	first.SellTarget = "20"
	second := testConfig()
	second.Name = "Other Token"
	second.SellTarget = "20"

	a := eng.Buy(first)
	b := eng.Buy(second)

	assert.Eventually(t, func() bool {
		return statusOf(t, store, a.ID) == models.StatusConfirmed &&
			statusOf(t, store, b.ID) == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, eng.watcher.Count())
}

func TestEngine_BuyWithoutThresholdsLeavesWatcherIdle(t *testing.T) {
	eng, store, _, _ := newTestEngine(t, fastSim(1.0))

	order := eng.Buy(testConfig())

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, eng.watcher.Count())
}

func TestEngine_SellProfitOverride(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	pct := 20.0
	order := eng.Sell(testConfig(), &pct)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Nil(t, order.Profit)

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)

	confirmed, _ := store.Get(order.ID)
	assert.NotNil(t, confirmed.Profit)
	// 20% of a 1.0 SOL buy.
	assert.InDelta(t, 0.2, *confirmed.Profit, 1e-9)
	assert.True(t, notifier.contains("Successfully sold Test Token"))
}

func TestEngine_SellFailureCarriesNoProfit(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(0.0))

	pct := 20.0
	order := eng.Sell(testConfig(), &pct)

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusFailed
	}, time.Second, 5*time.Millisecond)

	failed, _ := store.Get(order.ID)
	assert.Nil(t, failed.Profit)
	assert.True(t, notifier.contains("Failed to sell Test Token"))
}

func TestEngine_StartSnipeInvalidAddressCreatesNoOrder(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	cfg := testConfig()
	cfg.TokenAddress = ""
	_, err := eng.StartSnipe(cfg)

	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
	assert.True(t, notifier.contains("Invalid token address"))
}

func TestEngine_StartSnipeSingleOrderLifecycle(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	order, err := eng.StartSnipe(testConfig())
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 1, store.Len())
	assert.True(t, notifier.contains("Starting snipe for Test Token with SOL"))

	assert.Eventually(t, func() bool {
		return statusOf(t, store, order.ID) == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)

	// The order recorded at start is the one that resolved; no extra buy.
	assert.Equal(t, 1, store.Len())
}

func TestEngine_ResolutionDropsWhenOrderDeleted(t *testing.T) {
	sim := fastSim(1.0)
	sim.ResolveDelayMs = 50
	eng, store, _, _ := newTestEngine(t, sim)

	order := eng.Buy(testConfig())
	assert.True(t, store.DeleteByID(order.ID))

	// Past the resolve delay the order must not have been resurrected.
	time.Sleep(150 * time.Millisecond)
	_, ok := store.Get(order.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestEngine_ResolutionDropsWhenConfigDeleted(t *testing.T) {
	sim := fastSim(1.0)
	sim.ResolveDelayMs = 50
	eng, store, reg, _ := newTestEngine(t, sim)

	cfg, err := reg.Add(testConfig())
	assert.NoError(t, err)

	order := eng.Buy(cfg)
	assert.NoError(t, eng.RemoveConfig(cfg.ID))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, models.StatusPending, statusOf(t, store, order.ID))
}

func TestEngine_ClearLedgerCancelsResolutions(t *testing.T) {
	sim := fastSim(1.0)
	sim.ResolveDelayMs = 10_000
	eng, store, _, _ := newTestEngine(t, sim)

	eng.Buy(testConfig())
	eng.Buy(testConfig())
	assert.Equal(t, 2, eng.PendingResolutions())

	cleared := eng.ClearLedger(ledger.ClearGuard{})
	assert.True(t, cleared)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, eng.PendingResolutions())
}

func TestEngine_GuardedClearKeepsResolutions(t *testing.T) {
	sim := fastSim(1.0)
	sim.ResolveDelayMs = 10_000
	eng, store, _, _ := newTestEngine(t, sim)

	eng.Buy(testConfig())

	cleared := eng.ClearLedger(ledger.ClearGuard{NewOrderFlow: true})
	assert.False(t, cleared)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, eng.PendingResolutions())
}

func TestEngine_CancelResolution(t *testing.T) {
	sim := fastSim(1.0)
	sim.ResolveDelayMs = 10_000
	eng, store, _, _ := newTestEngine(t, sim)

	order := eng.Buy(testConfig())
	assert.True(t, eng.CancelResolution(order.ID))
	assert.False(t, eng.CancelResolution(order.ID))
	assert.Equal(t, 0, eng.PendingResolutions())

	// The cancelled order stays pending forever.
	assert.Equal(t, models.StatusPending, statusOf(t, store, order.ID))
}

func TestEngine_ValidateTokenAddress(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, fastSim(1.0))

	assert.True(t, eng.ValidateTokenAddress("So11111111111111111111111111111111111111112"))
	assert.True(t, eng.ValidateTokenAddress("  So11111111111111111111111111111111111111112  "))
	assert.False(t, eng.ValidateTokenAddress(""))
	assert.False(t, eng.ValidateTokenAddress("0xDEADBEEF"))
}

func TestEngine_AutoSellNotifications(t *testing.T) {
	eng, store, _, notifier := newTestEngine(t, fastSim(1.0))

	cfg := testConfig()
	eng.autoSell(cfg, 25.0, true)
	assert.Eventually(t, func() bool {
		return notifier.contains("Take profit executed: +25.00%")
	}, time.Second, 5*time.Millisecond)

	eng.autoSell(cfg, -12.5, false)
	assert.Eventually(t, func() bool {
		return notifier.contains("Stop loss executed: -12.50%")
	}, time.Second, 5*time.Millisecond)

	// Two sells, each pending then confirmed in place.
	assert.Eventually(t, func() bool {
		for _, o := range store.List() {
			if o.Status != models.StatusConfirmed {
				return false
			}
		}
		return store.Len() == 2
	}, time.Second, 5*time.Millisecond)
}
