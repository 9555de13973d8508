package sniper

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"solana-sniper-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// triggerRecorder captures watcher firings.
type triggerRecorder struct {
	mu    sync.Mutex
	fires []struct {
		change     float64
		takeProfit bool
	}
}

func (r *triggerRecorder) record(_ models.SniperConfig, change float64, takeProfit bool) {
	r.mu.Lock()
	r.fires = append(r.fires, struct {
		change     float64
		takeProfit bool
	}{change, takeProfit})
	r.mu.Unlock()
}

func (r *triggerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

// driftSequence returns the given values in order, then repeats the last one.
func driftSequence(values ...float64) func() float64 {
	var i int32
	return func() float64 {
		n := atomic.AddInt32(&i, 1) - 1
		if int(n) >= len(values) {
			n = int32(len(values) - 1)
		}
		return values[n]
	}
}

func newTestWatcher(t *testing.T, rec *triggerRecorder) *Watcher {
	w := NewWatcher(fastSim(1.0), rec.record, zap.NewNop())
	w.interval = func() time.Duration { return time.Millisecond }
	t.Cleanup(w.CancelAll)
	return w
}

func watchedConfig(target, stop string) models.SniperConfig {
	return models.SniperConfig{
		ID:           "cfg-1",
		Name:         "Test Token",
		TokenAddress: "So11111111111111111111111111111111111111112",
		BuyAmount:    "1.0",
		SellTarget:   target,
		StopLoss:     stop,
	}
}

func TestWatcher_TakeProfitFiresOnceAndDisarms(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = driftSequence(5, 19.9, 20, 30)

	cfg := watchedConfig("20", "10")
	assert.True(t, w.Arm(cfg))

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	assert.True(t, rec.fires[0].takeProfit)
	assert.Equal(t, 20.0, rec.fires[0].change)

	// The task disarmed itself before triggering; later drifts never fire.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.False(t, w.Active(cfg.ID))
}

func TestWatcher_StopLossFires(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = driftSequence(3, -9.9, -10)

	cfg := watchedConfig("20", "10")
	assert.True(t, w.Arm(cfg))

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	assert.False(t, rec.fires[0].takeProfit)
	assert.Equal(t, -10.0, rec.fires[0].change)
	assert.False(t, w.Active(cfg.ID))
}

func TestWatcher_StaysArmedWhileInsideBounds(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = func() float64 { return 0 }

	cfg := watchedConfig("20", "10")
	assert.True(t, w.Arm(cfg))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.True(t, w.Active(cfg.ID))
}

func TestWatcher_ArmRequiresAThreshold(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)

	assert.False(t, w.Arm(watchedConfig("", "")))
	assert.False(t, w.Arm(watchedConfig("0", "garbage")))
	assert.Equal(t, 0, w.Count())
}

func TestWatcher_OneTaskPerConfig(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = func() float64 { return 0 }

	cfg := watchedConfig("20", "")
	assert.True(t, w.Arm(cfg))
	assert.False(t, w.Arm(cfg))
	assert.Equal(t, 1, w.Count())
}

func TestWatcher_Cancel(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = func() float64 { return 0 }

	cfg := watchedConfig("20", "")
	assert.True(t, w.Arm(cfg))
	assert.True(t, w.Cancel(cfg.ID))
	assert.False(t, w.Cancel(cfg.ID))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestWatcher_CancelAll(t *testing.T) {
	rec := &triggerRecorder{}
	w := newTestWatcher(t, rec)
	w.drift = func() float64 { return 0 }

	first := watchedConfig("20", "")
	second := watchedConfig("20", "")
	second.ID = "cfg-2"
	assert.True(t, w.Arm(first))
	assert.True(t, w.Arm(second))
	assert.Equal(t, 2, w.Count())

	w.CancelAll()
	assert.Equal(t, 0, w.Count())
}

func TestWatcher_TriggerPanicIsContained(t *testing.T) {
	w := NewWatcher(fastSim(1.0), func(models.SniperConfig, float64, bool) {
		panic("sell blew up")
	}, zap.NewNop())
	w.interval = func() time.Duration { return time.Millisecond }
	w.drift = func() float64 { return 50 }
	t.Cleanup(w.CancelAll)

	cfg := watchedConfig("20", "")
	assert.True(t, w.Arm(cfg))

	// The panic is recovered inside the task; the watcher disarms cleanly.
	assert.Eventually(t, func() bool { return !w.Active(cfg.ID) }, time.Second, time.Millisecond)
	assert.Equal(t, 0, w.Count())
}
